package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/datasophos/NexusLIMS-sub001/adapter"
	"github.com/datasophos/NexusLIMS-sub001/adapter/redis"
	"github.com/datasophos/NexusLIMS-sub001/adapter/webhook"
	"github.com/datasophos/NexusLIMS-sub001/cli/config"
	"github.com/datasophos/NexusLIMS-sub001/destination"
	"github.com/datasophos/NexusLIMS-sub001/destination/cdcs"
	"github.com/datasophos/NexusLIMS-sub001/destination/elabftw"
	"github.com/datasophos/NexusLIMS-sub001/destination/labarchives"
	"github.com/datasophos/NexusLIMS-sub001/destination/s3archive"
	"github.com/datasophos/NexusLIMS-sub001/destination/spool"
	"github.com/datasophos/NexusLIMS-sub001/log"
)

func intOrZero(p *int) int {
	if p != nil {
		return *p
	}
	return 0
}

// buildRegistry queues a factory per configured destination section.
// Unconfigured destinations still register; they report Enabled()=false
// and are skipped at dispatch. The S3 factory is queued only when a
// bucket is named because client construction touches the AWS credential
// chain.
func buildRegistry(ctx context.Context, cfg *config.Config, logger *log.Logger) *destination.Registry {
	registry := destination.NewRegistry(logger)
	dests := cfg.Destinations

	registry.AddFactory(func() (destination.Destination, error) {
		return cdcs.New(cdcs.Config{
			BaseURL:    dests.CDCS.BaseURL,
			Username:   dests.CDCS.Username,
			Password:   dests.CDCS.Password,
			TemplateID: dests.CDCS.TemplateID,
			Priority:   intOrZero(dests.CDCS.Priority),
			Timeout:    dests.CDCS.Timeout.Duration,
		}), nil
	})
	registry.AddFactory(func() (destination.Destination, error) {
		return labarchives.New(labarchives.Config{
			APIBaseURL:     dests.LabArchives.APIBaseURL,
			AccessKeyID:    dests.LabArchives.AccessKeyID,
			AccessPassword: dests.LabArchives.AccessPassword,
			NotebookID:     dests.LabArchives.NotebookID,
			Priority:       intOrZero(dests.LabArchives.Priority),
			Timeout:        dests.LabArchives.Timeout.Duration,
		}), nil
	})
	registry.AddFactory(func() (destination.Destination, error) {
		return elabftw.New(elabftw.Config{
			BaseURL:    dests.ELabFTW.BaseURL,
			APIKey:     dests.ELabFTW.APIKey,
			CategoryID: dests.ELabFTW.CategoryID,
			Priority:   intOrZero(dests.ELabFTW.Priority),
			Timeout:    dests.ELabFTW.Timeout.Duration,
		}), nil
	})
	if dests.S3Archive.Bucket != "" {
		registry.AddFactory(func() (destination.Destination, error) {
			return s3archive.New(ctx, s3archive.Config{
				Bucket:       dests.S3Archive.Bucket,
				Prefix:       dests.S3Archive.Prefix,
				Region:       dests.S3Archive.Region,
				Endpoint:     dests.S3Archive.Endpoint,
				UsePathStyle: dests.S3Archive.S3PathStyle,
				Priority:     intOrZero(dests.S3Archive.Priority),
			})
		})
	}
	registry.AddFactory(func() (destination.Destination, error) {
		return spool.New(spool.Config{
			Dir:      dests.Spool.Dir,
			Priority: intOrZero(dests.Spool.Priority),
		}), nil
	})

	return registry
}

// buildAdapters constructs the completion-notification adapters from config.
// An empty adapter type means none configured.
func buildAdapters(cfg *config.Config) ([]adapter.Adapter, error) {
	ac := cfg.Adapter
	switch ac.Type {
	case "":
		return nil, nil
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:     ac.URL,
			Headers: ac.Headers,
			Timeout: ac.Timeout.Duration,
			Retries: retriesOrDefault(ac.Retries),
		})
		if err != nil {
			return nil, fmt.Errorf("webhook adapter: %w", err)
		}
		return []adapter.Adapter{a}, nil
	case "redis":
		a, err := redis.New(redis.Config{
			URL:     ac.URL,
			Channel: ac.Channel,
			Timeout: ac.Timeout.Duration,
			Retries: retriesOrDefault(ac.Retries),
		})
		if err != nil {
			return nil, fmt.Errorf("redis adapter: %w", err)
		}
		return []adapter.Adapter{a}, nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", ac.Type)
	}
}

func retriesOrDefault(p *int) int {
	if p != nil {
		return *p
	}
	return 3
}

// loadConfig reads the config file named by --config. A missing file is
// only an error when the flag was set explicitly; with the default name,
// flags alone can drive a run.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return &config.Config{}, nil
		}
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return config.Load(path)
}
