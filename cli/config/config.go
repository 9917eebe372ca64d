package config

import (
	"fmt"
	"time"
)

// Config represents a nexuslims.yaml configuration file.
// All values are optional and act as defaults for export flags.
// CLI flags always override config values.
type Config struct {
	Strategy     string             `yaml:"strategy"`
	OutcomeDB    string             `yaml:"outcome_db"`
	Destinations DestinationsConfig `yaml:"destinations"`
	Adapter      AdapterConfig      `yaml:"adapter"`
}

// DestinationsConfig groups the per-destination sections.
type DestinationsConfig struct {
	CDCS        CDCSConfig        `yaml:"cdcs"`
	LabArchives LabArchivesConfig `yaml:"labarchives"`
	ELabFTW     ELabFTWConfig     `yaml:"elabftw"`
	S3Archive   S3ArchiveConfig   `yaml:"s3archive"`
	Spool       SpoolConfig       `yaml:"spool"`
}

// CDCSConfig configures the CDCS repository destination.
type CDCSConfig struct {
	BaseURL    string   `yaml:"base_url"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	TemplateID string   `yaml:"template_id"`
	Priority   *int     `yaml:"priority,omitempty"`
	Timeout    Duration `yaml:"timeout,omitempty"`
}

// LabArchivesConfig configures the LabArchives notebook destination.
type LabArchivesConfig struct {
	APIBaseURL     string   `yaml:"api_base_url"`
	AccessKeyID    string   `yaml:"access_key_id"`
	AccessPassword string   `yaml:"access_password"`
	NotebookID     string   `yaml:"notebook_id"`
	Priority       *int     `yaml:"priority,omitempty"`
	Timeout        Duration `yaml:"timeout,omitempty"`
}

// ELabFTWConfig configures the eLabFTW experiment destination.
type ELabFTWConfig struct {
	BaseURL    string   `yaml:"base_url"`
	APIKey     string   `yaml:"api_key"`
	CategoryID int      `yaml:"category_id"`
	Priority   *int     `yaml:"priority,omitempty"`
	Timeout    Duration `yaml:"timeout,omitempty"`
}

// S3ArchiveConfig configures the S3 archival destination.
type S3ArchiveConfig struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	Priority    *int   `yaml:"priority,omitempty"`
}

// SpoolConfig configures the local spool destination.
type SpoolConfig struct {
	Dir      string `yaml:"dir"`
	Priority *int   `yaml:"priority,omitempty"`
}

// AdapterConfig holds completion-notification adapter defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
