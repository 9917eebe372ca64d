package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/datasophos/NexusLIMS-sub001/export"
	"github.com/datasophos/NexusLIMS-sub001/iox"
	"github.com/datasophos/NexusLIMS-sub001/log"
	"github.com/datasophos/NexusLIMS-sub001/outcome"
	"github.com/datasophos/NexusLIMS-sub001/strategy"
	"github.com/datasophos/NexusLIMS-sub001/types"
)

// Exit codes for the export command.
const (
	exitSuccess       = 0
	exitExportFailure = 1
	exitConfigError   = 2
)

// ExportCommand returns the export command, the only command that
// writes to destinations.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export record files to the configured destinations",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:     "manifest",
				Usage:    "Path to JSON manifest of (file, session) pairs",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Completion strategy: all, firstSuccess, or bestEffort (overrides config)",
			},
			&cli.StringFlag{
				Name:  "outcome-db",
				Usage: "Path to the outcome log database (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Skip outcome persistence and completion notifications",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON batch report to this path (\"-\" for stderr)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress per-file summary output",
			},
		},
		Action: exportAction,
	}
}

// manifestEntry is one (file, session) pair in the export manifest.
type manifestEntry struct {
	File          string  `json:"file"`
	SessionID     string  `json:"session_identifier"`
	InstrumentPID string  `json:"instrument_pid"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	User          *string `json:"user,omitempty"`
}

func exportAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"), c.IsSet("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	stratName := cfg.Strategy
	if c.IsSet("strategy") {
		stratName = c.String("strategy")
	}
	if stratName == "" {
		stratName = string(strategy.All)
	}
	strat, err := strategy.Parse(stratName)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	files, sessions, err := loadManifest(c.String("manifest"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid manifest: %v", err), exitConfigError)
	}
	if len(files) == 0 {
		return cli.Exit("manifest names no files", exitConfigError)
	}

	logger := log.NewLogger()
	registry := buildRegistry(c.Context, cfg, logger)

	var store export.Store
	if !c.Bool("dry-run") {
		dbPath := cfg.OutcomeDB
		if c.IsSet("outcome-db") {
			dbPath = c.String("outcome-db")
		}
		if dbPath == "" {
			return cli.Exit("no outcome database configured (set outcome_db or --outcome-db, or pass --dry-run)", exitConfigError)
		}
		s, err := outcome.Open(dbPath)
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
		defer iox.DiscardClose(s)
		store = s
	}

	adapters, err := buildAdapters(cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if c.Bool("dry-run") {
		adapters = nil
	}
	for _, a := range adapters {
		defer iox.DiscardClose(a)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	started := time.Now()
	orch := export.New(registry, store, strat, logger, adapters...)
	results, runErr := orch.ExportRecords(ctx, files, sessions)
	duration := time.Since(started)

	report := export.BuildBatchReport(strat, files, sessions, results)
	if path := c.String("report"); path != "" {
		if err := export.WriteBatchReport(report, path); err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
	}

	if !c.Bool("quiet") {
		printBatchSummary(report, duration)
	}

	if runErr != nil {
		return cli.Exit(fmt.Sprintf("export aborted: %v", runErr), exitConfigError)
	}
	for _, fr := range report.Files {
		if !fr.Succeeded {
			return cli.Exit("", exitExportFailure)
		}
	}
	return cli.Exit("", exitSuccess)
}

// loadManifest parses the JSON manifest into parallel file and session
// slices. Every entry needs a file, session identifier, and a valid
// RFC3339 time range.
func loadManifest(path string) ([]string, []types.SessionMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	files := make([]string, 0, len(entries))
	sessions := make([]types.SessionMeta, 0, len(entries))
	for i, e := range entries {
		if e.File == "" {
			return nil, nil, fmt.Errorf("entry %d: missing file", i)
		}
		if e.SessionID == "" {
			return nil, nil, fmt.Errorf("entry %d: missing session_identifier", i)
		}
		start, err := time.Parse(time.RFC3339, e.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: invalid start: %w", i, err)
		}
		end, err := time.Parse(time.RFC3339, e.End)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: invalid end: %w", i, err)
		}
		files = append(files, e.File)
		sessions = append(sessions, types.SessionMeta{
			SessionID:     e.SessionID,
			InstrumentPID: e.InstrumentPID,
			Start:         start,
			End:           end,
			User:          e.User,
		})
	}
	return files, sessions, nil
}

func printBatchSummary(report *export.BatchReport, duration time.Duration) {
	fmt.Printf("\nstrategy=%s, files=%d, successes=%d, failures=%d, duration=%s\n",
		report.Strategy,
		len(report.Files),
		report.SuccessCount,
		report.FailureCount,
		duration.Round(time.Millisecond),
	)

	for _, fr := range report.Files {
		status := "FAILED"
		if fr.Succeeded {
			status = "ok"
		}
		fmt.Printf("\n%s (%s): %s\n", fr.File, fr.SessionID, status)
		for _, r := range fr.Results {
			if r.Success {
				url := ""
				if r.RecordURL != nil {
					url = " " + *r.RecordURL
				}
				fmt.Printf("  %-14s ok%s\n", r.Destination, url)
			} else {
				fmt.Printf("  %-14s failed: %s\n", r.Destination, r.Error())
			}
		}
	}
}
