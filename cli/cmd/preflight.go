package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/datasophos/NexusLIMS-sub001/log"
)

// preflightResult is one row of preflight output.
type preflightResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// PreflightCommand returns the preflight command. It runs each enabled
// destination's reachability and credential check without exporting
// anything.
func PreflightCommand() *cli.Command {
	return &cli.Command{
		Name:   "preflight",
		Usage:  "Validate connectivity and credentials for enabled destinations",
		Flags:  ReadOnlyFlags(),
		Action: preflightAction,
	}
}

func preflightAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"), c.IsSet("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	registry := buildRegistry(c.Context, cfg, log.NewLogger())
	enabled := registry.EnabledDestinations()
	if len(enabled) == 0 {
		return cli.Exit("no destinations enabled", exitConfigError)
	}

	var (
		results []preflightResult
		failed  bool
	)
	for _, d := range enabled {
		r := preflightResult{Name: d.Name(), OK: true}
		if err := d.Validate(c.Context); err != nil {
			r.OK = false
			r.Error = err.Error()
			failed = true
		}
		results = append(results, r)
	}

	if c.Bool("json") {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATUS\tDETAIL")
		for _, r := range results {
			if r.OK {
				fmt.Fprintf(w, "%s\tok\t\n", r.Name)
			} else {
				fmt.Fprintf(w, "%s\tFAILED\t%s\n", r.Name, r.Error)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if failed {
		return cli.Exit("", exitExportFailure)
	}
	return nil
}
