package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/datasophos/NexusLIMS-sub001/iox"
	"github.com/datasophos/NexusLIMS-sub001/outcome"
)

// historyRow is one row of history output.
type historyRow struct {
	AttemptID   string  `json:"attempt_id"`
	SessionID   string  `json:"session_identifier"`
	Destination string  `json:"destination"`
	Success     bool    `json:"success"`
	RecordURL   *string `json:"record_url,omitempty"`
	Error       *string `json:"error,omitempty"`
	Timestamp   string  `json:"timestamp"`
}

// HistoryCommand returns the history command. It reads the outcome log;
// it never contacts a destination.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show past export attempts from the outcome log",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "outcome-db",
				Usage: "Path to the outcome log database (overrides config)",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Show all attempts for one session, oldest first",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Max rows without --session (newest first)",
				Value: 50,
			},
		),
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"), c.IsSet("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	dbPath := cfg.OutcomeDB
	if c.IsSet("outcome-db") {
		dbPath = c.String("outcome-db")
	}
	if dbPath == "" {
		return cli.Exit("no outcome database configured (set outcome_db or --outcome-db)", exitConfigError)
	}

	store, err := outcome.Open(dbPath)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer iox.DiscardClose(store)

	var rows []outcome.Row
	if session := c.String("session"); session != "" {
		rows, err = store.BySession(c.Context, session)
	} else {
		rows, err = store.History(c.Context, c.Int("limit"))
	}
	if err != nil {
		return err
	}

	out := make([]historyRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, historyRow{
			AttemptID:   row.AttemptID,
			SessionID:   row.SessionID,
			Destination: row.Destination,
			Success:     row.Success,
			RecordURL:   row.RecordURL,
			Error:       row.ErrorMessage,
			Timestamp:   row.Timestamp.Format(time.RFC3339),
		})
	}

	if c.Bool("json") {
		return printJSON(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tSESSION\tDESTINATION\tSTATUS\tDETAIL")
	for _, row := range out {
		detail := ""
		if row.Success && row.RecordURL != nil {
			detail = *row.RecordURL
		} else if row.Error != nil {
			detail = *row.Error
		}
		status := "ok"
		if !row.Success {
			status = "FAILED"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			row.Timestamp, row.SessionID, row.Destination, status, detail)
	}
	return w.Flush()
}
