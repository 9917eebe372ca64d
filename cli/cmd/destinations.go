package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/datasophos/NexusLIMS-sub001/log"
)

// destinationInfo is one row of destinations output.
type destinationInfo struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

// DestinationsCommand returns the destinations command. It lists every
// registered destination in dispatch order without contacting any of them.
func DestinationsCommand() *cli.Command {
	return &cli.Command{
		Name:   "destinations",
		Usage:  "List registered destinations in dispatch order",
		Flags:  ReadOnlyFlags(),
		Action: destinationsAction,
	}
}

func destinationsAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"), c.IsSet("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	registry := buildRegistry(c.Context, cfg, log.NewLogger())

	var infos []destinationInfo
	for _, d := range registry.Destinations() {
		infos = append(infos, destinationInfo{
			Name:     d.Name(),
			Priority: d.Priority(),
			Enabled:  d.Enabled(),
		})
	}

	if c.Bool("json") {
		return printJSON(infos)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPRIORITY\tENABLED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%d\t%t\n", info.Name, info.Priority, info.Enabled)
	}
	return w.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
