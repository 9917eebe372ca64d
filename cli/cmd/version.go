package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/datasophos/NexusLIMS-sub001/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// VersionCommand returns the version command. It must not touch the
// config file, the outcome log, or any destination.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: []cli.Flag{JSONFlag},
		Action: func(c *cli.Context) error {
			resp := VersionResponse{Version: types.Version, Commit: commit}
			if c.Bool("json") {
				return printJSON(resp)
			}
			fmt.Printf("nexuslims-export %s (commit: %s)\n", resp.Version, resp.Commit)
			return nil
		},
	}
}
