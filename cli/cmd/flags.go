// Package cmd provides CLI commands for the nexuslims-export binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags across commands.
var (
	// ConfigFlag points at the nexuslims.yaml config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to nexuslims.yaml config file",
		Value:   "nexuslims.yaml",
	}

	// JSONFlag switches read-only command output to JSON.
	JSONFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Emit JSON instead of a table",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		JSONFlag,
	}
}
