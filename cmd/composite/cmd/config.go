package cmd

import (
	"fmt"
)

func init() {
	RegisterCommand(&Command{
		Name:  "config",
		Short: "Show the resolved configuration",
		Long: `Show the configuration the other commands run with.

Values come from composite.yaml in the project root when present, with
defaults derived from go.mod otherwise. Outside a Go module the built-in
defaults are shown.`,
		Usage: "composite config",
		Run:   runConfig,
	})
}

func runConfig(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v\n\nUsage: composite config", args)
	}

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	module := cfg.ModulePath
	if module == "" {
		module = "(none)"
	}
	fmt.Fprintf(stdout, "Project:     %s\n", cfg.AppName)
	fmt.Fprintf(stdout, "Root:        %s\n", cfg.Root)
	fmt.Fprintf(stdout, "Module:      %s\n", module)
	fmt.Fprintf(stdout, "Log:         %s (%s)\n", cfg.LogLevel, cfg.LogEncoding)
	fmt.Fprintf(stdout, "Verbose:     %t\n", cfg.Verbose)
	fmt.Fprintf(stdout, "Max cascade: %d\n", cfg.MaxCascade)
	return nil
}
