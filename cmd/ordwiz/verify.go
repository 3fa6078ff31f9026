// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuGH/ordwiz/internal/persistence/sqlite"
)

var errCorrupt = errors.New("database integrity check failed")

func newVerifyCmd() *cobra.Command {
	var (
		configPath string
		dbPath     string
		full       bool
	)
	cmd := &cobra.Command{
		Use:   "verify-db",
		Short: "Check the orders database for corruption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := dbPath
			if path == "" {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				path = cfg.Orders.DBPath
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("orders database: %w", err)
			}

			mode := "quick"
			if full {
				mode = "full"
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "verifying %s (mode: %s)\n", path, mode)

			issues, err := sqlite.VerifyIntegrity(cmd.Context(), path, full)
			if err != nil {
				return err
			}
			if issues != nil {
				for _, issue := range issues {
					fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", issue)
				}
				return errCorrupt
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	cmd.Flags().StringVar(&dbPath, "db", "", "database file, overrides orders.dbPath")
	cmd.Flags().BoolVar(&full, "full", false, "run PRAGMA integrity_check instead of quick_check")
	return cmd
}
