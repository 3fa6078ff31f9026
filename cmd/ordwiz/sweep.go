// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/sweeper"
)

func newSweepCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale and finished sessions once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Sweeper.SessionTTL <= 0 {
				return errors.New("sweeper.sessionTTL must be positive to sweep")
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			removed, err := sweeper.New(st, cfg.SweeperOptions()).SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d session(s)\n", removed)
			return err
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	return cmd
}
