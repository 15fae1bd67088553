package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jxitc/info-agent-sub000/internal/config"
	"github.com/jxitc/info-agent-sub000/pkg/memory/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show backend statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(cfg *config.Config, backend store.Backend) error {
			count, err := backend.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backend:  %s\n", cfg.Backend)
			fmt.Fprintf(cmd.OutOrStdout(), "Memories: %d\n", count)
			return nil
		})
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create backend schema and indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(cfg *config.Config, backend store.Backend) error {
			si, ok := backend.(store.SchemaInitializer)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Backend %s needs no schema setup.\n", cfg.Backend)
				return nil
			}
			if err := si.CreateSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema ready.")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(initCmd)
}
