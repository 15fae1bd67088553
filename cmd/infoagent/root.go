package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jxitc/info-agent-sub000/internal/config"
	"github.com/jxitc/info-agent-sub000/pkg/memory/embed"
	"github.com/jxitc/info-agent-sub000/pkg/memory/retrieve"
	"github.com/jxitc/info-agent-sub000/pkg/memory/store"
)

var (
	cfgFile     string
	backendFlag string
)

var rootCmd = &cobra.Command{
	Use:   "infoagent",
	Short: "Personal memory store with hybrid retrieval",
	Long: `infoagent ingests free-form memories with structured fields and typed
relations, then answers queries by fusing structured, semantic, and
relationship lookups into one confidence-ranked result list.`,
	SilenceUsage: true,
}

// Execute runs the CLI. Called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./infoagent.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend: memory|sqlite|postgres|mongo")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	return cfg, nil
}

// withBackend opens the configured backend, runs fn, and closes it.
func withBackend(cmd *cobra.Command, fn func(cfg *config.Config, backend store.Backend) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, err := openBackend(cmd, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	return fn(cfg, backend)
}

// withEngine opens the backend and builds a retrieval engine on top of it.
func withEngine(cmd *cobra.Command, fn func(cfg *config.Config, backend store.Backend, engine *retrieve.Engine) error) error {
	return withBackend(cmd, func(cfg *config.Config, backend store.Backend) error {
		engine := retrieve.NewEngine(backend, newEmbedder(cfg), cfg.EngineOptions())
		return fn(cfg, backend, engine)
	})
}

func newEmbedder(cfg *config.Config) embed.Embedder {
	if cfg.Embed.Provider != "" {
		return embed.ForProvider(cfg.Embed.Provider, cfg.Embed.Model)
	}
	return embed.AutoEmbedder()
}
