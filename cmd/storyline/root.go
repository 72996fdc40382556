package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wavebound/storyline"
	"github.com/wavebound/storyline/internal/cli"
	"github.com/wavebound/storyline/internal/config"
	"github.com/wavebound/storyline/pkg/domain"
)

var rootCmd = &cobra.Command{
	Use:   "storyline",
	Short: "Storyline authors and plays branching audio stories",
	Long: `Storyline stores episodes as graphs of audio nodes, checks them for
broken links and plays them with timed choices.

Configuration is read from STORYLINE_* environment variables; flags win.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("store", "", "Storage backend: file, memory, redis or sqlite")
	pf.String("data-dir", "", "Directory of the file store")
	pf.String("sqlite-path", "", "Database file of the sqlite store")
	pf.String("redis-addr", "", "Address of the redis store")
	pf.String("log-level", "", "Log level: debug, info, warn, error or off")
	pf.String("series", "default", "Series id")
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	override := func(name string, target *string) {
		if flags.Changed(name) {
			*target, _ = flags.GetString(name)
		}
	}
	override("store", &cfg.Store)
	override("data-dir", &cfg.DataDir)
	override("sqlite-path", &cfg.SQLitePath)
	override("redis-addr", &cfg.RedisAddr)
	override("log-level", &cfg.LogLevel)

	return cfg, cfg.Validate()
}

// app is what every command needs: configuration, a logger and an engine.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	engine *storyline.Engine
	stores *cli.Stores
}

func (a *app) Close() {
	if err := a.stores.Close(); err != nil {
		a.logger.Warn("closing stores", "err", err)
	}
}

func newApp(cmd *cobra.Command, hooks ...domain.LifecycleHooks) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	stores, err := cli.OpenStores(commandContext(cmd), cfg)
	if err != nil {
		return nil, err
	}
	engine, err := cli.NewEngine(cfg, stores, logger, hooks...)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, engine: engine, stores: stores}, nil
}

func seriesFlag(cmd *cobra.Command) string {
	s, _ := cmd.Flags().GetString("series")
	return s
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
