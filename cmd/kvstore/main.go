// Command kvstore runs the content-addressed key-value store as a
// standalone HTTP/2 service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/kvstore/internal/workerpool"
	"github.com/cuemby/kvstore/pkg/api"
	"github.com/cuemby/kvstore/pkg/auth"
	"github.com/cuemby/kvstore/pkg/compress"
	"github.com/cuemby/kvstore/pkg/config"
	"github.com/cuemby/kvstore/pkg/log"
	"github.com/cuemby/kvstore/pkg/metrics"
	"github.com/cuemby/kvstore/pkg/server"
	"github.com/cuemby/kvstore/pkg/storage"
	"github.com/cuemby/kvstore/pkg/txn"
	"github.com/spf13/cobra"
)

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "kvstore",
	Short:   "kvstore is a content-addressed, deduplicating key-value store",
	Version: Version,
	RunE:    runServe,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	metrics.SetVersion(Version)
	metrics.RegisterComponent("store", false, "opening")
	metrics.RegisterComponent("listener", false, "starting")
	metrics.RegisterComponent("api", false, "initializing")

	store, err := storage.NewBoltStore(cfg.DBPath, storage.Options{
		CacheCapacityBytes: cfg.CacheCapacityBytes,
		FlushInterval:      time.Duration(cfg.FlushIntervalMS) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("open store at %s: %w", cfg.DBPath, err)
	}
	defer store.Close()
	metrics.RegisterComponent("store", true, "open")

	manager := txn.New(store)
	compressor := compress.New(cfg.CompressionLevel)
	checker := auth.New(cfg.AuthToken)
	m := metrics.New()
	pool := workerpool.New()
	defer pool.Close()

	router := api.New(manager, compressor, checker, m, pool)
	metrics.RegisterComponent("api", true, "ready")
	metrics.RegisterComponent("listener", true, "ready")

	srv := server.New(router, server.Config{
		BindAddr: cfg.BindAddr,
		Port:     cfg.Port,
		SSLPort:  cfg.SSLPort,
		SSLCert:  cfg.SSLCert,
		SSLKey:   cfg.SSLKey,
		Store:    store,
		Auth:     checker,
	})

	log.Info(fmt.Sprintf("starting kvstore, db=%s", cfg.DBPath))
	return srv.Run()
}
