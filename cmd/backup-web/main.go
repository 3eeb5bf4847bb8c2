package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-backup/internal/bootstrap"
	"github.com/fpang/photo-backup/internal/config"
	"github.com/fpang/photo-backup/internal/logging"
	"github.com/fpang/photo-backup/internal/webui"
)

// commitHash is set at build time via -ldflags "-X main.commitHash=...".
var commitHash string

// CLI flags
var (
	configFlag string
	addrFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "backup-web",
	Short: "Web form for backing up VK profile photos to Yandex.Disk",
	Long: `backup-web starts a local web server with a form that takes a VK user ID,
a Yandex.Disk OAuth token, and an optional folder, then runs a backup and
shows the uploaded files with the tail of the log.

Examples:
  backup-web
  backup-web --addr :8080
  backup-web --config photo-backup.toml`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&configFlag, "config", "", "Path to a TOML config file (default: ./photo-backup.toml if present)")
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "Address to listen on (default: web.addr, :5000)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	cfg, _, err := config.Load(configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if addrFlag != "" {
		cfg.Web.Addr = addrFlag
	}

	logCloser, err := logging.Init(logging.Options{Level: cfg.Logging.Level, File: cfg.Paths.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	comps, err := bootstrap.Build(context.Background(), cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer comps.Close()

	opts := []webui.Option{webui.WithDefaultFolder(cfg.Disk.DefaultFolder)}
	if comps.Runs != nil {
		opts = append(opts, webui.WithRunHistory(comps.Runs))
	}
	handler := webui.NewHandler(comps.Pipeline, cfg.Paths.LogFile, opts...)

	srv := &http.Server{
		Addr:        cfg.Web.Addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// A run downloads and uploads up to five photos sequentially.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	bootstrap.StartupLog("backup-web", initStart, cfg).
		CommitHash(commitHash).
		Config("addr", cfg.Web.Addr).
		Log()
	fmt.Printf("\n  Photo Backup: http://localhost%s\n\n", displayAddr(cfg.Web.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// displayAddr returns the ":port" part of a listen address.
func displayAddr(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return ":" + addr
}
