package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-backup/internal/backup"
	"github.com/fpang/photo-backup/internal/bootstrap"
	"github.com/fpang/photo-backup/internal/cli"
	"github.com/fpang/photo-backup/internal/config"
	"github.com/fpang/photo-backup/internal/logging"
)

// commitHash is set at build time via -ldflags "-X main.commitHash=...".
var commitHash string

// CLI flags
var (
	configFlag      string
	logLevelFlag    string
	ownerFlag       string
	diskTokenFlag   string
	folderFlag      string
	uniqueNamesFlag bool
	stagingDirFlag  string
	manifestFlag    string
	limitFlag       int
	dialogFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "photo-backup",
	Short: "Back up a VK user's most-liked profile photos to Yandex.Disk",
	Long: `photo-backup lists a VK user's profile photos, keeps the five with the most
likes, and uploads the largest version of each to Yandex.Disk. Each file is
named after its like count. A manifest of uploaded files is written to
uploaded_photos.json.

The VK access token comes from VK_ACCESS_TOKEN, the config file, or AWS SSM
(vk.token_param). The Yandex.Disk OAuth token is passed per run.

Examples:
  photo-backup --owner 1 --yandex-token $YANDEX_DISK_TOKEN --folder backup
  photo-backup --owner 1 --unique-names
  photo-backup --config photo-backup.toml
  photo-backup --dialog  # Asks for user ID, token and folder in desktop dialogs
  photo-backup  # Interactive mode - prompts for user ID and token`,
	Run: runBackup,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a commented sample configuration file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := config.ProjectFile
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			log.Fatal().Str("path", path).Msg("Config file already exists")
		}
		if err := config.CreateSample(path); err != nil {
			log.Fatal().Err(err).Msg("Failed to write sample config")
		}
		fmt.Printf("Sample configuration written to %s\n", path)
	},
}

var manifestCmd = &cobra.Command{
	Use:   "manifest <run-id>",
	Short: "Show the archived manifest of a run (requires aws.archive_bucket)",
	Args:  cobra.ExactArgs(1),
	Run:   runManifest,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recorded backup runs for a user (requires aws.runs_table or paths.history_db)",
	Run:   runHistory,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to a TOML config file (default: ./photo-backup.toml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&ownerFlag, "owner", "o", "", "VK user ID whose profile photos to back up")

	rootCmd.Flags().StringVarP(&diskTokenFlag, "yandex-token", "t", os.Getenv("YANDEX_DISK_TOKEN"), "Yandex.Disk OAuth token (default: $YANDEX_DISK_TOKEN)")
	rootCmd.Flags().StringVarP(&folderFlag, "folder", "f", "", "Folder on Yandex.Disk to upload into (default: disk root)")
	rootCmd.Flags().BoolVar(&uniqueNamesFlag, "unique-names", false, "Name photos with equal like counts <likes>_<date>_<id>.jpg instead of overwriting")
	rootCmd.Flags().StringVar(&stagingDirFlag, "staging-dir", "", "Local directory for downloaded photos")
	rootCmd.Flags().StringVar(&manifestFlag, "manifest", "", "Path of the upload manifest")
	rootCmd.Flags().BoolVar(&dialogFlag, "dialog", false, "Ask for missing values in desktop dialogs instead of the terminal")

	runsCmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum runs to show")

	rootCmd.AddCommand(initConfigCmd, runsCmd, manifestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies command-line flags on top of the file and environment,
// then starts logging. Close the returned closer to flush the log file.
func loadConfig(cmd *cobra.Command) (*config.Config, io.Closer) {
	cfg, path, err := config.Load(configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if cmd.Flags().Changed("unique-names") {
		cfg.Backup.UniqueNames = uniqueNamesFlag
	}
	if stagingDirFlag != "" {
		cfg.Paths.StagingDir = stagingDirFlag
	}
	if manifestFlag != "" {
		cfg.Paths.Manifest = manifestFlag
	}

	logCloser, err := logging.Init(logging.Options{Level: cfg.Logging.Level, File: cfg.Paths.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if path != "" {
		log.Debug().Str("path", path).Msg("Configuration file loaded")
	}
	return cfg, logCloser
}

// exitOnFailure runs fn and exits with its status once fn's deferred
// cleanup has run.
func exitOnFailure(fn func() int) {
	if code := fn(); code != 0 {
		os.Exit(code)
	}
}

func runBackup(cmd *cobra.Command, args []string) {
	exitOnFailure(func() int { return backupOnce(cmd) })
}

func backupOnce(cmd *cobra.Command) int {
	initStart := time.Now()
	cfg, logCloser := loadConfig(cmd)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := bootstrap.Build(ctx, cfg, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize")
		return 1
	}
	defer comps.Close()
	bootstrap.StartupLog("photo-backup", initStart, cfg).CommitHash(commitHash).Log()

	var prompter cli.Asker = cli.StdPrompter()
	if dialogFlag {
		prompter = cli.NewDialogPrompter("photo-backup", prompter)
	}
	owner := ownerFlag
	if owner == "" {
		owner = prompter.Ask("VK user ID", "")
	}
	token := diskTokenFlag
	if token == "" {
		token = prompter.AskSecret("Yandex.Disk OAuth token")
	}
	folder := folderFlag
	if folder == "" && dialogFlag {
		folder = prompter.Ask("Folder on Yandex.Disk", cfg.Disk.DefaultFolder)
	}
	if folder == "" {
		folder = cfg.Disk.DefaultFolder
	}
	if owner == "" || token == "" {
		log.Error().Msg("VK user ID and Yandex.Disk token are required")
		return 1
	}

	result, err := comps.Pipeline.Run(ctx, backup.Request{
		OwnerID:    strings.TrimSpace(owner),
		DiskToken:  strings.TrimSpace(token),
		FolderPath: strings.Trim(strings.TrimSpace(folder), "/"),
	})
	if err != nil {
		cli.HandleRunError(err)
		return 1
	}

	fmt.Printf("\nUploaded %d photos in %s (run %s)\n\n", len(result.Records), cli.FormatDurationShort(time.Since(initStart)), result.RunID)
	cli.PrintRecords(os.Stdout, result.Records)
	fmt.Printf("\nManifest: %s\n", result.ManifestPath)
	if result.ArchiveKey != "" {
		fmt.Printf("Archived: s3://%s/%s\n", cfg.AWS.ArchiveBucket, result.ArchiveKey)
	}
	return 0
}

func runHistory(cmd *cobra.Command, args []string) {
	exitOnFailure(func() int { return historyOnce(cmd) })
}

func historyOnce(cmd *cobra.Command) int {
	cfg, logCloser := loadConfig(cmd)
	defer logCloser.Close()
	if ownerFlag == "" {
		log.Error().Msg("--owner is required")
		return 1
	}

	ctx := context.Background()
	runStore, closeStore, err := bootstrap.RunStore(ctx, cfg)
	if errors.Is(err, bootstrap.ErrNoHistory) {
		log.Error().Msg("Run history is not enabled. Set aws.runs_table or paths.history_db (PHOTO_BACKUP_HISTORY_DB)")
		return 1
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize")
		return 1
	}
	defer closeStore()

	runs, err := runStore.ListRuns(ctx, ownerFlag, limitFlag)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list runs")
		return 1
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded for this user.")
		return 0
	}
	cli.PrintRuns(os.Stdout, runs)
	return 0
}

func runManifest(cmd *cobra.Command, args []string) {
	exitOnFailure(func() int { return manifestOnce(cmd, args[0]) })
}

func manifestOnce(cmd *cobra.Command, runID string) int {
	cfg, logCloser := loadConfig(cmd)
	defer logCloser.Close()

	ctx := context.Background()
	archive, err := bootstrap.Archive(ctx, cfg)
	if errors.Is(err, bootstrap.ErrNoArchive) {
		log.Error().Msg("Manifest archive is not enabled. Set aws.archive_bucket or PHOTO_BACKUP_ARCHIVE_BUCKET")
		return 1
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize")
		return 1
	}

	data, err := archive.FetchManifest(ctx, strings.TrimSpace(runID))
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Failed to fetch archived manifest")
		return 1
	}
	records, err := backup.ParseManifest(data)
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Archived manifest is not readable")
		return 1
	}
	cli.PrintRecords(os.Stdout, records)
	return 0
}
