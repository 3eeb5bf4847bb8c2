// Package bootstrap turns a loaded config into a ready pipeline.
//
// Every binary needs the same pieces: the VK client, a staging area, a
// Yandex.Disk client factory and, when configured, AWS for the VK token,
// the manifest archive, and run history. Each main is a short composition
// of these helpers.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-backup/internal/archive"
	"github.com/fpang/photo-backup/internal/backup"
	"github.com/fpang/photo-backup/internal/config"
	"github.com/fpang/photo-backup/internal/logging"
	"github.com/fpang/photo-backup/internal/staging"
	"github.com/fpang/photo-backup/internal/store"
	"github.com/fpang/photo-backup/internal/vk"
	"github.com/fpang/photo-backup/internal/yadisk"
)

// ParameterGetter is the subset of the SSM client used to read secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Components holds what a binary needs to serve backup runs.
type Components struct {
	Pipeline *backup.Pipeline
	Archive  *archive.S3Archive // nil unless aws.archive_bucket is set
	// Runs is DynamoDB when aws.runs_table is set, else SQLite when
	// paths.history_db is set, else nil.
	Runs store.RunStore

	closers []io.Closer
}

// Close releases local resources such as the history database.
func (c *Components) Close() error {
	var firstErr error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NeedsAWS reports whether cfg refers to any AWS resource.
func NeedsAWS(cfg *config.Config) bool {
	return (cfg.VK.AccessToken == "" && cfg.VK.TokenParam != "") ||
		cfg.AWS.ArchiveBucket != "" ||
		cfg.AWS.RunsTable != ""
}

// InitAWS loads the default AWS config.
func InitAWS(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return cfg, nil
}

// LoadVKToken fills cfg.VK.AccessToken from SSM Parameter Store when it is
// not already set and a parameter name is configured.
func LoadVKToken(ctx context.Context, client ParameterGetter, cfg *config.Config) error {
	if cfg.VK.AccessToken != "" || cfg.VK.TokenParam == "" {
		return nil
	}
	paramName := cfg.VK.TokenParam
	ssmStart := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("read VK token from SSM %s: %w", paramName, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return fmt.Errorf("SSM parameter %s is empty", paramName)
	}
	cfg.VK.AccessToken = *result.Parameter.Value
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).Msg("VK token loaded from SSM")
	return nil
}

// Build resolves secrets, validates cfg, and wires the pipeline. metrics
// receives one EMF document per run when non-nil.
func Build(ctx context.Context, cfg *config.Config, metrics io.Writer) (*Components, error) {
	comps := &Components{}
	if NeedsAWS(cfg) {
		awsCfg, err := InitAWS(ctx)
		if err != nil {
			return nil, err
		}
		if err := LoadVKToken(ctx, ssm.NewFromConfig(awsCfg), cfg); err != nil {
			return nil, err
		}
		if cfg.AWS.ArchiveBucket != "" {
			comps.Archive = archive.NewS3Archive(s3.NewFromConfig(awsCfg), cfg.AWS.ArchiveBucket)
		}
		if cfg.AWS.RunsTable != "" {
			comps.Runs = store.NewDynamoRunStore(dynamodb.NewFromConfig(awsCfg), cfg.AWS.RunsTable)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if comps.Runs == nil && cfg.Paths.HistoryDB != "" {
		history, err := store.OpenSQLite(ctx, cfg.Paths.HistoryDB)
		if err != nil {
			return nil, err
		}
		comps.Runs = history
		comps.closers = append(comps.closers, history)
	}

	opts := backup.Options{
		ManifestPath: cfg.Paths.Manifest,
		UniqueNames:  cfg.Backup.UniqueNames,
		Metrics:      metrics,
	}
	// Leave the interfaces nil rather than holding typed nil pointers.
	if comps.Archive != nil {
		opts.Archive = comps.Archive
	}
	if comps.Runs != nil {
		opts.Runs = comps.Runs
	}
	comps.Pipeline = NewPipeline(cfg, opts)
	return comps, nil
}

// ErrNoHistory means neither aws.runs_table nor paths.history_db is set.
var ErrNoHistory = errors.New("run history is not enabled: set aws.runs_table or paths.history_db")

// RunStore opens run history alone, for tools that only read it. The
// returned func closes it.
func RunStore(ctx context.Context, cfg *config.Config) (store.RunStore, func() error, error) {
	switch {
	case cfg.AWS.RunsTable != "":
		awsCfg, err := InitAWS(ctx)
		if err != nil {
			return nil, nil, err
		}
		noop := func() error { return nil }
		return store.NewDynamoRunStore(dynamodb.NewFromConfig(awsCfg), cfg.AWS.RunsTable), noop, nil
	case cfg.Paths.HistoryDB != "":
		history, err := store.OpenSQLite(ctx, cfg.Paths.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		return history, history.Close, nil
	default:
		return nil, nil, ErrNoHistory
	}
}

// ErrNoArchive means aws.archive_bucket is not set.
var ErrNoArchive = errors.New("manifest archive is not enabled: set aws.archive_bucket")

// Archive opens the manifest archive alone, for tools that only read it.
func Archive(ctx context.Context, cfg *config.Config) (*archive.S3Archive, error) {
	if cfg.AWS.ArchiveBucket == "" {
		return nil, ErrNoArchive
	}
	awsCfg, err := InitAWS(ctx)
	if err != nil {
		return nil, err
	}
	return archive.NewS3Archive(s3.NewFromConfig(awsCfg), cfg.AWS.ArchiveBucket), nil
}

// NewPipeline wires the VK client, staging area, and Yandex.Disk factory
// described by cfg.
func NewPipeline(cfg *config.Config, opts backup.Options) *backup.Pipeline {
	lister := vk.NewClient(cfg.VK.AccessToken, cfg.VK.APIVersion, vk.WithBaseURL(cfg.VK.BaseURL))
	area := staging.New(cfg.Paths.StagingDir, nil)
	if opts.Lock == nil {
		opts.Lock = area
	}
	return backup.New(lister, area, DiskFactory(cfg), opts)
}

// DiskFactory returns a backup.DestinationFunc building Yandex.Disk clients
// for the endpoints in cfg.
func DiskFactory(cfg *config.Config) backup.DestinationFunc {
	return func(token string) backup.Destination {
		return yadisk.NewClient(token,
			yadisk.WithBaseURL(cfg.Disk.BaseURL),
			yadisk.WithUploadURL(cfg.Disk.UploadURL),
			yadisk.WithWebPrefix(cfg.Disk.WebPrefix),
		)
	}
}

// StartupLog returns a startup logger pre-filled from cfg. Secrets are never
// logged, only whether they are present.
func StartupLog(name string, initStart time.Time, cfg *config.Config) *logging.StartupLogger {
	sl := logging.NewStartupLogger(name).
		InitDuration(time.Since(initStart)).
		Config("vkApiVersion", cfg.VK.APIVersion).
		Config("stagingDir", cfg.Paths.StagingDir).
		Config("manifest", cfg.Paths.Manifest).
		Config("logFile", cfg.Paths.LogFile).
		Feature("uniqueNames", cfg.Backup.UniqueNames).
		Feature("vkToken", cfg.VK.AccessToken != "").
		Feature("archive", cfg.AWS.ArchiveBucket != "").
		Feature("runHistory", cfg.AWS.RunsTable != "" || cfg.Paths.HistoryDB != "")
	if cfg.VK.TokenParam != "" {
		sl.SSMParam("vkToken", cfg.VK.TokenParam)
	}
	if cfg.AWS.ArchiveBucket != "" {
		sl.S3Bucket("archive", cfg.AWS.ArchiveBucket)
	}
	if cfg.AWS.RunsTable != "" {
		sl.DynamoTable("runs", cfg.AWS.RunsTable)
	} else if cfg.Paths.HistoryDB != "" {
		sl.Config("historyDb", cfg.Paths.HistoryDB)
	}
	return sl
}
