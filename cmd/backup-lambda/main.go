// Command backup-lambda serves the backup web front end from AWS Lambda
// behind an API Gateway HTTP API.
//
// Configuration comes from the environment (see internal/config). The VK
// token is normally read from SSM via SSM_VK_TOKEN_PARAM. Logs go to
// /tmp so /upload responses can still carry their tail.
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-backup/internal/bootstrap"
	"github.com/fpang/photo-backup/internal/config"
	"github.com/fpang/photo-backup/internal/logging"
	"github.com/fpang/photo-backup/internal/webui"
)

// commitHash is set at build time via -ldflags "-X main.commitHash=...".
var commitHash string

// Only /tmp is writable on Lambda.
const (
	lambdaLogFile    = "/tmp/app.log"
	lambdaStagingDir = "/tmp/vk_photos"
	lambdaManifest   = "/tmp/uploaded_photos.json"
)

var handler *webui.Handler

func init() {
	initStart := time.Now()

	cfg, _, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if _, ok := os.LookupEnv("PHOTO_BACKUP_LOG_FILE"); !ok {
		cfg.Paths.LogFile = lambdaLogFile
	}
	if _, ok := os.LookupEnv("PHOTO_BACKUP_STAGING_DIR"); !ok {
		cfg.Paths.StagingDir = lambdaStagingDir
	}
	if _, ok := os.LookupEnv("PHOTO_BACKUP_MANIFEST"); !ok {
		cfg.Paths.Manifest = lambdaManifest
	}

	if _, err := logging.Init(logging.Options{Level: cfg.Logging.Level, File: cfg.Paths.LogFile}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logging")
	}

	// EMF documents on stdout become CloudWatch metrics.
	comps, err := bootstrap.Build(context.Background(), cfg, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}

	opts := []webui.Option{webui.WithDefaultFolder(cfg.Disk.DefaultFolder)}
	if comps.Runs != nil {
		opts = append(opts, webui.WithRunHistory(comps.Runs))
	}
	handler = webui.NewHandler(comps.Pipeline, cfg.Paths.LogFile, opts...)

	bootstrap.StartupLog("backup-lambda", initStart, cfg).CommitHash(commitHash).Log()
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
