// Package backup runs the photo backup workflow: list a profile's photos,
// keep the most-liked few, and copy each one to Yandex.Disk through the local
// staging area, recording where every file ended up.
//
// A run is strictly sequential and stops at the first classified error
// (see internal/apierr). Only folder creation failures are tolerated.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-backup/internal/apierr"
	"github.com/fpang/photo-backup/internal/metrics"
	"github.com/fpang/photo-backup/internal/photo"
	"github.com/fpang/photo-backup/internal/staging"
	"github.com/fpang/photo-backup/internal/store"
)

// Lister lists the photos in a user's profile album.
type Lister interface {
	ListProfilePhotos(ctx context.Context, ownerID string) ([]photo.Photo, error)
}

// Destination is a cloud disk bound to one credential.
type Destination interface {
	CheckCredential(ctx context.Context) error
	CreateFolder(ctx context.Context, path string) error
	UploadLink(ctx context.Context, fullPath string) (string, error)
	Upload(ctx context.Context, href string, body io.Reader, size int64) error
	BrowseURL(fullPath string) string
}

// DestinationFunc builds a Destination for a caller-supplied token.
type DestinationFunc func(token string) Destination

// Stager downloads a photo into local scratch storage.
type Stager interface {
	Fetch(ctx context.Context, sourceURL, name string) (staging.File, error)
}

// ManifestArchiver keeps a copy of a run's manifest somewhere durable and
// returns where it went.
type ManifestArchiver interface {
	ArchiveManifest(ctx context.Context, runID string, manifest []byte) (string, error)
}

// RunRecorder persists a summary of every run.
type RunRecorder interface {
	PutRun(ctx context.Context, run *store.Run) error
}

// Locker excludes concurrent runs that share the staging area and manifest.
// Lock fails instead of waiting when the lock is held.
type Locker interface {
	Lock() (unlock func() error, err error)
}

// Options holds the optional parts of a Pipeline.
type Options struct {
	// ManifestPath is overwritten at the end of each successful run.
	ManifestPath string
	// UniqueNames renames photos whose like count collides with an earlier
	// photo in the same run to "<likes>_<date>_<id>.jpg". Off by default: equal
	// like counts then share one file name and the later upload wins.
	UniqueNames bool
	// Lock, Archive, Runs, and Metrics are skipped when nil.
	Lock    Locker
	Archive ManifestArchiver
	Runs    RunRecorder
	Metrics io.Writer
}

// Pipeline wires a photo source, a staging area, and a destination factory.
type Pipeline struct {
	lister         Lister
	stager         Stager
	newDestination DestinationFunc
	opts           Options
}

// New creates a Pipeline. An empty ManifestPath uses DefaultManifestPath.
func New(lister Lister, stager Stager, newDestination DestinationFunc, opts Options) *Pipeline {
	if opts.ManifestPath == "" {
		opts.ManifestPath = DefaultManifestPath
	}
	return &Pipeline{
		lister:         lister,
		stager:         stager,
		newDestination: newDestination,
		opts:           opts,
	}
}

// Request identifies whose photos to copy and where.
type Request struct {
	OwnerID    string
	DiskToken  string
	FolderPath string // optional
}

// Result is the outcome of a successful run.
type Result struct {
	RunID        string
	Records      []UploadRecord
	ManifestPath string
	ArchiveKey   string // empty unless an archiver is configured and succeeded
}

// Run lists, selects, and transfers photos for req.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	startedAt := time.Now()
	logger := log.With().Str("runId", runID).Logger()
	logger.Info().
		Str("ownerId", req.OwnerID).
		Str("folder", req.FolderPath).
		Msg("Starting photo backup")

	var (
		records []UploadRecord
		bytes   int64
	)
	err := func() error {
		if p.opts.Lock != nil {
			unlock, err := p.opts.Lock.Lock()
			if err != nil {
				return err
			}
			defer func() {
				if err := unlock(); err != nil {
					logger.Warn().Err(err).Msg("Failed to release run lock")
				}
			}()
		}

		photos, err := p.lister.ListProfilePhotos(ctx, req.OwnerID)
		if err != nil {
			return err
		}
		selected := photo.Select(photos, photo.MaxSelected)
		logger.Info().Int("listed", len(photos)).Int("selected", len(selected)).Msg("Photos selected for backup")

		records, bytes, err = p.transfer(ctx, selected, p.newDestination(req.DiskToken), req.FolderPath)
		return err
	}()

	result := &Result{RunID: runID, Records: records, ManifestPath: p.opts.ManifestPath}
	if err == nil {
		result.ArchiveKey = p.archive(ctx, runID, records)
	}
	p.finish(ctx, runID, req, startedAt, len(records), bytes, err)

	if err != nil {
		logger.Error().Err(err).Str("kind", apierr.Kind(err)).Msg("Photo backup failed")
		return nil, err
	}
	logger.Info().Int("uploaded", len(records)).Dur("duration", time.Since(startedAt)).Msg("Photo backup complete")
	return result, nil
}

// Transfer copies an already selected set of photos to dest and writes the
// manifest. It returns the records in selection order.
func (p *Pipeline) Transfer(ctx context.Context, selection []photo.Photo, dest Destination, folder string) ([]UploadRecord, error) {
	records, _, err := p.transfer(ctx, selection, dest, folder)
	return records, err
}

func (p *Pipeline) transfer(ctx context.Context, selection []photo.Photo, dest Destination, folder string) ([]UploadRecord, int64, error) {
	if err := dest.CheckCredential(ctx); err != nil {
		return nil, 0, err
	}

	if folder != "" {
		log.Info().Str("folder", folder).Msg("Creating destination folder")
		if err := dest.CreateFolder(ctx, folder); err != nil {
			var folderErr *apierr.FolderCreateError
			if !errors.As(err, &folderErr) {
				return nil, 0, err
			}
			log.Warn().Err(err).Str("folder", folder).Msg("Could not create destination folder, continuing")
		}
	}

	records := make([]UploadRecord, 0, len(selection))
	used := make(map[string]bool, len(selection))
	var total int64

	for i, ph := range selection {
		log.Info().Int("index", i+1).Int("total", len(selection)).Int64("photoId", ph.ID).Msg("Processing photo")

		size, ok := ph.Largest()
		if !ok {
			return nil, total, fmt.Errorf("photo %d: %w", ph.ID, photo.ErrNoSizes)
		}

		name := ph.FileName()
		if p.opts.UniqueNames && used[name] {
			name = ph.UniqueFileName()
		}
		used[name] = true

		staged, err := p.stager.Fetch(ctx, size.URL, name)
		if err != nil {
			return nil, total, fmt.Errorf("stage %s: %w", name, err)
		}
		logStagedInfo(staged)

		fullPath := name
		if folder != "" {
			fullPath = folder + "/" + name
		}
		if err := upload(ctx, dest, staged, fullPath); err != nil {
			return nil, total, fmt.Errorf("upload %s: %w", fullPath, err)
		}
		total += staged.Size

		records = append(records, UploadRecord{
			FileName: name,
			Size:     size.Type,
			URL:      dest.BrowseURL(fullPath),
		})
	}

	if err := WriteManifest(p.opts.ManifestPath, records); err != nil {
		return nil, total, err
	}
	log.Info().Str("path", p.opts.ManifestPath).Int("records", len(records)).Msg("Upload manifest saved")
	return records, total, nil
}

func upload(ctx context.Context, dest Destination, staged staging.File, fullPath string) error {
	href, err := dest.UploadLink(ctx, fullPath)
	if err != nil {
		return err
	}

	f, err := staged.Open()
	if err != nil {
		return fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	if err := dest.Upload(ctx, href, f, staged.Size); err != nil {
		return err
	}
	log.Info().Str("path", fullPath).Msg("File uploaded to Yandex.Disk")
	return nil
}

func logStagedInfo(staged staging.File) {
	info, err := staging.Inspect(staged.Path)
	if err != nil {
		log.Warn().Err(err).Str("file", staged.Name).Msg("Staged file is not a recognizable image")
		return
	}
	evt := log.Debug().
		Str("file", staged.Name).
		Str("format", info.Format).
		Int("width", info.Width).
		Int("height", info.Height)
	if info.CameraModel != "" {
		evt = evt.Str("camera", info.CameraMake+" "+info.CameraModel)
	}
	if !info.TakenAt.IsZero() {
		evt = evt.Time("takenAt", info.TakenAt)
	}
	evt.Msg("Staged photo inspected")
}

// archive hands the manifest to the configured archiver. Failures are logged only.
func (p *Pipeline) archive(ctx context.Context, runID string, records []UploadRecord) string {
	if p.opts.Archive == nil {
		return ""
	}
	data, err := EncodeManifest(records)
	if err != nil {
		log.Warn().Err(err).Str("runId", runID).Msg("Failed to encode manifest for archive")
		return ""
	}
	key, err := p.opts.Archive.ArchiveManifest(ctx, runID, data)
	if err != nil {
		log.Warn().Err(err).Str("runId", runID).Msg("Failed to archive manifest")
		return ""
	}
	return key
}

// finish records run history and metrics. Neither can fail the run.
func (p *Pipeline) finish(ctx context.Context, runID string, req Request, startedAt time.Time, uploaded int, bytes int64, runErr error) {
	finishedAt := time.Now()
	result := "success"
	if runErr != nil {
		result = apierr.Kind(runErr)
	}

	if p.opts.Runs != nil {
		run := &store.Run{
			ID:         runID,
			OwnerID:    req.OwnerID,
			Folder:     req.FolderPath,
			Status:     store.RunStatusComplete,
			Uploaded:   uploaded,
			StartedAt:  startedAt.Unix(),
			FinishedAt: finishedAt.Unix(),
		}
		if runErr != nil {
			run.Status = store.RunStatusError
			run.ErrorKind = result
			run.Error = apierr.UserMessage(runErr)
		}
		if err := p.opts.Runs.PutRun(ctx, run); err != nil {
			log.Warn().Err(err).Str("runId", runID).Msg("Failed to record run history")
		}
	}

	if p.opts.Metrics != nil {
		metrics.New(metrics.Namespace).
			Output(p.opts.Metrics).
			Dimension("Result", result).
			Metric("PhotosUploaded", float64(uploaded), metrics.UnitCount).
			Metric("BytesUploaded", float64(bytes), metrics.UnitBytes).
			Duration("RunDurationMs", finishedAt.Sub(startedAt)).
			Property("runId", runID).
			Flush()
	}
}
