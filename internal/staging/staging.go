// Package staging downloads photos into a local scratch directory before they
// are uploaded, and reads basic facts about a staged file for logging.
//
// The directory is created on first use and never cleaned up here; whoever
// runs the binary owns its lifecycle. Files are written under the exact name
// the caller passes, so two photos staged under one name overwrite each other.
package staging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-backup/internal/apierr"
)

// DefaultDir is the staging directory used when none is configured.
const DefaultDir = "vk_photos"

// defaultTimeout bounds a single photo download.
const defaultTimeout = 60 * time.Second

// Area is a local staging directory.
type Area struct {
	dir        string
	httpClient *http.Client
}

// New creates an Area rooted at dir. hc may be nil.
func New(dir string, hc *http.Client) *Area {
	if dir == "" {
		dir = DefaultDir
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Area{dir: dir, httpClient: hc}
}

// Dir returns the staging directory path.
func (a *Area) Dir() string {
	return a.dir
}

// File is a photo written to the staging area.
type File struct {
	Name string
	Path string
	Size int64
}

// Open opens the staged file for reading.
func (f File) Open() (*os.File, error) {
	return os.Open(f.Path)
}

// Fetch downloads sourceURL into the staging area as name, replacing any
// file already staged under that name. Download failures are TransportErrors.
func (a *Area) Fetch(ctx context.Context, sourceURL, name string) (File, error) {
	if err := a.ensureDir(); err != nil {
		return File{}, err
	}

	localPath := filepath.Join(a.dir, name)
	log.Debug().Str("url", sourceURL).Str("localPath", localPath).Msg("Downloading photo")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return File{}, &apierr.TransportError{Op: "download", Err: fmt.Errorf("build request: %w", err)}
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return File{}, &apierr.TransportError{Op: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return File{}, &apierr.TransportError{Op: "download", StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status for %s", sourceURL)}
	}

	f, err := os.Create(localPath)
	if err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return File{}, &apierr.TransportError{Op: "download", StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	log.Info().Str("file", name).Int64("bytes", n).Msg("Photo saved locally")
	return File{Name: name, Path: localPath, Size: n}, nil
}

// ensureDir creates the staging directory if it does not exist yet.
func (a *Area) ensureDir() error {
	if _, err := os.Stat(a.dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create staging directory %s: %w", a.dir, err)
	}
	log.Info().Str("dir", a.dir).Msg("Created local staging directory")
	return nil
}
