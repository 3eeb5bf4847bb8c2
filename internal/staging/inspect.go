package staging

import (
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder for image.DecodeConfig
	_ "image/png"  // register PNG decoder for image.DecodeConfig
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp" // VK serves some sizes as WebP
)

// Info describes a staged image file.
type Info struct {
	Format string
	Width  int
	Height int

	// EXIF fields; zero when the file carries none (VK strips most of it).
	CameraMake  string
	CameraModel string
	TakenAt     time.Time
}

// Inspect reads the image header of a staged file and, when present, its
// EXIF block. It fails only if the file is not a decodable image.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("decode image header: %w", err)
	}
	info := Info{Format: format, Width: cfg.Width, Height: cfg.Height}

	if _, err := f.Seek(0, 0); err != nil {
		return info, nil
	}
	exifData, err := imagemeta.Decode(f)
	if err != nil {
		log.Trace().Err(err).Str("path", path).Msg("No EXIF metadata in staged photo")
		return info, nil
	}
	info.CameraMake = strings.TrimSpace(exifData.Make)
	info.CameraModel = strings.TrimSpace(exifData.Model)
	if t := exifData.DateTimeOriginal(); !t.IsZero() {
		info.TakenAt = t
	}
	return info, nil
}
