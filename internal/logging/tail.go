package logging

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// TailLines is how many log lines a trigger response carries.
const TailLines = 10

// Tail returns the last n non-empty lines of the log file at path, trimmed.
// It never fails: problems reading the file come back as a single
// explanatory line so a response can still be built.
func Tail(path string, n int) []string {
	if n <= 0 {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{"log file not found"}
		}
		log.Error().Err(err).Str("path", path).Msg("Failed to open log file")
		return []string{"failed to read log file"}
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(ring) == n {
			ring = append(ring[1:], line)
		} else {
			ring = append(ring, line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to read log file")
		return []string{"failed to read log file"}
	}
	return ring
}
