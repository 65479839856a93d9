// Package manifest writes the temporary file list consumed by ffmpeg's
// concat demuxer: one `file '<path>'` line per input, in stitching order.
// The manifest is a scoped resource; callers must invoke Release on every
// exit path.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Manifest is a temporary concat list on disk.
type Manifest struct {
	Path string

	released bool
}

// Write creates a uniquely named temporary manifest listing the given inputs
// in order. Inputs should already be absolute paths.
func Write(inputs []string) (*Manifest, error) {
	f, err := os.CreateTemp("", "stitch-list-*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest file: %w", err)
	}

	for _, input := range inputs {
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapePath(input)); err != nil {
			f.Close()
			os.Remove(f.Name())
			return nil, fmt.Errorf("failed to write manifest entry: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to close manifest file: %w", err)
	}

	log.Debug().
		Str("path", f.Name()).
		Int("entries", len(inputs)).
		Msg("Concat manifest written")

	return &Manifest{Path: f.Name()}, nil
}

// Release deletes the manifest. It is idempotent and safe to defer alongside
// an explicit call; a manifest that is already gone is not an error.
func (m *Manifest) Release() error {
	if m == nil || m.released {
		return nil
	}
	m.released = true

	if err := os.Remove(m.Path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", m.Path).Msg("Failed to remove concat manifest")
		return err
	}

	log.Debug().Str("path", m.Path).Msg("Concat manifest removed")
	return nil
}

// escapePath quotes a path for the concat demuxer's single-quoted token
// syntax: a literal single quote ends the quoted run, emits an escaped
// quote, and reopens it (ffmpeg's documented '\'' form).
func escapePath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
