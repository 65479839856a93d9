// Package scanner resolves the ordered set of input video files for a run,
// either by walking a directory tree or by validating an explicit list.
// Ordering is deterministic: re-running with the same inputs always yields
// the same sequence, which matters because concatenation order is part of
// the result.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/facette/natsort"
	"github.com/rs/zerolog/log"
)

// SortPolicy selects how scanned files are ordered.
type SortPolicy string

const (
	// SortLex orders paths lexicographically. This is the default.
	SortLex SortPolicy = "lex"

	// SortNatural orders paths with numeric awareness, so clip_2 sorts
	// before clip_10. Useful for numbered segment sequences.
	SortNatural SortPolicy = "natural"
)

// ParseSortPolicy validates a user-supplied policy name.
func ParseSortPolicy(s string) (SortPolicy, error) {
	switch SortPolicy(s) {
	case SortLex, SortNatural:
		return SortPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown sort policy %q (want %q or %q)", s, SortLex, SortNatural)
	}
}

// ErrNoInputs is returned when a scan or an explicit list resolves to zero
// video files.
var ErrNoInputs = errors.New("no video files found")

// MissingFileError reports an explicitly listed input that does not exist.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("input file not found: %s", e.Path)
}

// Options configures directory scanning behavior.
type Options struct {
	// Extensions is the set of matched file extensions, without leading
	// dots. Matching is case-insensitive.
	Extensions []string

	// MaxDepth limits recursion depth. 0 = unlimited, 1 = top-level only.
	MaxDepth int

	// Limit caps the number of files collected during the walk. 0 = unlimited.
	Limit int

	// Sort is the ordering policy applied after the walk.
	Sort SortPolicy

	// Position is a 1-based starting index into the sorted list. 0 = from
	// the beginning.
	Position int

	// Count is how many files to take from Position. 0 = all remaining.
	Count int
}

// Scan walks dirPath for video files and returns them as absolute paths in
// deterministic order. Symlinks to files are followed; symlinks to
// directories are skipped to prevent infinite loops.
// Returns ErrNoInputs when nothing matches.
func Scan(dirPath string, opts Options) ([]string, error) {
	if opts.Sort == "" {
		opts.Sort = SortLex
	}

	log.Info().
		Str("path", dirPath).
		Int("max_depth", opts.MaxDepth).
		Int("limit", opts.Limit).
		Str("sort", string(opts.Sort)).
		Msg("Scanning directory for video files")

	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", dirPath)
		}
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	// Absolute base keeps depth calculation and output paths consistent.
	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	baseDepth := strings.Count(absPath, string(os.PathSeparator))

	extSet := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		extSet["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	var files []string
	limitReached := false

	err = filepath.WalkDir(absPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error accessing path, skipping")
			return nil // Continue walking despite errors
		}

		if opts.MaxDepth > 0 {
			currentDepth := strings.Count(path, string(os.PathSeparator)) - baseDepth
			if d.IsDir() && currentDepth >= opts.MaxDepth {
				return fs.SkipDir
			}
		}

		if d.IsDir() {
			return nil
		}

		// Follow file symlinks, skip directory symlinks.
		if d.Type()&fs.ModeSymlink != 0 {
			linkTarget, err := filepath.EvalSymlinks(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to resolve symlink, skipping")
				return nil
			}
			targetInfo, err := os.Stat(linkTarget)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to stat symlink target, skipping")
				return nil
			}
			if targetInfo.IsDir() {
				log.Debug().Str("path", path).Msg("Skipping symlink to directory")
				return nil
			}
		}

		if opts.Limit > 0 && len(files) >= opts.Limit {
			limitReached = true
			return fs.SkipAll
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if _, ok := extSet[ext]; !ok {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputs, dirPath)
	}

	sortPaths(files, opts.Sort)

	files, err = slice(files, opts.Position, opts.Count)
	if err != nil {
		return nil, err
	}

	logEvent := log.Info().
		Int("total_files", len(files)).
		Str("directory", dirPath)
	if limitReached {
		logEvent.Bool("limit_reached", true)
	}
	logEvent.Msg("Directory scan complete")

	return files, nil
}

// Resolve validates an explicit ordered list of input paths and returns them
// as absolute paths, preserving the given order. Returns a MissingFileError
// for the first path that does not exist and ErrNoInputs for an empty list.
func Resolve(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}

	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &MissingFileError{Path: p}
			}
			return nil, fmt.Errorf("failed to stat input %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("input is a directory, not a video file: %s", p)
		}

		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", p, err)
		}
		resolved = append(resolved, abs)
	}

	return resolved, nil
}

func sortPaths(files []string, policy SortPolicy) {
	switch policy {
	case SortNatural:
		natsort.Sort(files)
	default:
		sort.Strings(files)
	}
}

// slice applies the 1-based position/count window to the sorted list.
func slice(files []string, position, count int) ([]string, error) {
	if position == 0 && count == 0 {
		return files, nil
	}
	if position < 0 || count < 0 {
		return nil, fmt.Errorf("position and number must be positive (got %d, %d)", position, count)
	}

	start := 0
	if position > 0 {
		if position > len(files) {
			return nil, fmt.Errorf("position %d is out of range (1-%d)", position, len(files))
		}
		start = position - 1
	}

	end := len(files)
	if count > 0 && start+count < end {
		end = start + count
	}

	selected := files[start:end]
	log.Info().
		Int("from", start+1).
		Int("to", start+len(selected)).
		Int("selected", len(selected)).
		Msg("Selected window from sorted video list")

	return selected, nil
}
