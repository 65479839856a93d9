package stitch

import (
	"context"
	"errors"
	"fmt"

	"github.com/peteromallet/video-stitch/internal/ffmpeg"
	"github.com/peteromallet/video-stitch/internal/scanner"
)

// Kind classifies a run failure. Each kind maps to a distinct process exit
// code so callers and scripts can tell failure modes apart.
type Kind int

const (
	// KindNoInputs: the pattern or list resolved to zero video files.
	KindNoInputs Kind = iota + 1

	// KindToolNotFound: the ffmpeg binary is not resolvable on PATH.
	KindToolNotFound

	// KindToolFailed: ffmpeg ran and exited non-zero.
	KindToolFailed

	// KindMissingFile: an explicitly listed input does not exist.
	KindMissingFile

	// KindManifestWrite: the temporary manifest or work directory could not
	// be created or written.
	KindManifestWrite

	// KindTimeout: the configured maximum run duration elapsed.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNoInputs:
		return "no inputs found"
	case KindToolNotFound:
		return "external tool not found"
	case KindToolFailed:
		return "external tool failed"
	case KindMissingFile:
		return "missing input file"
	case KindManifestWrite:
		return "manifest write error"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// ExitCode returns the process exit code for this failure kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindNoInputs:
		return 1
	case KindToolNotFound:
		return 2
	case KindToolFailed:
		return 3
	case KindMissingFile:
		return 4
	case KindManifestWrite:
		return 5
	case KindTimeout:
		return 6
	}
	return 7
}

// Error is the typed failure surfaced by Run. Callers switch on Kind to pick
// messaging and exit codes.
type Error struct {
	Kind Kind
	Err  error

	// ExitStatus and Stderr are populated for KindToolFailed.
	ExitStatus int
	Stderr     string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps errors from the scanner and ffmpeg layers onto the run error
// taxonomy. Errors that fit no kind pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var runErr *Error
	if errors.As(err, &runErr) {
		return err
	}

	var missingErr *scanner.MissingFileError
	var exitErr *ffmpeg.ExitError
	switch {
	case errors.Is(err, scanner.ErrNoInputs):
		return &Error{Kind: KindNoInputs, Err: err}
	case errors.As(err, &missingErr):
		return &Error{Kind: KindMissingFile, Err: err}
	case errors.Is(err, ffmpeg.ErrToolNotFound):
		return &Error{Kind: KindToolNotFound, Err: err}
	case errors.As(err, &exitErr):
		return &Error{Kind: KindToolFailed, Err: err, ExitStatus: exitErr.ExitCode, Stderr: exitErr.Stderr}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Err: err}
	}
	return err
}
