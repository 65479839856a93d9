// Package ffmpeg invokes the external ffmpeg and ffprobe binaries. The
// binaries are treated as opaque, installed dependencies resolved from PATH;
// everything codec-related is delegated to them.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrToolNotFound is wrapped by every failure to resolve ffmpeg or ffprobe
// on the execution PATH.
var ErrToolNotFound = errors.New("external tool not found")

// ExitError reports a subprocess that exited non-zero, carrying the exit
// code and the tail of its stderr output for diagnostics.
type ExitError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + lastLine(e.Stderr)
	}
	return msg
}

// ProgressFunc receives raw ffmpeg progress lines (the `frame=...` updates
// ffmpeg writes to stderr during long operations).
type ProgressFunc func(line string)

// Runner invokes ffmpeg and ffprobe. The zero value is not useful; use
// NewRunner. Binary fields may be overridden with explicit paths, which is
// how tests substitute fakes.
type Runner struct {
	FFmpeg  string
	FFprobe string
}

// NewRunner returns a Runner that resolves the standard binary names from PATH.
func NewRunner() *Runner {
	return &Runner{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
}

// CheckAvailable verifies that the ffmpeg binary is resolvable on PATH.
// Returns an error wrapping ErrToolNotFound when it is not.
func (r *Runner) CheckAvailable() error {
	path, err := exec.LookPath(r.FFmpeg)
	if err != nil {
		return fmt.Errorf("%s not resolvable (install FFmpeg: brew install ffmpeg on macOS, apt install ffmpeg on Linux): %w", r.FFmpeg, ErrToolNotFound)
	}
	log.Debug().Str("path", path).Msg("ffmpeg found")
	return nil
}

// stderrTailLines bounds how much subprocess stderr is retained for error
// reporting. ffmpeg can be extremely chatty on long inputs.
const stderrTailLines = 30

// run executes the binary with the given arguments, streaming stderr line by
// line to onLine while retaining a bounded tail for error reporting.
func (r *Runner) run(ctx context.Context, bin string, args []string, onLine func(string)) error {
	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%s not resolvable on PATH: %w", bin, ErrToolNotFound)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = nil
	// Without a WaitDelay, Wait blocks until the stderr pipe closes even
	// after the context kills the process.
	cmd.WaitDelay = time.Second

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", bin, err)
	}

	var tail []string
	sc := bufio.NewScanner(stderr)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(scanProgressLines)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > stderrTailLines {
			tail = tail[1:]
		}
		if onLine != nil {
			onLine(line)
		}
	}

	waitErr := cmd.Wait()
	if waitErr == nil {
		return nil
	}

	// Context expiry kills the subprocess; report the cause, not the kill.
	if ctx.Err() != nil {
		return fmt.Errorf("%s interrupted: %w", bin, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ExitError{
			Tool:     bin,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.Join(tail, "\n"),
		}
	}
	return fmt.Errorf("%s failed: %w", bin, waitErr)
}

// scanProgressLines splits on \n like bufio.ScanLines but also on \r, which
// ffmpeg uses to redraw its progress line in place.
func scanProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return lines[len(lines)-1]
}
