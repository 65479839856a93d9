package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/peteromallet/video-stitch/internal/stitch"
)

// UsageExitCode is the exit code for usage and configuration errors. It sits
// outside the pipeline failure range so scripts can tell a bad invocation
// apart from a failed stitch.
const UsageExitCode = 7

// FatalUsage reports a usage or configuration error and exits with
// UsageExitCode.
func FatalUsage(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	os.Exit(UsageExitCode)
}

// ValidateAndResolveDirectory checks that the path exists and is a directory,
// then returns the absolute path. Exits with the usage code on failure.
func ValidateAndResolveDirectory(dirPath string) string {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("path", dirPath).Msg("Directory not found")
		} else {
			log.Error().Err(err).Str("path", dirPath).Msg("Failed to access directory")
		}
		os.Exit(UsageExitCode)
	}
	if !info.IsDir() {
		log.Error().Str("path", dirPath).Msg("Path is not a directory")
		os.Exit(UsageExitCode)
	}

	absPath, err := filepath.Abs(dirPath)
	if err == nil {
		dirPath = absPath
	}

	return dirPath
}

// HandleRunError reports a pipeline failure and exits with the exit code for
// its kind. Failures outside the taxonomy (bad flag combinations, malformed
// config) exit with the generic usage code.
func HandleRunError(err error) {
	var runErr *stitch.Error
	if errors.As(err, &runErr) {
		event := log.Error().Err(err)
		switch runErr.Kind {
		case stitch.KindNoInputs:
			event.Msg("No video files found")
		case stitch.KindToolNotFound:
			event.Msg("ffmpeg is not installed or not in PATH. Install it first: brew install ffmpeg (macOS), apt install ffmpeg (Ubuntu), or download from https://ffmpeg.org/")
		case stitch.KindToolFailed:
			if runErr.Stderr != "" {
				event = event.Str("ffmpeg_output", runErr.Stderr).Int("ffmpeg_exit_code", runErr.ExitStatus)
			}
			event.Msg("ffmpeg failed")
		case stitch.KindMissingFile:
			event.Msg("Input file does not exist")
		case stitch.KindManifestWrite:
			event.Msg("Could not write the temporary concat list")
		case stitch.KindTimeout:
			event.Msg("Run exceeded the configured timeout")
		default:
			event.Msg("Stitching failed")
		}
		os.Exit(runErr.Kind.ExitCode())
	}

	log.Error().Err(err).Msg("Stitching failed")
	os.Exit(UsageExitCode)
}
