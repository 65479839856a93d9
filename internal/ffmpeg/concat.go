package ffmpeg

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// Concat joins the clips listed in the concat-demuxer manifest into
// outputPath using stream copy, which rewrites container packets without
// re-encoding. Progress lines from ffmpeg's stderr are forwarded to progress
// when non-nil.
func (r *Runner) Concat(ctx context.Context, listPath, outputPath string, progress ProgressFunc) error {
	args := concatArgs(listPath, outputPath)

	log.Debug().
		Str("manifest", listPath).
		Str("output", outputPath).
		Strs("args", args).
		Msg("Running ffmpeg concat")

	return r.run(ctx, r.FFmpeg, args, func(line string) {
		if progress != nil && strings.HasPrefix(line, "frame=") {
			progress(line)
		}
	})
}

// concatArgs builds the concat-demuxer invocation. -safe 0 permits absolute
// paths in the manifest.
func concatArgs(listPath, outputPath string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y", outputPath,
	}
}
