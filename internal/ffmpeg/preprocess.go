package ffmpeg

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// PreprocessOptions configures the per-clip normalization pass that runs
// before concatenation when re-encoding is requested.
type PreprocessOptions struct {
	// Width and Height are the 4:3 target frame. Clips are scaled to the
	// target height, center-cropped to the target box, then padded.
	Width  int
	Height int

	// Number, when positive, overlays the clip index in the corner of the
	// frame.
	Number int

	VideoCodec  string
	AudioCodec  string
	Preset      string
	PixelFormat string
}

// Preprocess re-encodes a single clip into dst with a uniform 4:3 frame so
// that the subsequent stream-copy concat sees compatible streams.
func (r *Runner) Preprocess(ctx context.Context, src, dst string, opts PreprocessOptions) error {
	args := preprocessArgs(src, dst, opts)

	log.Debug().
		Str("src", src).
		Str("dst", dst).
		Strs("args", args).
		Msg("Running ffmpeg clip preprocess")

	return r.run(ctx, r.FFmpeg, args, nil)
}

// preprocessArgs builds the scale -> crop -> pad filter chain, matching the
// clip geometry ffmpeg needs for a uniform output frame.
func preprocessArgs(src, dst string, o PreprocessOptions) []string {
	vf := []string{
		fmt.Sprintf("scale=-1:%d", o.Height),
		fmt.Sprintf("crop='min(iw,%d)':'min(ih,%d)'", o.Width, o.Height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", o.Width, o.Height),
	}
	if o.Number > 0 {
		vf = append(vf, fmt.Sprintf(
			"drawtext=text=%d:fontcolor=black:fontsize=48:box=1:boxcolor=white@1:boxborderw=20:x=20:y=20",
			o.Number,
		))
	}

	return []string{
		"-loglevel", "error",
		"-y",
		"-i", src,
		"-vf", strings.Join(vf, ","),
		"-c:v", o.VideoCodec,
		"-pix_fmt", o.PixelFormat,
		"-c:a", o.AudioCodec,
		"-preset", o.Preset,
		dst,
	}
}
