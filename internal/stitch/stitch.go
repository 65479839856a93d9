// Package stitch runs the concatenation pipeline: resolve inputs, optionally
// probe and re-encode them, write the concat manifest, invoke ffmpeg, and
// release every temporary resource on the way out.
//
// Each run is self-contained: no state survives between invocations, and two
// simultaneous runs cannot collide because every temporary resource carries a
// unique name.
package stitch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/peteromallet/video-stitch/internal/config"
	"github.com/peteromallet/video-stitch/internal/ffmpeg"
	"github.com/peteromallet/video-stitch/internal/manifest"
	"github.com/peteromallet/video-stitch/internal/scanner"
)

// Processor is the capability boundary to the external video tool. The real
// implementation shells out to ffmpeg; tests substitute a fake.
type Processor interface {
	CheckAvailable() error
	Probe(ctx context.Context, path string) (*ffmpeg.ClipInfo, error)
	Preprocess(ctx context.Context, src, dst string, opts ffmpeg.PreprocessOptions) error
	Concat(ctx context.Context, listPath, outputPath string, progress ffmpeg.ProgressFunc) error
}

// Options configures a single run.
type Options struct {
	// Inputs is an explicit ordered list of video files. When set, Dir and
	// Scan are ignored and the given order is preserved.
	Inputs []string

	// Dir is the directory to scan for video files.
	Dir string

	// Scan configures the directory walk and ordering.
	Scan scanner.Options

	// Output is the destination video path.
	Output string

	// ReEncode enables the per-clip normalization pass before concat.
	// Numbered overlays each clip's index and implies ReEncode.
	ReEncode bool
	Numbered bool

	// Width and Height are the 4:3 target frame for re-encoding.
	Width  int
	Height int

	// Encode holds the codec settings used by the re-encode pass.
	Encode config.EncodeSettings

	// SkipCheck disables the ffprobe compatibility sample.
	SkipCheck bool

	// ProbeSample caps how many inputs the compatibility check probes.
	ProbeSample int

	// Timeout bounds the whole run. 0 means no limit.
	Timeout time.Duration

	// Progress enables interactive progress rendering on stderr.
	Progress bool
}

// Run executes the pipeline to completion. The temporary manifest and any
// re-encode work directory are released on every exit path; on interrupt the
// caller's context cancellation propagates into the subprocess and the
// deferred releases still run.
func Run(ctx context.Context, proc Processor, opts Options) error {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID[:8]).Logger()
	start := time.Now()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// Resolving
	var inputs []string
	var err error
	if len(opts.Inputs) > 0 {
		inputs, err = scanner.Resolve(opts.Inputs)
	} else {
		inputs, err = scanner.Scan(opts.Dir, opts.Scan)
	}
	if err != nil {
		return classify(err)
	}
	logger.Info().Int("inputs", len(inputs)).Str("output", opts.Output).Msg("Inputs resolved")

	if err := proc.CheckAvailable(); err != nil {
		return classify(err)
	}

	// Probing (sample only, advisory)
	if !opts.SkipCheck {
		if err := probeSample(ctx, proc, inputs, opts.ProbeSample, logger); err != nil {
			return classify(err)
		}
	}

	// Preprocessing (optional)
	if opts.ReEncode || opts.Numbered {
		var workDir string
		inputs, workDir, err = preprocessClips(ctx, proc, inputs, opts, runID, logger)
		if workDir != "" {
			defer os.RemoveAll(workDir)
		}
		if err != nil {
			return classify(err)
		}
	}

	// BuildingManifest
	m, err := manifest.Write(inputs)
	if err != nil {
		return &Error{Kind: KindManifestWrite, Err: err}
	}
	defer m.Release()

	// Invoking
	logger.Info().Str("manifest", m.Path).Msg("Concatenating clips")
	if err := proc.Concat(ctx, m.Path, opts.Output, concatProgress(opts.Progress)); err != nil {
		return classify(err)
	}

	elapsed := time.Since(start)
	done := logger.Info().Str("output", opts.Output).Dur("elapsed", elapsed)
	if info, statErr := os.Stat(opts.Output); statErr == nil {
		done = done.Float64("size_mb", float64(info.Size())/(1024*1024))
	}
	done.Msg("Stitching complete")

	return nil
}

// probeSample runs the ffprobe compatibility check over a bounded prefix of
// the inputs. Incompatible files are reported, not rejected; a missing
// ffprobe binary downgrades the check to a warning because the concat itself
// only needs ffmpeg.
func probeSample(ctx context.Context, proc Processor, inputs []string, sample int, logger zerolog.Logger) error {
	if sample <= 0 {
		sample = 10
	}
	if sample > len(inputs) {
		sample = len(inputs)
	}

	incompatible := 0
	for _, path := range inputs[:sample] {
		if _, err := proc.Probe(ctx, path); err != nil {
			if errors.Is(err, ffmpeg.ErrToolNotFound) {
				logger.Warn().Msg("ffprobe not available, skipping compatibility check")
				return nil
			}
			if ctx.Err() != nil {
				return err
			}
			incompatible++
			logger.Warn().Err(err).Str("path", path).Msg("Clip failed compatibility probe")
		}
	}

	if incompatible > 0 {
		logger.Warn().Int("count", incompatible).Msg("Found potentially incompatible files")
	} else {
		logger.Debug().Int("sampled", sample).Msg("Compatibility check passed")
	}
	return nil
}

// preprocessClips re-encodes every input into a uniform 4:3 frame inside a
// per-run work directory and returns the processed paths. Clips that fail to
// re-encode are skipped with a warning; the run aborts only when nothing
// survives.
func preprocessClips(ctx context.Context, proc Processor, inputs []string, opts Options, runID string, logger zerolog.Logger) ([]string, string, error) {
	workDir, err := os.MkdirTemp("", "stitch-work-"+runID[:8]+"-*")
	if err != nil {
		return nil, "", &Error{Kind: KindManifestWrite, Err: fmt.Errorf("failed to create work directory: %w", err)}
	}

	// The starting position offsets the overlay numbers so a sliced run
	// shows each clip's index within the full sorted list.
	offset := 0
	if len(opts.Inputs) == 0 && opts.Scan.Position > 0 {
		offset = opts.Scan.Position - 1
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.NewOptions(len(inputs),
			progressbar.OptionSetDescription("Re-encoding clips"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
	}

	logger.Info().
		Int("clips", len(inputs)).
		Int("width", opts.Width).
		Int("height", opts.Height).
		Bool("numbered", opts.Numbered).
		Msg("Re-encoding clips before concat")

	processed := make([]string, 0, len(inputs))
	for i, src := range inputs {
		dst := filepath.Join(workDir, fmt.Sprintf("processed_%05d.mp4", i+1))

		ppOpts := ffmpeg.PreprocessOptions{
			Width:       opts.Width,
			Height:      opts.Height,
			VideoCodec:  opts.Encode.VideoCodec,
			AudioCodec:  opts.Encode.AudioCodec,
			Preset:      opts.Encode.Preset,
			PixelFormat: opts.Encode.PixelFormat,
		}
		if opts.Numbered {
			ppOpts.Number = offset + i + 1
		}

		if err := proc.Preprocess(ctx, src, dst, ppOpts); err != nil {
			if ctx.Err() != nil || errors.Is(err, ffmpeg.ErrToolNotFound) {
				return nil, workDir, err
			}
			logger.Warn().Err(err).Str("src", src).Msg("Failed to re-encode clip, skipping")
			continue
		}
		processed = append(processed, dst)
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	logger.Info().
		Int("processed", len(processed)).
		Int("total", len(inputs)).
		Msg("Clip re-encoding complete")

	if len(processed) == 0 {
		return nil, workDir, &Error{Kind: KindToolFailed, Err: errors.New("no clips could be re-encoded")}
	}
	return processed, workDir, nil
}

// concatProgress returns a ProgressFunc that renders ffmpeg's frame counter
// as a spinner, or nil when progress display is off.
func concatProgress(enabled bool) ffmpeg.ProgressFunc {
	if !enabled {
		return nil
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Concatenating clips"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return func(line string) {
		bar.Describe(line)
		bar.Add(1)
	}
}
