package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/peteromallet/video-stitch/internal/cli"
	"github.com/peteromallet/video-stitch/internal/config"
	"github.com/peteromallet/video-stitch/internal/ffmpeg"
	"github.com/peteromallet/video-stitch/internal/logging"
	"github.com/peteromallet/video-stitch/internal/scanner"
	"github.com/peteromallet/video-stitch/internal/stitch"
)

const defaultOutput = "stitched_video.mp4"

// CLI flags
var (
	targetFlag     string
	outputFlag     string
	inputsFlag     []string
	sortFlag       string
	positionFlag   int
	numberFlag     int
	reEncodeFlag   bool
	numberedFlag   bool
	resolutionFlag string
	noCheckFlag    bool
	timeoutFlag    time.Duration
	noProgressFlag bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "stitch [dir]",
	Short: "Concatenate video files with ffmpeg",
	Long: `Stitch finds video files under a directory (or takes an explicit list),
orders them deterministically, and joins them into a single output file using
ffmpeg's concat demuxer.

By default clips are joined with stream copy, which is fast and lossless but
requires compatible streams. Pass --re-encode to normalize every clip to a
4:3 frame first, optionally overlaying each clip's index with --numbered.

Examples:
  stitch ./clips -o weekend.mp4
  stitch -t ./clips --sort natural
  stitch -i intro.mp4 -i main.mp4 -i outro.mp4 -o full.mp4
  stitch ./clips --position 10 --number 25 --numbered
  stitch  # Interactive mode - prompts for a directory`,
	Args: cobra.MaximumNArgs(1),
	Run:  runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&targetFlag, "target", "t", "", "Directory containing video files (overrides positional dir)")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", defaultOutput, "Output video file name")
	rootCmd.Flags().StringArrayVarP(&inputsFlag, "input", "i", nil, "Explicit input file, in order (repeatable; bypasses the directory scan)")
	rootCmd.Flags().StringVar(&sortFlag, "sort", "", "Ordering policy for scanned files: lex or natural (default lex)")
	rootCmd.Flags().IntVar(&positionFlag, "position", 0, "Starting position in the sorted video list (1-based)")
	rootCmd.Flags().IntVar(&numberFlag, "number", 0, "Number of videos to take from the position")
	rootCmd.Flags().BoolVar(&reEncodeFlag, "re-encode", false, "Re-encode every clip to a uniform 4:3 frame before concatenation")
	rootCmd.Flags().BoolVar(&numberedFlag, "numbered", false, "Overlay the clip index on every clip (implies --re-encode)")
	rootCmd.Flags().StringVar(&resolutionFlag, "resolution", "", "4:3 resolution for --re-encode in WIDTHxHEIGHT format (default 1280x960)")
	rootCmd.Flags().BoolVar(&noCheckFlag, "no-check", false, "Skip the ffprobe compatibility check")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Abort the run after this duration (0 = no limit)")
	rootCmd.Flags().BoolVar(&noProgressFlag, "no-progress", false, "Disable progress display")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.UsageExitCode)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		cli.FatalUsage(err, "Failed to load configuration")
	}

	opts, dirPath := buildOptions(cfg, args)

	// Interrupts cancel the run; deferred cleanup in the pipeline still runs.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printBanner(opts, dirPath)

	start := time.Now()
	if err := stitch.Run(ctx, ffmpeg.NewRunner(), opts); err != nil {
		cli.HandleRunError(err)
	}

	fmt.Printf("✅ Done in %s\n", cli.FormatElapsed(time.Since(start)))
	fmt.Printf("📼 Output saved as: %s\n", opts.Output)
}

// buildOptions merges config defaults, flags, and arguments into run options.
func buildOptions(cfg config.Config, args []string) (stitch.Options, string) {
	sortName := sortFlag
	if sortName == "" {
		sortName = cfg.Sort
	}
	sortPolicy, err := scanner.ParseSortPolicy(sortName)
	if err != nil {
		cli.FatalUsage(err, "Invalid --sort value")
	}

	resolution := resolutionFlag
	if resolution == "" {
		resolution = cfg.Resolution
	}
	width, height, err := config.ParseResolution(resolution)
	if err != nil {
		cli.FatalUsage(err, "Invalid --resolution value")
	}

	opts := stitch.Options{
		Inputs: inputsFlag,
		Scan: scanner.Options{
			Extensions: cfg.Extensions,
			Sort:       sortPolicy,
			Position:   positionFlag,
			Count:      numberFlag,
		},
		Output:      resolveOutputName(),
		ReEncode:    reEncodeFlag,
		Numbered:    numberedFlag,
		Width:       width,
		Height:      height,
		Encode:      cfg.Encode,
		SkipCheck:   noCheckFlag,
		ProbeSample: cfg.ProbeSample,
		Timeout:     timeoutFlag,
		Progress:    !noProgressFlag,
	}

	var dirPath string
	if len(opts.Inputs) == 0 {
		dirPath = targetFlag
		if dirPath == "" && len(args) > 0 {
			dirPath = args[0]
		}
		if dirPath == "" {
			dirPath = cli.PromptForDirectory()
		}
		opts.Dir = cli.ValidateAndResolveDirectory(dirPath)
	} else if positionFlag > 0 || numberFlag > 0 {
		cli.FatalUsage(nil, "--position and --number only apply to directory scans, not explicit --input lists")
	}

	return opts, dirPath
}

// resolveOutputName derives the output file name. When the default name is
// used together with --position/--number, the window is baked into the name
// so sliced runs don't overwrite each other.
func resolveOutputName() string {
	if outputFlag != defaultOutput || (positionFlag == 0 && numberFlag == 0) {
		return outputFlag
	}

	parts := []string{"stitched-video"}
	if positionFlag > 0 {
		parts = append(parts, fmt.Sprintf("position-%d", positionFlag))
	}
	if numberFlag > 0 {
		parts = append(parts, fmt.Sprintf("number-%d", numberFlag))
	}
	name := strings.Join(parts, "_") + ".mp4"

	log.Info().Str("output", name).Msg("Auto-generated output filename")
	return name
}

func printBanner(opts stitch.Options, dirPath string) {
	fmt.Println("🎬 Video Stitching")
	fmt.Println("============================================")
	if len(opts.Inputs) > 0 {
		fmt.Printf("Inputs: %d files (explicit order)\n", len(opts.Inputs))
	} else {
		fmt.Printf("Directory: %s\n", dirPath)
		fmt.Printf("Order: %s\n", opts.Scan.Sort)
	}
	if opts.ReEncode || opts.Numbered {
		fmt.Printf("Re-encode: %dx%d", opts.Width, opts.Height)
		if opts.Numbered {
			fmt.Print(" (numbered)")
		}
		fmt.Println()
	} else {
		fmt.Println("Mode: stream copy")
	}
	fmt.Printf("Output: %s\n", opts.Output)
	fmt.Println("--------------------------------------------")
}
