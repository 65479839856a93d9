package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ClipInfo holds the stream properties of a probed video file.
type ClipInfo struct {
	Duration   time.Duration
	Width      int
	Height     int
	FrameRate  float64
	Codec      string
	AudioCodec string
	BitRate    int64
	Format     string
}

// ffprobeOutput mirrors the JSON structure emitted by
// `ffprobe -print_format json -show_format -show_streams`.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

type ffprobeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

// Probe extracts stream properties from a video file using ffprobe. A probe
// failure on a particular file usually means the file is corrupt or not a
// container ffmpeg understands.
func (r *Runner) Probe(ctx context.Context, filePath string) (*ClipInfo, error) {
	path, err := exec.LookPath(r.FFprobe)
	if err != nil {
		return nil, fmt.Errorf("%s not resolvable on PATH: %w", r.FFprobe, ErrToolNotFound)
	}

	cmd := exec.CommandContext(ctx, path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s interrupted: %w", r.FFprobe, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{
				Tool:     r.FFprobe,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(string(exitErr.Stderr)),
			}
		}
		return nil, fmt.Errorf("%s failed: %w", r.FFprobe, err)
	}

	info, err := parseProbeOutput(output)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", filePath).
		Dur("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("frame_rate", info.FrameRate).
		Str("codec", info.Codec).
		Msg("Clip probed")

	return info, nil
}

func parseProbeOutput(data []byte) (*ClipInfo, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &ClipInfo{Format: probe.Format.FormatName}

	if probe.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = time.Duration(dur * float64(time.Second))
		}
	}
	if probe.Format.BitRate != "" {
		info.BitRate, _ = strconv.ParseInt(probe.Format.BitRate, 10, 64)
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width = stream.Width
				info.Height = stream.Height
			}
			if info.Codec == "" {
				info.Codec = stream.CodecName
			}
			if info.FrameRate == 0 && stream.RFrameRate != "" {
				info.FrameRate = parseFrameRate(stream.RFrameRate)
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = stream.CodecName
			}
		}
	}

	return info, nil
}

// parseFrameRate parses frame rate from ffprobe's rational format
// (e.g., "60/1" -> 60.0).
func parseFrameRate(value string) float64 {
	parts := strings.Split(value, "/")
	if len(parts) == 2 {
		num, _ := strconv.ParseFloat(parts[0], 64)
		den, _ := strconv.ParseFloat(parts[1], 64)
		if den != 0 {
			return num / den
		}
	}
	rate, _ := strconv.ParseFloat(value, 64)
	return rate
}
