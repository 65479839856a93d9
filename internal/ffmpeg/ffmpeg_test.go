package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatArgs(t *testing.T) {
	args := concatArgs("/tmp/list.txt", "out.mp4")

	assertPair(t, args, "-f", "concat")
	assertPair(t, args, "-safe", "0")
	assertPair(t, args, "-i", "/tmp/list.txt")
	assertPair(t, args, "-c", "copy")
	assertPair(t, args, "-y", "out.mp4")
}

func TestPreprocessArgs(t *testing.T) {
	opts := PreprocessOptions{
		Width:       1280,
		Height:      960,
		VideoCodec:  "libx264",
		AudioCodec:  "aac",
		Preset:      "medium",
		PixelFormat: "yuv420p",
	}

	args := preprocessArgs("in.mp4", "out.mp4", opts)

	assertPair(t, args, "-i", "in.mp4")
	assertPair(t, args, "-c:v", "libx264")
	assertPair(t, args, "-c:a", "aac")
	assertPair(t, args, "-preset", "medium")
	assertPair(t, args, "-pix_fmt", "yuv420p")
	assert.Equal(t, "out.mp4", args[len(args)-1])

	vf := argValue(t, args, "-vf")
	assert.Contains(t, vf, "scale=-1:960")
	assert.Contains(t, vf, "crop='min(iw,1280)':'min(ih,960)'")
	assert.Contains(t, vf, "pad=1280:960:(ow-iw)/2:(oh-ih)/2")
	assert.NotContains(t, vf, "drawtext")
}

func TestPreprocessArgsNumbered(t *testing.T) {
	opts := PreprocessOptions{
		Width: 640, Height: 480, Number: 7,
		VideoCodec: "libx264", AudioCodec: "aac", Preset: "medium", PixelFormat: "yuv420p",
	}

	vf := argValue(t, preprocessArgs("in.mp4", "out.mp4", opts), "-vf")
	assert.Contains(t, vf, "drawtext=text=7")
}

func TestCheckAvailableNotFound(t *testing.T) {
	r := &Runner{FFmpeg: "definitely-not-a-real-binary-xyz"}
	err := r.CheckAvailable()
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestConcatToolNotFound(t *testing.T) {
	r := &Runner{FFmpeg: "definitely-not-a-real-binary-xyz"}
	err := r.Concat(context.Background(), "list.txt", "out.mp4", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestProbeToolNotFound(t *testing.T) {
	r := &Runner{FFprobe: "definitely-not-a-real-binary-xyz"}
	_, err := r.Probe(context.Background(), "in.mp4")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRunCapturesExitCodeAndStderr(t *testing.T) {
	fake := fakeBinary(t, `#!/bin/sh
echo "demuxer error: invalid entry" >&2
exit 1
`)
	r := &Runner{FFmpeg: fake}

	err := r.Concat(context.Background(), "list.txt", "out.mp4", nil)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode)
	assert.Contains(t, exitErr.Stderr, "demuxer error: invalid entry")
	assert.Contains(t, exitErr.Error(), "exited with code 1")
}

func TestRunForwardsProgressLines(t *testing.T) {
	fake := fakeBinary(t, `#!/bin/sh
printf 'frame=  100 fps=30\rframe=  200 fps=30\n' >&2
exit 0
`)
	r := &Runner{FFmpeg: fake}

	var lines []string
	err := r.Concat(context.Background(), "list.txt", "out.mp4", func(line string) {
		lines = append(lines, line)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"frame=  100 fps=30", "frame=  200 fps=30"}, lines)
}

func TestRunContextTimeout(t *testing.T) {
	fake := fakeBinary(t, `#!/bin/sh
sleep 10
`)
	r := &Runner{FFmpeg: fake}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.Concat(ctx, "list.txt", "out.mp4", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// The subprocess holds the stderr pipe open for 10s; the runner must
	// give up well before that once the deadline fires.
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestParseProbeOutput(t *testing.T) {
	sample := []byte(`{
		"format": {"filename": "a.mp4", "duration": "12.480000", "bit_rate": "1048576", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"},
		"streams": [
			{"codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "30000/1001"},
			{"codec_name": "aac", "codec_type": "audio"}
		]
	}`)

	info, err := parseProbeOutput(sample)
	require.NoError(t, err)

	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.Equal(t, "h264", info.Codec)
	assert.Equal(t, "aac", info.AudioCodec)
	assert.Equal(t, int64(1048576), info.BitRate)
	assert.InDelta(t, 29.97, info.FrameRate, 0.01)
	assert.Equal(t, 12480*time.Millisecond, info.Duration)
}

func TestParseProbeOutputInvalidJSON(t *testing.T) {
	_, err := parseProbeOutput([]byte("not json"))
	assert.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"60/1", 60},
		{"30000/1001", 29.97002997002997},
		{"25", 25},
		{"0/0", 0},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, parseFrameRate(tc.in), 0.0001, "input %q", tc.in)
	}
}

// Helpers

func assertPair(t *testing.T, args []string, key, value string) {
	t.Helper()
	for i, arg := range args {
		if arg == key && i+1 < len(args) && args[i+1] == value {
			return
		}
	}
	t.Errorf("expected args to contain %s %s, got: %v", key, value, args)
}

func argValue(t *testing.T, args []string, key string) string {
	t.Helper()
	for i, arg := range args {
		if arg == key && i+1 < len(args) {
			return args[i+1]
		}
	}
	t.Fatalf("args missing %s: %v", key, args)
	return ""
}

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake shell binaries require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
