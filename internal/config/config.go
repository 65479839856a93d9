// Package config loads optional user defaults for the stitcher from a
// .stitch.yaml file. The file is looked up in the home directory first, then
// the working directory; the first one found wins. Missing files are fine,
// every field has a compiled-in default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// EncodeSettings holds the codec parameters used when clips are re-encoded
// before concatenation. Stream-copy concat never touches these.
type EncodeSettings struct {
	VideoCodec  string `yaml:"video_codec"`
	AudioCodec  string `yaml:"audio_codec"`
	Preset      string `yaml:"preset"`
	PixelFormat string `yaml:"pixel_format"`
}

// Config is the full set of tunable defaults.
type Config struct {
	// Extensions is the set of video file extensions matched during a
	// directory scan, without leading dots.
	Extensions []string `yaml:"extensions"`

	// Sort is the ordering policy: "lex" or "natural".
	Sort string `yaml:"sort"`

	// Resolution is the 4:3 target used by --re-encode, as WIDTHxHEIGHT.
	Resolution string `yaml:"resolution"`

	// ProbeSample caps how many inputs the compatibility check probes.
	ProbeSample int `yaml:"probe_sample"`

	Encode EncodeSettings `yaml:"encode"`
}

// Default returns the compiled-in configuration. The extension set and encode
// settings match what the tool has always shipped with.
func Default() Config {
	return Config{
		Extensions:  []string{"mp4", "avi", "mov", "mkv", "flv", "wmv", "m4v", "webm"},
		Sort:        "lex",
		Resolution:  "1280x960",
		ProbeSample: 10,
		Encode: EncodeSettings{
			VideoCodec:  "libx264",
			AudioCodec:  "aac",
			Preset:      "medium",
			PixelFormat: "yuv420p",
		},
	}
}

// Load returns Default overlaid with the first .stitch.yaml found in the home
// directory or the working directory. A missing file is not an error.
func Load() (Config, error) {
	cfg := Default()

	var paths []string
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".stitch.yaml"))
	}
	paths = append(paths, filepath.Join(".", ".stitch.yaml"))

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := parseYAMLFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("error parsing config file (%s): %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
		break
	}

	return cfg, nil
}

func parseYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error unmarshalling YAML: %w", err)
	}

	return nil
}

// ParseResolution parses a WIDTHxHEIGHT string and coerces it to 4:3 relative
// to the height when the given aspect does not match, preserving the behavior
// of forcing a 4:3 frame.
func ParseResolution(s string) (width, height int, err error) {
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q: use WIDTHxHEIGHT (e.g., 1280x960)", s)
	}

	width, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution width %q: %w", parts[0], err)
	}
	height, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution height %q: %w", parts[1], err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q: dimensions must be positive", s)
	}

	if width*3 != height*4 {
		log.Warn().
			Str("resolution", s).
			Msg("Resolution is not 4:3, using 4:3 equivalent of height")
		width = height * 4 / 3
	}

	return width, height, nil
}
