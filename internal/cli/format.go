package cli

import (
	"fmt"
	"time"
)

// FormatElapsed renders a wall-clock duration for the end-of-run summary.
// Stream-copy stitches often finish in seconds, so sub-minute durations keep
// a decimal; longer runs use M:SS or H:MM:SS.
func FormatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
