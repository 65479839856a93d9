package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peteromallet/video-stitch/internal/stitch"
)

func TestUsageExitCodeDistinctFromFailureKinds(t *testing.T) {
	kinds := []stitch.Kind{
		stitch.KindNoInputs,
		stitch.KindToolNotFound,
		stitch.KindToolFailed,
		stitch.KindMissingFile,
		stitch.KindManifestWrite,
		stitch.KindTimeout,
	}

	for _, kind := range kinds {
		assert.NotEqual(t, UsageExitCode, kind.ExitCode(),
			"usage errors must not share an exit code with %q", kind)
		assert.NotZero(t, kind.ExitCode(), "%q must not look like success", kind)
	}
}
