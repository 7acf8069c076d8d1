package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewBuildsBothModes(t *testing.T) {
	t.Parallel()

	for _, development := range []bool{true, false} {
		logger, err := New(development)
		require.NoError(t, err)
		require.NotNil(t, logger)

		// Info must be enabled in both modes; components log at Info.
		named := logger.Named("crawler")
		assert.NotNil(t, named.Check(zapcore.InfoLevel, "logger ready"))
		_ = logger.Sync()
	}
}
