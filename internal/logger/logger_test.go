package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, json := range []bool{true, false} {
		for _, debug := range []bool{true, false} {
			log, err := New(json, debug)
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.Equal(t, debug, log.Core().Enabled(zapcore.DebugLevel))
		}
	}
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "short", TruncateForLog("short", 10))
	assert.Equal(t, "abc...", TruncateForLog("abcdefgh", 3))
	assert.Equal(t, "", TruncateForLog("anything", 0))
	assert.Equal(t, "trimmed", TruncateForLog("  trimmed  ", 10))

	long := strings.Repeat("йцук", 100)
	out := TruncateForLog(long, 8)
	assert.Equal(t, []rune(long)[:8], []rune(strings.TrimSuffix(out, "...")))
}
