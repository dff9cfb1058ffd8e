package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetLevelAppliesToExistingAndNewLoggers(t *testing.T) {
	t.Cleanup(func() { _ = SetLevel("info") })

	existing := New("logging-test-existing")
	assert.False(t, existing.Desugar().Core().Enabled(zapcore.DebugLevel))

	assert.NoError(t, SetLevel("debug"))
	assert.True(t, existing.Desugar().Core().Enabled(zapcore.DebugLevel))

	created := New("logging-test-created")
	assert.True(t, created.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.Equal(t, zapcore.DebugLevel, GetLeveler().GetLevel("logging-test-created"))
}

func TestSetLevelForOneLogger(t *testing.T) {
	l := New("logging-test-single")
	GetLeveler().SetLevel("logging-test-single", zapcore.ErrorLevel)
	assert.False(t, l.Desugar().Core().Enabled(zapcore.WarnLevel))
	assert.Equal(t, zapcore.InfoLevel, GetLeveler().GetLevel("logging-test-unknown"))
}

func TestSetLevelRejectsUnknownLevels(t *testing.T) {
	assert.Error(t, SetLevel("loud"))
}
