package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "json", "console"} {
		log, err := New("debug", format, "metaload")
		require.NoError(t, err, format)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	}

	log, err := New("error", "json", "")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.WarnLevel))

	_, err = New("info", "xml", "metaload")
	assert.Error(t, err)
}
