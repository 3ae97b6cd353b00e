package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/newsclf/pkg/log"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestToLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, log.ToLogLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, log.ToLogLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, log.ToLogLevel("verbose"))
	assert.Equal(t, zerolog.InfoLevel, log.ToLogLevel(""))
}

func TestProviderFields(t *testing.T) {
	var buf bytes.Buffer
	p := log.NewZerologProviderWithWriter(&buf, zerolog.InfoLevel)

	logger := p.GetLoggerWithName("LogisticRegression").With(log.PhaseKey, log.PhaseTraining)
	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, 160,
		log.FeaturesKey, 5000,
	)
	logger.Debug("dropped by level")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "Training started", line["message"])
	assert.Equal(t, "LogisticRegression", line[log.ComponentKey])
	assert.Equal(t, log.PhaseTraining, line[log.PhaseKey])
	assert.Equal(t, log.OperationFit, line[log.OperationKey])
	assert.EqualValues(t, 160, line[log.SamplesKey])
	assert.EqualValues(t, 5000, line[log.FeaturesKey])
}

func TestErrorAttachesLeadingError(t *testing.T) {
	var buf bytes.Buffer
	p := log.NewZerologProviderWithWriter(&buf, zerolog.DebugLevel)

	p.GetLogger().Error("save failed", errors.New("disk full"), log.PathKey, "best_model.gob")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "disk full", lines[0]["error"])
	assert.Equal(t, "best_model.gob", lines[0][log.PathKey])
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	p := log.NewZerologProviderWithWriter(&buf, zerolog.InfoLevel)
	p.SetLevel(zerolog.ErrorLevel)

	p.GetLogger().Info("hidden")
	p.GetLogger().Error("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}
