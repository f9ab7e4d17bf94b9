package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("debug", "json", &buf)

	ForLookup(log, "27ABCDE1234F1Z5", logrus.Fields{"attempt": 2}).Info("attempt started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "attempt started", entry["msg"])
	assert.Equal(t, "27ABCDE1234F1Z5", entry["gstin"])
	assert.EqualValues(t, 2, entry["attempt"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewWithOutputUnknownLevel(t *testing.T) {
	log := NewWithOutput("verbose", "text", &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
