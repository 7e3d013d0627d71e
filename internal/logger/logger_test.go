package logger

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	})

	path := filepath.Join(t.TempDir(), "minter.log")
	logger, closer, err := Init(Options{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, logger.Formatter)

	logger.WithField("submission_id", "abc").Info("mint pending")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"submission_id":"abc"`)
}

func TestInit_Invalid(t *testing.T) {
	_, _, err := Init(Options{Level: "loud"})
	assert.Error(t, err)

	_, _, err = Init(Options{Format: "xml"})
	assert.Error(t, err)
}
