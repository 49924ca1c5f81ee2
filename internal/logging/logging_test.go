package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/splatctl/internal/logging"
)

func TestSetupWritesToFileAndStderr(t *testing.T) {
	stderr := &bytes.Buffer{}
	logFile := filepath.Join(t.TempDir(), "logs", "splatctl.log")

	logger, closer, err := logging.Setup(logging.Options{File: logFile, Stderr: stderr})
	require.NoError(t, err)

	logger.Info("sampled images", "copied", 12)
	logger.Debug("hidden")
	require.NoError(t, closer())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "copied=12")
	assert.Contains(t, stderr.String(), "sampled images")
	assert.NotContains(t, stderr.String(), "hidden")
}

func TestSetupVerbose(t *testing.T) {
	stderr := &bytes.Buffer{}

	logger, _, err := logging.Setup(logging.Options{Verbose: true, Stderr: stderr})
	require.NoError(t, err)

	logger.Debug("renderer command", "cmd", "bash -c true")
	assert.Contains(t, stderr.String(), "level=DEBUG")
}
