/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger_test.go
Description: Tests for logger configuration, file output, retention and formatting.
*/

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Format = "xml"
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Level = "loud"
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.OutputDir = t.TempDir()
	bad.MaxFiles = 0
	assert.Error(t, bad.Validate())
}

func TestLoggerConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&LoggerConfig{
		Level:   LogLevelDebug,
		Format:  LogFormatCustom,
		Console: &buf,
	})
	require.NoError(t, err)
	defer l.Close()

	l.LogNewPath("0123456789abcdef", "(1,2,0,0)", 3, nil)
	out := buf.String()
	assert.Contains(t, out, "INFO [PATH] New path discovered")
	assert.Contains(t, out, "population=3 seed_id=01234567 signature=(1,2,0,0)")
	assert.Empty(t, l.FilePath())
}

func TestLoggerFileOutputAndRetention(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		name := filepath.Join(dir, filePrefix+"2000-01-0"+string(rune('1'+i))+"_00-00-00.log")
		require.NoError(t, os.WriteFile(name, []byte("old\n"), 0644))
	}

	var console bytes.Buffer
	l, err := NewLogger(&LoggerConfig{
		Level:     LogLevelInfo,
		Format:    LogFormatJSON,
		OutputDir: dir,
		MaxFiles:  2,
		Console:   &console,
	})
	require.NoError(t, err)

	l.LogCrash("fuzz!", "bug found", logrus.Fields{"target": "demo"})
	path := l.FilePath()
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Crash detected"`)
	assert.Contains(t, console.String(), `"target":"demo"`)

	files, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.log"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files, path)
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: LogFormatText, Console: &buf})
	require.NoError(t, err)

	l.LogExecution("abc", "PASS", time.Millisecond, nil)
	assert.Empty(t, buf.String())

	l.LogStats(10, 2, 0, 5.5, nil)
	assert.Contains(t, buf.String(), "Statistics update")
}

func TestFuzzerFormatter(t *testing.T) {
	f := &FuzzerFormatter{}
	entry := &logrus.Entry{
		Message: "Execution finished",
		Level:   logrus.DebugLevel,
		Data: logrus.Fields{
			"input":    "ab",
			"duration": 2 * time.Millisecond,
		},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, `DEBUG [EXEC] Execution finished duration=2ms input="ab"`+"\n", string(out))

	entry.Message = "Something else"
	out, err = f.Format(entry)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "DEBUG Something else"))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "12.50/sec", formatValue("executions_per_sec", 12.5))
	assert.Equal(t, "[32 bytes]", formatValue("data", make([]byte, 32)))
	assert.Equal(t, "0a", formatValue("data", []byte{10}))
}
