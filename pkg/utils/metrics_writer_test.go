/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics_writer_test.go
Description: Tests for the metrics writer.
*/

package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMetricsResult(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteMetricsResult(dir, "campaign", "1.0.0", map[string]int{"paths": 3})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "campaign"), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_campaign_v1.0.0.json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 3, got["paths"])
}

func TestWriteMetricsResultErrors(t *testing.T) {
	_, err := WriteMetricsResult(t.TempDir(), "", "1", nil)
	assert.Error(t, err)

	_, err = WriteMetricsResult(t.TempDir(), "bad", "1", func() {})
	assert.Error(t, err)
}
