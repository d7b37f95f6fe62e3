/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics_writer.go
Description: Utility for writing campaign and benchmark results to the metrics directory.
Handles timestamped, versioned, and type-specific subdirectory naming.
Ensures directories exist and writes JSON files for easy analysis.
*/

package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultMetricsDir is used when no base directory is configured
const DefaultMetricsDir = "metrics"

// WriteMetricsResult writes result as JSON to <baseDir>/<resultType>/ with a timestamped,
// versioned file name and returns the path written.
func WriteMetricsResult(baseDir string, resultType string, version string, result interface{}) (string, error) {
	if baseDir == "" {
		baseDir = DefaultMetricsDir
	}
	if resultType == "" {
		return "", fmt.Errorf("result type must not be empty")
	}

	metricsDir := filepath.Join(baseDir, resultType)
	if err := os.MkdirAll(metricsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create metrics directory: %w", err)
	}

	// e.g. 2024-06-11_01-30-00_campaign_v1.0.0.json
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s_v%s.json", timestamp, resultType, version)
	filePath := filepath.Join(metricsDir, filename)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metrics file: %w", err)
	}

	return filePath, nil
}
