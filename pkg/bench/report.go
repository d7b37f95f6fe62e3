/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Benchmark report: per-seed times, summary statistics over the runs that
found the bug, CSV output and a rendered summary table.
*/

package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Report holds the outcome of one sweep
type Report struct {
	Fuzzer string    `json:"fuzzer"`
	Seeds  []string  `json:"seeds"`
	Values []float64 `json:"values"` // seconds to the bug, NotFound otherwise
}

// found returns the values of the runs that found the bug
func (r *Report) found() []float64 {
	var out []float64
	for _, v := range r.Values {
		if v != NotFound {
			out = append(out, v)
		}
	}
	return out
}

// Found returns how many runs found the bug
func (r *Report) Found() int {
	return len(r.found())
}

// Mean returns the mean time over runs that found the bug.
// ok is false when no run found it.
func (r *Report) Mean() (mean float64, ok bool) {
	values := r.found()
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Variance returns the population variance over runs that found the bug
func (r *Report) Variance() (float64, bool) {
	mean, ok := r.Mean()
	if !ok {
		return 0, false
	}
	values := r.found()
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values)), true
}

// CSVName returns the fuzzer base name with its extension replaced by .csv
func (r *Report) CSVName() string {
	base := filepath.Base(r.Fuzzer)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
}

// WriteCSV writes the report into dir and returns the file path
func (r *Report) WriteCSV(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, r.CSVName())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := r.writeRows(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

// writeRows writes one value per row, then mean and variance if any run found the bug
func (r *Report) writeRows(w io.Writer) error {
	cw := csv.NewWriter(w)
	for _, v := range r.Values {
		if err := cw.Write([]string{formatSeconds(v)}); err != nil {
			return err
		}
	}
	if mean, ok := r.Mean(); ok {
		variance, _ := r.Variance()
		if err := cw.Write([]string{formatSeconds(mean)}); err != nil {
			return err
		}
		if err := cw.Write([]string{formatSeconds(variance)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderTable writes a summary table of the sweep
func (r *Report) RenderTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Fuzzer", "Runs", "Found", "Mean (s)", "Variance"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	mean, variance := "-", "-"
	if m, ok := r.Mean(); ok {
		v, _ := r.Variance()
		mean = fmt.Sprintf("%.3f", m)
		variance = fmt.Sprintf("%.3f", v)
	}

	table.Append([]string{
		filepath.Base(r.Fuzzer),
		strconv.Itoa(len(r.Values)),
		strconv.Itoa(r.Found()),
		mean,
		variance,
	})
	table.Render()
}
