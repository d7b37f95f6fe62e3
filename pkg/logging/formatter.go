/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Custom log formatters for the Akaylee Greybox fuzzer. Renders single-line
entries with optional timestamp, caller and colours, sorted structured fields and a
fuzzer-specific prefix derived from the message.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

var (
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	callerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	prefixStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	keyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	levelStyles = map[logrus.Level]lipgloss.Style{
		logrus.TraceLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		logrus.DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		logrus.InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		logrus.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		logrus.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		logrus.FatalLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		logrus.PanicLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	}
)

// CustomFormatter renders compact single-line entries
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

func (f *CustomFormatter) paint(s lipgloss.Style, text string) string {
	if !f.Colors {
		return text
	}
	return s.Render(text)
}

// Format formats a log entry
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return f.format(entry, ""), nil
}

func (f *CustomFormatter) format(entry *logrus.Entry, prefix string) []byte {
	var output strings.Builder

	if f.Timestamp {
		output.WriteString(f.paint(timestampStyle, entry.Time.Format("2006-01-02 15:04:05.000")))
		output.WriteByte(' ')
	}

	level := strings.ToUpper(entry.Level.String())
	output.WriteString(f.paint(levelStyles[entry.Level], level))
	output.WriteByte(' ')

	if prefix != "" {
		output.WriteString(f.paint(prefixStyle, "["+prefix+"]"))
		output.WriteByte(' ')
	}

	if f.Caller && entry.HasCaller() {
		caller := fmt.Sprintf("[%s:%d]", entry.Caller.File, entry.Caller.Line)
		output.WriteString(f.paint(callerStyle, caller))
		output.WriteByte(' ')
	}

	output.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		output.WriteByte(' ')
		output.WriteString(f.formatFields(entry.Data))
	}

	output.WriteByte('\n')
	return []byte(output.String())
}

// formatFields renders key=value pairs in key order
func (f *CustomFormatter) formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, f.paint(keyStyle, key)+"="+f.paint(valueStyle, formatValue(key, fields[key])))
	}
	return strings.Join(parts, " ")
}

// formatValue formats a field value appropriately
func formatValue(key string, value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("15:04:05.000")
	case float64:
		if key == "executions_per_sec" {
			return fmt.Sprintf("%.2f/sec", v)
		}
		return fmt.Sprintf("%.4g", v)
	case string:
		if key == "seed_id" && len(v) > 8 {
			return v[:8]
		}
		if len(v) > 60 {
			return fmt.Sprintf("%q...", v[:60])
		}
		if key == "input" {
			return fmt.Sprintf("%q", v)
		}
		return v
	case []byte:
		if len(v) > 20 {
			return fmt.Sprintf("[%d bytes]", len(v))
		}
		return fmt.Sprintf("%x", v)
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FuzzerFormatter adds a short category prefix to fuzzer messages
type FuzzerFormatter struct {
	CustomFormatter
}

// Format formats fuzzer-specific log entries
func (f *FuzzerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return f.format(entry, fuzzerPrefix(entry.Message)), nil
}

// fuzzerPrefix returns a prefix based on the log message
func fuzzerPrefix(message string) string {
	switch {
	case strings.Contains(message, "Execution"):
		return "EXEC"
	case strings.Contains(message, "Crash"), strings.Contains(message, "Bug"):
		return "CRASH"
	case strings.Contains(message, "New path"):
		return "PATH"
	case strings.Contains(message, "Branch entr"):
		return "LOCATE"
	case strings.Contains(message, "Statistics"):
		return "STATS"
	case strings.Contains(message, "Benchmark"):
		return "BENCH"
	case strings.Contains(message, "instrumented"):
		return "INSTR"
	case strings.Contains(message, "Campaign"):
		return "ENGINE"
	default:
		return ""
	}
}
