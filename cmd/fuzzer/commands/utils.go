/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the Akaylee Greybox commands. Provides configuration
loading, logging setup, banners and the exit-code error used to report a found bug.
*/

package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kleascm/akaylee-greybox/pkg/logging"
	"github.com/spf13/viper"
)

// Version is reported by --version and written into metrics files
const Version = "1.0.0"

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("5")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("4")).
			Padding(0, 2)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Width(22)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// ExitError carries a specific process exit code out of a command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// AKAYLEE_TRIALS, AKAYLEE_LOG_LEVEL, ...
	viper.SetEnvPrefix("AKAYLEE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	return nil
}

// SetupLogging builds the fuzzer logger from the log_* settings
func SetupLogging() (*logging.Logger, error) {
	config := logging.DefaultConfig()
	if level := viper.GetString("log_level"); level != "" {
		config.Level = logging.LogLevel(level)
	}
	if format := viper.GetString("log_format"); format != "" {
		config.Format = logging.LogFormat(format)
	}
	if maxFiles := viper.GetInt("log_max_files"); maxFiles > 0 {
		config.MaxFiles = maxFiles
	}
	config.OutputDir = viper.GetString("log_dir")
	config.Colors = !viper.GetBool("no_color")

	if viper.GetBool("json_logs") {
		config.Format = logging.LogFormatJSON
	}

	logger, err := logging.NewLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// printBanner writes a boxed title
func printBanner(w io.Writer, title string) {
	fmt.Fprintln(w, bannerStyle.Render("Akaylee Greybox - "+title))
	fmt.Fprintln(w)
}

// printField writes one aligned label/value line
func printField(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "%s %v\n", labelStyle.Render(label), value)
}
