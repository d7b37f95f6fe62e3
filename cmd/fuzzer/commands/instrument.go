/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: instrument.go
Description: Instrument command. Rewrites a Go source file so every statement reports
its original line to the probe package.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/akaylee-greybox/pkg/instrument"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunInstrument instruments one file
func RunInstrument(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	in := viper.GetString("instrument.in")
	out := viper.GetString("instrument.out")
	if in == "" || out == "" {
		return fmt.Errorf("both --in and --out are required")
	}

	stats, err := instrument.File(in, out, instrument.Options{
		Functions: viper.GetStringSlice("instrument.functions"),
		Logger:    logger.GetLogger(),
	})
	if err != nil {
		return err
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"in":        in,
		"out":       out,
		"functions": stats.Functions,
		"probes":    stats.Probes,
		"else_ifs":  stats.ElseIfs,
	}).Info("Source instrumented")
	return nil
}
