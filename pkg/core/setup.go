/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: setup.go
Description: Assembles an engine for a registered target: locates branch entries in the
target source, builds the coverage campaign and runner, and wires the default mutators.
*/

package core

import (
	"fmt"

	"github.com/kleascm/akaylee-greybox/pkg/coverage"
	"github.com/kleascm/akaylee-greybox/pkg/execution"
	"github.com/kleascm/akaylee-greybox/pkg/strategies"
	"github.com/kleascm/akaylee-greybox/pkg/targets"
	"github.com/sirupsen/logrus"
)

// NewTargetEngine builds a ready-to-run engine for config.Target
func NewTargetEngine(config *FuzzerConfig, logger *logrus.Logger) (*Engine, *execution.Runner, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := config.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	target, err := targets.Lookup(config.Target)
	if err != nil {
		return nil, nil, err
	}
	src, err := target.Source()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", coverage.ErrSourceUnavailable, err)
	}

	model, _ := coverage.ModelByName(config.Model)
	locator, _ := coverage.ParseLocatorMode(config.Locator)

	campaign, err := coverage.NewCampaign(src, coverage.CampaignConfig{
		EntryFunc: target.EntryName(),
		Model:     model,
		Locator:   locator,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare coverage campaign: %w", err)
	}

	runner, err := execution.NewRunner(target, campaign, logger)
	if err != nil {
		return nil, nil, err
	}

	seeds := config.Seeds
	if len(seeds) == 0 {
		seeds = target.InitialCorpus()
	}

	rng := NewRand(config.RandSeed)
	engine, err := NewEngine(config, runner, strategies.NewDefaultMutator(rng), seeds, rng, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, runner, nil
}
