/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: model.go
Description: Coverage model configuration. Selects window sizes and which secondary
signals (trailing fingerprint, nesting-depth weighting) contribute to a signature.
Three presets mirror the evolution of the coverage model; "nested" is the default.
*/

package coverage

import (
	"fmt"
	"sort"
)

// Model names
const (
	ModelNGram       = "ngram"
	ModelFingerprint = "fingerprint"
	ModelNested      = "nested"
)

// PadValue fills short n-grams at the end of an execution
const PadValue = 0

// Model controls how trace events are folded into a Signature
type Model struct {
	Name string `json:"name"`

	// GramSize is the number of consecutive branch entries per tuple
	GramSize int `json:"gram_size"`

	// Trailing fingerprint of raw lines
	Fingerprint       bool `json:"fingerprint"`
	FingerprintWindow int  `json:"fingerprint_window"`
	// Only lines strictly before the final branch entry feed the fingerprint
	FingerprintBeforeFinalBranch bool `json:"fingerprint_before_final_branch"`

	// Nesting-depth weighting
	DepthWeighting  bool `json:"depth_weighting"`
	PayloadLimit    int  `json:"payload_limit"`     // payload tuples kept in the signature
	PayloadMinHits  int  `json:"payload_min_hits"`  // payloads recorded before any is kept
	MaxPayloadWidth int  `json:"max_payload_width"` // upper bound on one payload tuple
}

var presets = map[string]Model{
	ModelNGram: {
		Name:     ModelNGram,
		GramSize: 4,
	},
	ModelFingerprint: {
		Name:              ModelFingerprint,
		GramSize:          4,
		Fingerprint:       true,
		FingerprintWindow: 4,
	},
	ModelNested: {
		Name:                         ModelNested,
		GramSize:                     4,
		Fingerprint:                  true,
		FingerprintWindow:            5,
		FingerprintBeforeFinalBranch: true,
		DepthWeighting:               true,
		PayloadLimit:                 4,
		PayloadMinHits:               3,
		MaxPayloadWidth:              64,
	},
}

// DefaultModel returns the nested preset
func DefaultModel() Model {
	return presets[ModelNested]
}

// ModelByName returns a preset by name
func ModelByName(name string) (Model, error) {
	m, ok := presets[name]
	if !ok {
		return Model{}, fmt.Errorf("unknown coverage model %q (available: %v)", name, ModelNames())
	}
	return m, nil
}

// ModelNames lists the available presets in sorted order
func ModelNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the model for inconsistent values
func (m Model) Validate() error {
	if m.GramSize <= 0 {
		return fmt.Errorf("gram_size must be positive")
	}
	if m.Fingerprint && m.FingerprintWindow <= 0 {
		return fmt.Errorf("fingerprint_window must be positive when fingerprint is enabled")
	}
	if m.DepthWeighting {
		if m.PayloadLimit <= 0 {
			return fmt.Errorf("payload_limit must be positive when depth weighting is enabled")
		}
		if m.MaxPayloadWidth <= 0 {
			return fmt.Errorf("max_payload_width must be positive when depth weighting is enabled")
		}
	}
	return nil
}
