/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: campaign.go
Description: Campaign-wide coverage state. Holds the branch-entry set with its one-shot
offset correction and the nesting-depth table that persists across executions. A campaign
is created once per fuzzing session and serialises the executions that use it.
*/

package coverage

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// minDepthCounter bounds the doubling depth counter
const minDepthCounter = math.MinInt / 2

// BranchEntrySet is the ordered list of branch-entry lines of the entry function.
// The first element is always the sentinel used to compute the offset.
type BranchEntrySet struct {
	lines     []SourceLine
	index     map[SourceLine]struct{}
	offset    int
	corrected bool
}

// NewBranchEntrySet builds a set from located entries, prefixed with SentinelLine
func NewBranchEntrySet(entries []SourceLine) *BranchEntrySet {
	lines := make([]SourceLine, 0, len(entries)+1)
	lines = append(lines, SentinelLine)
	lines = append(lines, entries...)

	b := &BranchEntrySet{lines: lines}
	b.reindex()
	return b
}

func (b *BranchEntrySet) reindex() {
	b.index = make(map[SourceLine]struct{}, len(b.lines))
	for _, l := range b.lines {
		b.index[l] = struct{}{}
	}
}

// Lines returns a copy of the entries in scan order
func (b *BranchEntrySet) Lines() []SourceLine {
	return append([]SourceLine(nil), b.lines...)
}

// Len returns the number of entries including the sentinel
func (b *BranchEntrySet) Len() int {
	return len(b.lines)
}

// Contains reports whether line is a branch entry
func (b *BranchEntrySet) Contains(line SourceLine) bool {
	_, ok := b.index[line]
	return ok
}

// Final returns the last entry discovered by the scan
func (b *BranchEntrySet) Final() SourceLine {
	return b.lines[len(b.lines)-1]
}

// Corrected reports whether the offset has been applied
func (b *BranchEntrySet) Corrected() bool {
	return b.corrected
}

// Offset returns the applied offset, zero before correction
func (b *BranchEntrySet) Offset() int {
	return b.offset
}

// Correct shifts every entry so that the sentinel lands on firstLine, the real line of
// the first statement executed in the entry function. It applies at most once.
func (b *BranchEntrySet) Correct(firstLine SourceLine) (int, bool) {
	if b.corrected {
		return b.offset, false
	}
	b.offset = firstLine - b.lines[0]
	for i := range b.lines {
		b.lines[i] += b.offset
	}
	b.corrected = true
	b.reindex()
	return b.offset, true
}

// Clone returns an independent copy
func (b *BranchEntrySet) Clone() *BranchEntrySet {
	c := &BranchEntrySet{
		lines:     b.Lines(),
		offset:    b.offset,
		corrected: b.corrected,
	}
	c.reindex()
	return c
}

// NestingDepthTable maps branch-entry lines to depth weights. A line gets the current
// counter the first time it is hit; the counter doubles after every execution that
// registered at least one new line.
type NestingDepthTable struct {
	weights map[SourceLine]int
	counter int
	grew    bool
}

// NewNestingDepthTable returns an empty table with the counter at -1
func NewNestingDepthTable() *NestingDepthTable {
	return &NestingDepthTable{
		weights: make(map[SourceLine]int),
		counter: -1,
	}
}

// Weight returns the weight of line, registering it on first sight
func (t *NestingDepthTable) Weight(line SourceLine) int {
	if w, ok := t.weights[line]; ok {
		return w
	}
	t.weights[line] = t.counter
	t.grew = true
	return t.counter
}

// Lookup returns the weight of line without registering it
func (t *NestingDepthTable) Lookup(line SourceLine) (int, bool) {
	w, ok := t.weights[line]
	return w, ok
}

// EndExecution doubles the counter when the finished execution added entries
func (t *NestingDepthTable) EndExecution() {
	if !t.grew {
		return
	}
	t.grew = false
	if t.counter > minDepthCounter {
		t.counter *= 2
	}
}

// Counter returns the weight the next new line will receive
func (t *NestingDepthTable) Counter() int {
	return t.counter
}

// Len returns the number of registered lines
func (t *NestingDepthTable) Len() int {
	return len(t.weights)
}

// CampaignConfig configures a Campaign
type CampaignConfig struct {
	EntryFunc string             // name of the target's entry function
	Model     Model              // coverage model
	Locator   LocatorMode        // branch detection mode
	Ignore    []string           // functions whose events are discarded
	Logger    logrus.FieldLogger // optional
}

// Campaign owns the coverage state shared by all executions of one fuzzing session
type Campaign struct {
	mu sync.Mutex

	entryFunc string
	model     Model
	ignore    map[string]struct{}
	logger    logrus.FieldLogger

	located *BranchEntrySet // pristine copy for Reset
	entries *BranchEntrySet
	depth   *NestingDepthTable

	executions int64
}

// NewCampaign locates the branch entries of cfg.EntryFunc inside src and prepares the
// campaign state. A source that cannot be introspected is a fatal error.
func NewCampaign(src []byte, cfg CampaignConfig) (*Campaign, error) {
	if cfg.EntryFunc == "" {
		return nil, fmt.Errorf("entry function name is required")
	}
	text, startLine, err := FunctionSource(src, cfg.EntryFunc)
	if err != nil {
		return nil, err
	}
	entries, err := Locate(text, cfg.Locator)
	if err != nil {
		return nil, err
	}

	c, err := NewCampaignWithEntries(entries, cfg)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"entry_func": cfg.EntryFunc,
		"start_line": startLine,
		"entries":    entries.Len(),
		"locator":    cfg.Locator,
		"model":      c.model.Name,
	}).Debug("Branch entries located")
	return c, nil
}

// NewCampaignWithEntries builds a campaign around an already located set
func NewCampaignWithEntries(entries *BranchEntrySet, cfg CampaignConfig) (*Campaign, error) {
	model := cfg.Model
	if model.Name == "" && model.GramSize == 0 {
		model = DefaultModel()
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coverage model: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ignore := map[string]struct{}{TeardownFunc: {}}
	for _, fn := range cfg.Ignore {
		ignore[fn] = struct{}{}
	}

	return &Campaign{
		entryFunc: cfg.EntryFunc,
		model:     model,
		ignore:    ignore,
		logger:    logger,
		located:   entries.Clone(),
		entries:   entries,
		depth:     NewNestingDepthTable(),
	}, nil
}

// ignored reports whether events of function are discarded. Teardown methods
// ("T.Teardown") are ignored like the free function.
func (c *Campaign) ignored(function string) bool {
	if _, skip := c.ignore[function]; skip {
		return true
	}
	return strings.HasSuffix(function, "."+TeardownFunc)
}

// NewTracer starts one traced execution. The campaign stays locked until the
// tracer's Finish is called, so executions never interleave.
func (c *Campaign) NewTracer() *Tracer {
	c.mu.Lock()
	return newTracer(c)
}

func (c *Campaign) release() {
	c.executions++
	c.mu.Unlock()
}

// Model returns the coverage model in use
func (c *Campaign) Model() Model {
	return c.model
}

// EntryFunc returns the traced entry function name
func (c *Campaign) EntryFunc() string {
	return c.entryFunc
}

// Entries returns a snapshot of the branch-entry set
func (c *Campaign) Entries() []SourceLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Lines()
}

// Corrected reports whether the one-shot offset correction has run
func (c *Campaign) Corrected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Corrected()
}

// DepthWeight returns the nesting weight recorded for line
func (c *Campaign) DepthWeight(line SourceLine) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth.Lookup(line)
}

// DepthCounter returns the weight the next newly reached line will receive
func (c *Campaign) DepthCounter() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth.Counter()
}

// Executions returns the number of finished traced executions
func (c *Campaign) Executions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executions
}

// Reset restores the uncorrected entry set and an empty depth table
func (c *Campaign) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = c.located.Clone()
	c.depth = NewNestingDepthTable()
	c.executions = 0
}
