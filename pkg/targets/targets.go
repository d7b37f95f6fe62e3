/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: targets.go
Description: Fuzz target contract and process-wide registry. A target exposes a named
entry function taking one string input, the Go source that function was instrumented
from, and an initial corpus. Targets register themselves from init functions.
*/

package targets

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTarget is returned by Lookup for unregistered names
var ErrUnknownTarget = errors.New("unknown target")

// Target is a function under test
type Target interface {
	// Name identifies the target in the registry
	Name() string
	// EntryName is the entry function's name as it appears in trace events
	EntryName() string
	// Source returns the pristine source file holding the entry function
	Source() ([]byte, error)
	// Entrypoint runs the instrumented entry function on one input
	Entrypoint(input string) error
	// InitialCorpus returns the seed inputs
	InitialCorpus() []string
}

// Teardowner is implemented by targets that need cleanup after every execution.
// Teardown runs inside the traced scope and its events are discarded.
type Teardowner interface {
	Teardown()
}

// FuncTarget adapts plain functions to Target
type FuncTarget struct {
	TargetName string
	Entry      string
	Src        []byte
	Fn         func(input string) error
	Corpus     []string
	Cleanup    func()
}

// Name implements Target
func (t *FuncTarget) Name() string { return t.TargetName }

// EntryName implements Target
func (t *FuncTarget) EntryName() string { return t.Entry }

// Source implements Target
func (t *FuncTarget) Source() ([]byte, error) {
	if len(t.Src) == 0 {
		return nil, fmt.Errorf("target %s has no embedded source", t.TargetName)
	}
	return t.Src, nil
}

// Entrypoint implements Target
func (t *FuncTarget) Entrypoint(input string) error {
	return t.Fn(input)
}

// InitialCorpus implements Target
func (t *FuncTarget) InitialCorpus() []string {
	return append([]string(nil), t.Corpus...)
}

// Teardown implements Teardowner
func (t *FuncTarget) Teardown() {
	if t.Cleanup != nil {
		t.Cleanup()
	}
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Target)
)

// Register adds a target. Names must be unique.
func Register(t Target) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("target must have a name")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[t.Name()]; exists {
		return fmt.Errorf("target %s already registered", t.Name())
	}
	registry[t.Name()] = t
	return nil
}

// MustRegister is Register for init functions
func MustRegister(t Target) {
	if err := Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the target registered under name
func Lookup(name string) (Target, error) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownTarget, name, namesLocked())
	}
	return t, nil
}

// Names lists registered targets in sorted order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
