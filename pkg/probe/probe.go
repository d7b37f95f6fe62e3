/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: probe.go
Description: Runtime side of source instrumentation. Instrumented targets call Line before
every statement; the call is forwarded to the hook installed for the current execution.
Only one hook is active at a time and nested events raised while a hook runs are dropped.
*/

package probe

import (
	"sync"
	"sync/atomic"
)

// Hook receives one event per executed source line.
type Hook interface {
	Line(function string, line int)
}

// HookFunc adapts a plain function to the Hook interface
type HookFunc func(function string, line int)

// Line calls f(function, line).
func (f HookFunc) Line(function string, line int) {
	f(function, line)
}

var (
	current atomic.Pointer[slot]
	busy    atomic.Bool
	mu      sync.Mutex
)

type slot struct {
	hook Hook
}

// Line reports that the statement at line inside function is about to run.
// It is a no-op when no hook is installed.
//
//go:noinline
func Line(function string, line int) {
	s := current.Load()
	if s == nil {
		return
	}
	// Events raised by the hook itself are never traced.
	if !busy.CompareAndSwap(false, true) {
		return
	}
	defer busy.Store(false)
	s.hook.Line(function, line)
}

// Install makes h the active hook and returns a function restoring the previous one.
// Calls are expected to be strictly nested; restore must run on every exit path.
func Install(h Hook) (restore func()) {
	mu.Lock()
	defer mu.Unlock()

	prev := current.Swap(&slot{hook: h})
	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			defer mu.Unlock()
			current.Store(prev)
		})
	}
}

// Active reports whether a hook is currently installed
func Active() bool {
	return current.Load() != nil
}
