/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: probe_test.go
Description: Tests for hook installation, restoration and re-entrancy protection of the probe.
*/

package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	events []int
}

func (r *recorder) Line(function string, line int) {
	r.events = append(r.events, line)
}

func TestLineWithoutHookIsNoop(t *testing.T) {
	assert.False(t, Active())
	assert.NotPanics(t, func() { Line("Entrypoint", 3) })
}

func TestInstallAndRestore(t *testing.T) {
	rec := &recorder{}
	restore := Install(rec)
	assert.True(t, Active())

	Line("Entrypoint", 2)
	Line("Entrypoint", 3)

	restore()
	Line("Entrypoint", 4)

	assert.Equal(t, []int{2, 3}, rec.events)
	assert.False(t, Active())

	// restore is idempotent
	assert.NotPanics(t, restore)
	assert.False(t, Active())
}

func TestNestedInstallRestoresPrevious(t *testing.T) {
	outer := &recorder{}
	inner := &recorder{}

	restoreOuter := Install(outer)
	defer restoreOuter()

	Line("f", 1)
	restoreInner := Install(inner)
	Line("f", 2)
	restoreInner()
	Line("f", 3)

	assert.Equal(t, []int{1, 3}, outer.events)
	assert.Equal(t, []int{2}, inner.events)
}

func TestReentrantEventsAreDropped(t *testing.T) {
	var seen []int
	restore := Install(HookFunc(func(function string, line int) {
		seen = append(seen, line)
		// instrumented code running inside the hook
		Line("helper", line*100)
	}))
	defer restore()

	Line("Entrypoint", 7)
	Line("Entrypoint", 8)

	assert.Equal(t, []int{7, 8}, seen)
}
