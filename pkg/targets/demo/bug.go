//go:build ignore

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bug.go
Description: Demo target with a bug hidden behind nested branches. This file is the
pristine source: it is embedded for branch-entry location and instrumented into
bug_instrumented.go, which is what actually gets compiled.
*/

package demo

import "strings"

// Entrypoint scores the input and panics with BugFound once the score is high enough
func Entrypoint(s string) error {
	if len(s) < 4 {
		return ErrShortInput
	}
	score := 0
	if s[0] == 'f' {
		score++
		if s[1] == 'u' {
			score++
			if s[2] == 'z' {
				score++
				if s[3] == 'z' {
					score += 2
				}
			}
		}
	} else if s[0] == 'b' {
		score--
	} else {
		score = 0
	}
	switch {
	case strings.HasSuffix(s, "!"):
		score += 3
	case strings.Contains(s, "?"):
		score++
	}
	executions++
	if score >= 8 {
		panic(BugFound{Input: s, Score: score})
	}
	return nil
}

// Teardown resets per-execution state
func Teardown() {
	if executions > 1<<20 {
		executions = 0
	}
}
