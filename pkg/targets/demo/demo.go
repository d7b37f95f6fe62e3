/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: demo.go
Description: Registration of the demo target. The entry function lives in bug.go and
is compiled from its instrumented copy; the pristine file is embedded for the locator.
*/

package demo

//go:generate go run github.com/kleascm/akaylee-greybox/cmd/fuzzer instrument --in bug.go --out bug_instrumented.go

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/kleascm/akaylee-greybox/pkg/targets"
)

// Name is the registry name of the demo target
const Name = "demo"

//go:embed bug.go
var source []byte

// ErrShortInput is returned for inputs the target refuses to score
var ErrShortInput = errors.New("input too short")

// BugFound is the panic value raised when the hidden bug is reached
type BugFound struct {
	Input string
	Score int
}

func (b BugFound) Error() string {
	return fmt.Sprintf("bug found: input %q scored %d", b.Input, b.Score)
}

var executions int

// InitialCorpus returns the demo seeds
func InitialCorpus() []string {
	return []string{"good", "bad!", "fuzzy?"}
}

// Source returns the embedded pristine source
func Source() []byte {
	return source
}

func init() {
	targets.MustRegister(&targets.FuncTarget{
		TargetName: Name,
		Entry:      "Entrypoint",
		Src:        source,
		Fn:         Entrypoint,
		Corpus:     InitialCorpus(),
		Cleanup:    Teardown,
	})
}
