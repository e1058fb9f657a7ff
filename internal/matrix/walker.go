// Package matrix turns a selected architecture entry into the sequence of
// execution units for one run.
package matrix

import (
	"iter"

	"github.com/collabora/cros-codecs-ci/internal/config"
)

// ExecutionUnit is one concrete (codec, suite, skip-list, device)
// combination, run as a single external invocation. Units are ephemeral:
// produced lazily by Walk and consumed immediately by the runner, none
// outlives one orchestration pass.
type ExecutionUnit struct {
	Codec        string
	Suite        string
	SkipVectors  []string
	DeviceType   string
	SingleThread bool
}

// Walk yields one ExecutionUnit per test suite declared under entry, in
// document declaration order (codec, then test suite). The sequence is
// finite and single-pass. A nil entry, the result of selecting an
// architecture the document does not declare, yields the empty sequence.
// Units are streamed, never materialized as a slice.
func Walk(entry *config.ArchEntry, singleThread bool) iter.Seq[ExecutionUnit] {
	return func(yield func(ExecutionUnit) bool) {
		if entry == nil {
			return
		}
		for _, codec := range entry.Codecs {
			for _, suite := range codec.TestSuites {
				unit := ExecutionUnit{
					Codec:        codec.Name,
					Suite:        suite.Name,
					SkipVectors:  suite.SkipVectors,
					DeviceType:   entry.DeviceType,
					SingleThread: singleThread,
				}
				if !yield(unit) {
					return
				}
			}
		}
	}
}
