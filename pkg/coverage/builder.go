/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: builder.go
Description: Signature builder. Folds the stream of branch-entry hits of one execution
into fixed-size n-gram tuples, pads the trailing partial window, and appends the
trailing fingerprint and nesting-depth payloads selected by the coverage model.
*/

package coverage

// SignatureBuilder accumulates branch-entry hits for a single execution
type SignatureBuilder struct {
	model Model
	depth *NestingDepthTable

	gram     []int
	tuples   []Tuple
	payloads []Tuple
	hits     int
}

// NewSignatureBuilder creates a builder. depth may be nil when the model does not
// use nesting-depth weighting.
func NewSignatureBuilder(model Model, depth *NestingDepthTable) *SignatureBuilder {
	return &SignatureBuilder{
		model: model,
		depth: depth,
		gram:  make([]int, 0, model.GramSize),
	}
}

// Add records one branch-entry hit
func (b *SignatureBuilder) Add(line SourceLine) {
	b.hits++
	b.gram = append(b.gram, line)

	if b.model.DepthWeighting && b.depth != nil {
		b.payloads = append(b.payloads, depthPayload(b.depth.Weight(line), b.model.MaxPayloadWidth))
	}

	if len(b.gram) == b.model.GramSize {
		b.tuples = append(b.tuples, Tuple(b.gram))
		b.gram = make([]int, 0, b.model.GramSize)
	}
}

// Hits returns the number of branch-entry hits so far
func (b *SignatureBuilder) Hits() int {
	return b.hits
}

// Build finishes the execution and returns its signature. fingerprint is the trailing
// window of raw lines and is only used when the model enables it.
func (b *SignatureBuilder) Build(fingerprint Tuple) Signature {
	if len(b.gram) > 0 {
		for len(b.gram) < b.model.GramSize {
			b.gram = append(b.gram, PadValue)
		}
		b.tuples = append(b.tuples, Tuple(b.gram))
		b.gram = make([]int, 0, b.model.GramSize)
	}

	sig := make(Signature, 0, len(b.tuples)+1+b.model.PayloadLimit)
	sig = append(sig, b.tuples...)

	if b.model.Fingerprint {
		sig = append(sig, append(Tuple{}, fingerprint...))
	}

	if b.model.DepthWeighting && len(b.payloads) >= b.model.PayloadMinHits {
		tail := b.payloads
		if len(tail) > b.model.PayloadLimit {
			tail = tail[len(tail)-b.model.PayloadLimit:]
		}
		sig = append(sig, tail...)
	}

	// a run without any branch hit still contributes one comparable tuple
	if len(sig) == 0 {
		sig = append(sig, make(Tuple, b.model.GramSize))
	}

	return sig.Clone()
}

// depthPayload expands a weight w into the descending run w, w-1, ..., 2w+1,
// truncated to maxWidth values.
func depthPayload(w, maxWidth int) Tuple {
	p := Tuple{}
	for v := w; v > 2*w && len(p) < maxWidth; v-- {
		p = append(p, v)
	}
	return p
}
