package engine

import "math/rand/v2"

// KindSource supplies the kind of each upcoming piece
type KindSource interface {
	Next() Kind
}

// RandomSource draws kinds uniformly at random. It is not safe for concurrent
// use; the engine only calls it while holding its lock.
type RandomSource struct {
	rng *rand.Rand
}

// NewRandomSource returns a RandomSource whose sequence is determined by seed
func NewRandomSource(seed uint64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns a uniformly chosen kind
func (s *RandomSource) Next() Kind {
	return AllKinds[s.rng.IntN(len(AllKinds))]
}

// SequenceSource replays a fixed list of kinds. Once the list is exhausted it
// defers to its fallback, or starts over when there is none.
type SequenceSource struct {
	kinds    []Kind
	pos      int
	fallback KindSource
}

// NewSequenceSource returns a source that yields kinds in order
func NewSequenceSource(kinds []Kind, fallback KindSource) *SequenceSource {
	if len(kinds) == 0 && fallback == nil {
		fallback = NewRandomSource(0)
	}
	return &SequenceSource{kinds: append([]Kind(nil), kinds...), fallback: fallback}
}

// Next returns the next scripted kind
func (s *SequenceSource) Next() Kind {
	if s.pos < len(s.kinds) {
		k := s.kinds[s.pos]
		s.pos++
		return k
	}
	if s.fallback != nil {
		return s.fallback.Next()
	}
	s.pos = 1
	return s.kinds[0]
}

// Reset rewinds to the first scripted kind
func (s *SequenceSource) Reset() {
	s.pos = 0
}
