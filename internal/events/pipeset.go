package events

import (
	"math/bits"
	"strings"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// PipeSet is a set of pipe identifiers. The zero value is empty and ready to use.
type PipeSet struct {
	words [4]uint64
}

func NewPipeSet(pipes ...model.PipeID) PipeSet {
	var s PipeSet
	for _, p := range pipes {
		s.Add(p)
	}
	return s
}

func (s *PipeSet) Add(p model.PipeID) {
	s.words[p>>6] |= 1 << (p & 63)
}

func (s PipeSet) Has(p model.PipeID) bool {
	return s.words[p>>6]&(1<<(p&63)) != 0
}

func (s PipeSet) Union(other PipeSet) PipeSet {
	for i := range s.words {
		s.words[i] |= other.words[i]
	}
	return s
}

func (s PipeSet) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

func (s PipeSet) Empty() bool {
	return s.words == [4]uint64{}
}

// Pipes returns the members in ascending order.
func (s PipeSet) Pipes() []model.PipeID {
	out := make([]model.PipeID, 0, s.Len())
	for i, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, model.PipeID(i*64+b))
			w &^= 1 << b
		}
	}
	return out
}

func (s PipeSet) String() string {
	pipes := s.Pipes()
	names := make([]string, len(pipes))
	for i, p := range pipes {
		names[i] = p.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}
