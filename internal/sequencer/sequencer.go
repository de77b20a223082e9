// Package sequencer owns the rotation order and the current position of the
// slideshow.
package sequencer

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/matjam/slideframe/internal/types"
)

// ShuffleFunc reorders n elements using swap, like rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Result describes what a Refresh did.
type Result struct {
	Changed   bool // the list differed from the held one
	Activated bool // the sequence went from empty to non-empty
	Emptied   bool // the sequence went from non-empty to empty
}

type Sequencer struct {
	mu      sync.RWMutex
	scanned []types.SourceImage // last scan, path order
	order   []types.SourceImage // display order
	index   int
	random  bool
	shuffle ShuffleFunc
}

// New creates an empty sequencer. When random is true the display order is
// reshuffled every time the image list changes.
func New(random bool) *Sequencer {
	return &Sequencer{
		random:  random,
		shuffle: rand.Shuffle,
	}
}

// WithShuffle replaces the shuffle function. Used by tests.
func (s *Sequencer) WithShuffle(fn ShuffleFunc) *Sequencer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle = fn
	return s
}

// Refresh replaces the held list when it differs from list. The index is kept
// if it is still in range and reset to zero otherwise. Calling Refresh twice
// with the same list is a no-op the second time.
func (s *Sequencer) Refresh(list []types.SourceImage) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.EqualFunc(s.scanned, list, types.SourceImage.Equal) {
		return Result{}
	}

	wasEmpty := len(s.order) == 0

	s.scanned = slices.Clone(list)
	s.order = slices.Clone(list)
	if s.random && s.shuffle != nil {
		s.shuffle(len(s.order), func(i, j int) {
			s.order[i], s.order[j] = s.order[j], s.order[i]
		})
	}
	if s.index >= len(s.order) {
		s.index = 0
	}

	return Result{
		Changed:   true,
		Activated: wasEmpty && len(s.order) > 0,
		Emptied:   !wasEmpty && len(s.order) == 0,
	}
}

// Advance moves to the next image, wrapping at the end, and returns it.
func (s *Sequencer) Advance() (types.SourceImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return types.SourceImage{}, false
	}
	s.index = (s.index + 1) % len(s.order)
	return s.order[s.index], true
}

// Current returns the image at the current index, or false when empty.
func (s *Sequencer) Current() (types.SourceImage, bool) {
	return s.Peek(0)
}

// Peek returns the image offset positions after the current one. The offset
// wraps against the length at the time of the call.
func (s *Sequencer) Peek(offset int) (types.SourceImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if n == 0 {
		return types.SourceImage{}, false
	}
	i := (s.index + offset%n + n) % n
	return s.order[i], true
}

func (s *Sequencer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Index returns the current index, or -1 when empty.
func (s *Sequencer) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return -1
	}
	return s.index
}

func (s *Sequencer) Empty() bool {
	return s.Len() == 0
}

// Snapshot returns a copy of the display order and the current index.
func (s *Sequencer) Snapshot() ([]types.SourceImage, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, -1
	}
	return slices.Clone(s.order), s.index
}
