package handtrack

import (
	"sync"
	"time"

	"github.com/teslashibe/go-morph/pkg/gesture"
)

// StreamStats counts what a Stream has done with pushed samples.
type StreamStats struct {
	Accepted  uint64 `json:"accepted"`
	Replaced  uint64 `json:"replaced"`  // Unread samples overwritten by newer ones
	Malformed uint64 `json:"malformed"` // Hands dropped for not having 21 landmarks
}

// Stream is a Source fed by Push. It holds at most one unread sample.
type Stream struct {
	config Config
	out    chan Sample

	mu     sync.Mutex
	closed bool
	stats  StreamStats
}

// NewStream creates an open stream.
func NewStream(config Config) *Stream {
	if config.MaxHands < 1 {
		config.MaxHands = 1
	}
	return &Stream{
		config: config,
		out:    make(chan Sample, 1),
	}
}

// Samples returns the sample channel. It is closed by Close.
func (s *Stream) Samples() <-chan Sample {
	return s.out
}

// Push publishes the hands seen at time at, replacing any unread sample.
// Hands without exactly 21 landmarks are dropped and at most MaxHands are
// kept. A sample with no hands is still published: it means the hand left.
func (s *Stream) Push(hands []gesture.Landmarks, at time.Time) error {
	kept := make([]gesture.Landmarks, 0, min(len(hands), s.config.MaxHands))
	malformed := 0
	for _, h := range hands {
		if !h.Valid() {
			malformed++
			continue
		}
		if len(kept) < s.config.MaxHands {
			kept = append(kept, h)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.stats.Malformed += uint64(malformed)

	sample := Sample{Hands: kept, At: at}
	select {
	case s.out <- sample:
	default:
		// Drop the stale sample; only Push sends so the slot is free after
		select {
		case <-s.out:
			s.stats.Replaced++
		default:
		}
		s.out <- sample
	}
	s.stats.Accepted++
	return nil
}

// Stats returns a snapshot of the stream counters.
func (s *Stream) Stats() StreamStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close closes the sample channel. Safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	return nil
}
