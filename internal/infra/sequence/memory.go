package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"modaccess/internal/usecase"
)

// ErrExhausted is returned when a day's 4-digit sequence space runs out.
// The counter never wraps.
var ErrExhausted = errors.New("daily protocol sequence exhausted")

const maxDailySequence = 9999

type memorySequencer struct {
	mu     sync.Mutex
	prefix string
	now    func() time.Time
	day    string
	seq    int
}

type MemoryConfig struct {
	Prefix string
	Now    func() time.Time
}

func NewMemory(cfg MemoryConfig) usecase.Sequencer {
	if cfg.Prefix == "" {
		cfg.Prefix = "SOL"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &memorySequencer{prefix: cfg.Prefix, now: cfg.Now}
}

func (m *memorySequencer) Next(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Day and counter move under one lock, so a call straddling midnight
	// observes exactly one day.
	day := m.now().Format("20060102")
	if day != m.day {
		m.day = day
		m.seq = 0
	}
	if m.seq >= maxDailySequence {
		return "", fmt.Errorf("day %s: %w", day, ErrExhausted)
	}
	m.seq++
	return fmt.Sprintf("%s-%s-%04d", m.prefix, day, m.seq), nil
}
