package reservation

import (
	"context"
	"log"
	"time"
)

// EventLister yields the event IDs that currently have ledger rows,
// so the sweeper knows which events to visit.
type EventLister interface {
	EventIDsWithHolds(ctx context.Context) ([]uint64, error)
}

// Sweeper periodically expires lapsed holds across all events.  Lazy
// sweep-on-read already guarantees correctness; this worker only keeps
// the ledger's audit view fresh for low-traffic events that may not see
// another hold attempt for a long time.  It is optional and disabled by
// default.
type Sweeper struct {
	manager  *Manager
	events   EventLister
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSweeper builds a sweeper that visits every event with ledger rows
// once per interval.
func NewSweeper(m *Manager, events EventLister, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		manager:  m,
		events:   events,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is
// called.  It is intended to run in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	log.Printf("expiry sweeper started (interval=%s)", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			log.Printf("expiry sweeper stopped: %v", ctx.Err())
			return
		case <-s.stopCh:
			log.Printf("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop halts the loop and waits for the current sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Sweeper) sweep(ctx context.Context) {
	eventIDs, err := s.events.EventIDsWithHolds(ctx)
	if err != nil {
		log.Printf("expiry sweeper: listing events failed: %v", err)
		return
	}
	for _, eventID := range eventIDs {
		swept, err := s.manager.SweepExpired(ctx, eventID)
		if err != nil {
			log.Printf("expiry sweeper: event %d sweep failed: %v", eventID, err)
			continue
		}
		if len(swept) > 0 {
			log.Printf("expiry sweeper: event %d expired %d hold(s)", eventID, len(swept))
		}
	}
}
