// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"sync"
	"time"
)

// ProgressSnapshot is one observable point of a running batch sync, the
// shape served by the status endpoint and the SSE stream.
type ProgressSnapshot struct {
	Running        bool       `json:"running"`
	Total          int        `json:"total"`
	Processed      int        `json:"processed"`
	Inserted       int        `json:"inserted"`
	Skipped        int        `json:"skipped"`
	Failed         int        `json:"failed"`
	CurrentWave    int        `json:"current_wave"`
	TotalWaves     int        `json:"total_waves"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
	ETASeconds     float64    `json:"eta_seconds"`
}

// Progress tracks a batch sync run and fans snapshots out to stream
// subscribers. Safe for concurrent use. Subscriber channels are never
// blocked on: a slow consumer misses intermediate snapshots instead of
// stalling the sync.
type Progress struct {
	mu         sync.Mutex
	running    bool
	total      int
	processed  int
	inserted   int
	skipped    int
	failed     int
	wavesDone  int
	totalWaves int
	startedAt  time.Time
	subs       map[chan ProgressSnapshot]struct{}
}

// NewProgress creates an idle progress tracker.
func NewProgress() *Progress {
	return &Progress{subs: make(map[chan ProgressSnapshot]struct{})}
}

// Begin resets all counters and marks the run started.
func (p *Progress) Begin(total, totalWaves int) {
	p.mu.Lock()
	p.running = true
	p.total = total
	p.processed = 0
	p.inserted = 0
	p.skipped = 0
	p.failed = 0
	p.wavesDone = 0
	p.totalWaves = totalWaves
	p.startedAt = time.Now()
	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.publish(snap)
}

// Item outcome labels, shared with the sync metrics.
const (
	OutcomeInserted = "inserted"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// ItemDone records the outcome of one app within the current wave.
func (p *Progress) ItemDone(outcome string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	switch outcome {
	case OutcomeInserted:
		p.inserted++
	case OutcomeSkipped:
		p.skipped++
	case OutcomeFailed:
		p.failed++
	}
}

// WaveDone marks one wave complete and publishes a snapshot.
func (p *Progress) WaveDone() {
	p.mu.Lock()
	p.wavesDone++
	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.publish(snap)
}

// Finish marks the run complete and publishes the final snapshot.
func (p *Progress) Finish() {
	p.mu.Lock()
	p.running = false
	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.publish(snap)
}

// Running reports whether a batch run is in flight.
func (p *Progress) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Progress) snapshotLocked() ProgressSnapshot {
	snap := ProgressSnapshot{
		Running:     p.running,
		Total:       p.total,
		Processed:   p.processed,
		Inserted:    p.inserted,
		Skipped:     p.skipped,
		Failed:      p.failed,
		CurrentWave: p.wavesDone,
		TotalWaves:  p.totalWaves,
	}
	if !p.startedAt.IsZero() {
		started := p.startedAt
		snap.StartedAt = &started
		elapsed := time.Since(p.startedAt)
		snap.ElapsedSeconds = elapsed.Seconds()
		// ETA extrapolates the average wave duration over the waves left.
		if p.running && p.wavesDone > 0 && p.totalWaves > p.wavesDone {
			avg := elapsed / time.Duration(p.wavesDone)
			snap.ETASeconds = (avg * time.Duration(p.totalWaves-p.wavesDone)).Seconds()
		}
	}
	return snap
}

// Subscribe registers a snapshot channel. The current state is delivered
// immediately so a late subscriber sees where the run stands.
func (p *Progress) Subscribe() chan ProgressSnapshot {
	ch := make(chan ProgressSnapshot, 8)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	snap := p.snapshotLocked()
	p.mu.Unlock()
	ch <- snap
	return ch
}

// Unsubscribe removes a subscriber channel.
func (p *Progress) Unsubscribe(ch chan ProgressSnapshot) {
	p.mu.Lock()
	delete(p.subs, ch)
	p.mu.Unlock()
}

func (p *Progress) publish(snap ProgressSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
