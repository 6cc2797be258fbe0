// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"sync"
	"time"

	"studiosite/internal/kv"
	"studiosite/internal/models"
)

const (
	// VisitorLogKey is the kv key holding the rolling visitor log.
	VisitorLogKey = "visitor_log"

	// DefaultVisitorLogCap is the number of records kept when no cap is given.
	DefaultVisitorLogCap = 100
)

// VisitorLog is a bounded, oldest-evicted-first log of visitor records.
type VisitorLog struct {
	mu      sync.Mutex
	records collection[models.VisitorRecord]
	cap     int
}

// NewVisitorLog creates a log that retains at most capacity records.
func NewVisitorLog(backend kv.Backend, capacity int) *VisitorLog {
	if capacity <= 0 {
		capacity = DefaultVisitorLogCap
	}
	return &VisitorLog{
		records: collection[models.VisitorRecord]{backend: backend, key: VisitorLogKey},
		cap:     capacity,
	}
}

// Cap returns the maximum number of records retained.
func (l *VisitorLog) Cap() int {
	return l.cap
}

// List returns the retained records, oldest first.
func (l *VisitorLog) List(ctx context.Context) []models.VisitorRecord {
	return l.records.load(ctx)
}

// Append adds a record and evicts the oldest ones beyond the cap.
func (l *VisitorLog) Append(ctx context.Context, rec models.VisitorRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := append(l.records.load(ctx), rec)
	if over := len(records) - l.cap; over > 0 {
		records = records[over:]
	}
	l.records.saveBestEffort(ctx, records)
}

// UpdateLatest applies fn to the most recent record of the session. It
// looks the record up on every call instead of holding a reference, so a
// record evicted in the meantime is simply not found.
func (l *VisitorLog) UpdateLatest(ctx context.Context, sessionID string, fn func(*models.VisitorRecord)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.records.load(ctx)
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].SessionID == sessionID {
			fn(&records[i])
			l.records.saveBestEffort(ctx, records)
			return true
		}
	}
	return false
}

// Update applies fn to the record identified by session and capture time.
// Used by enrichment, which may finish after newer records were appended.
func (l *VisitorLog) Update(ctx context.Context, sessionID string, at time.Time, fn func(*models.VisitorRecord)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.records.load(ctx)
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].SessionID == sessionID && records[i].Timestamp.Equal(at) {
			fn(&records[i])
			l.records.saveBestEffort(ctx, records)
			return true
		}
	}
	return false
}

// Stats aggregates the retained records.
func (l *VisitorLog) Stats(ctx context.Context) models.VisitorStats {
	stats := models.VisitorStats{
		Devices:          map[string]int{},
		Browsers:         map[string]int{},
		OperatingSystems: map[string]int{},
		Pages:            map[string]int{},
	}
	sessions := map[string]struct{}{}
	totalTime := 0

	for _, r := range l.records.load(ctx) {
		stats.Total++
		stats.Devices[string(r.Device)]++
		stats.Browsers[r.Browser]++
		stats.OperatingSystems[r.OS]++
		stats.Pages[r.Page]++
		sessions[r.SessionID] = struct{}{}
		totalTime += r.TimeOnSite
	}

	stats.UniqueSessions = len(sessions)
	if stats.Total > 0 {
		stats.AverageTimeOnSite = float64(totalTime) / float64(stats.Total)
	}
	return stats
}
