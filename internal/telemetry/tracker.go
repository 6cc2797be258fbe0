// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package telemetry captures visitor page views into the rolling visitor
// log and emits new-visitor, exit and inactivity notifications. Browsers
// report their visit through beacons; the Tracker keeps one timer-driven
// state machine per session on top of them.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"studiosite/internal/models"
	"studiosite/internal/notify"
	"studiosite/internal/store"
)

var (
	// ErrUnknownSession is returned for beacons naming a session that never
	// started, already exited, or was swept.
	ErrUnknownSession = errors.New("telemetry: unknown session")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("telemetry: tracker closed")
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultInactivityTimeout = 5 * time.Minute
	DefaultEnrichTimeout     = 10 * time.Second
)

// Notifier delivers events without blocking the caller.
type Notifier interface {
	Go(ev notify.Event)
}

// Options configures a Tracker. Zero values take the defaults.
type Options struct {
	Site              string
	HeartbeatInterval time.Duration
	InactivityTimeout time.Duration
	// SessionTTL ends a session that has sent no beacon for this long, as
	// if its exit beacon had arrived. Defaults to three heartbeats.
	SessionTTL    time.Duration
	EnrichTimeout time.Duration

	Clock    Clock
	Resolver Resolver // nil disables enrichment
	Notifier Notifier // nil disables notifications
	NewID    func() string
}

// Visit is what the browser reports when a page view starts.
type Visit struct {
	Page             string
	UserAgent        string
	Referrer         string
	ScreenResolution string
	ClientIP         string
	// ReportedIP is the address the browser resolved for itself. It is
	// only used when ClientIP is not public.
	ReportedIP string
}

type session struct {
	id       string
	started  time.Time
	lastSeen time.Time
	latest   models.VisitorRecord
	enriched Enrichment

	heartbeat Timer
	idle      Timer
	idleGen   int
}

// Tracker runs the per-session visit lifecycle. All methods are safe for
// concurrent use.
type Tracker struct {
	log   *store.VisitorLog
	opts  Options
	clock Clock

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// NewTracker creates a tracker writing to log.
func NewTracker(log *store.VisitorLog, opts Options) *Tracker {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = DefaultInactivityTimeout
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 3 * opts.HeartbeatInterval
	}
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = DefaultEnrichTimeout
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		log:      log,
		opts:     opts,
		clock:    opts.Clock,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}
}

// Start opens a session, appends its first record and returns it. IP and
// location are resolved in the background and the new-visitor
// notification follows once they are known (or have failed).
func (t *Tracker) Start(ctx context.Context, v Visit) (models.VisitorRecord, error) {
	now := t.clock.Now().UTC()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return models.VisitorRecord{}, ErrClosed
	}
	s := &session{id: t.opts.NewID(), started: now, lastSeen: now}
	s.latest = models.VisitorRecord{
		Timestamp:        now,
		SessionID:        s.id,
		Page:             v.Page,
		UserAgent:        v.UserAgent,
		Referrer:         v.Referrer,
		Device:           ClassifyDevice(v.UserAgent),
		Browser:          DetectBrowser(v.UserAgent),
		OS:               DetectOS(v.UserAgent),
		ScreenResolution: v.ScreenResolution,
	}
	rec := s.latest
	t.sessions[s.id] = s
	t.armHeartbeat(s)
	t.armIdle(s)
	t.wg.Add(1)
	t.mu.Unlock()

	t.log.Append(ctx, rec)
	go t.enrichAndAnnounce(rec, VisitorIP(v.ClientIP, v.ReportedIP))

	return rec, nil
}

// enrichAndAnnounce resolves the visitor's network metadata, writes it back
// to the record it was captured for, then sends the new-visitor event.
func (t *Tracker) enrichAndAnnounce(rec models.VisitorRecord, clientIP string) {
	defer t.wg.Done()

	if t.opts.Resolver != nil {
		ctx, cancel := context.WithTimeout(t.ctx, t.opts.EnrichTimeout)
		res, err := t.opts.Resolver.Resolve(ctx, clientIP)
		cancel()
		if err != nil {
			slog.Warn("visitor enrichment failed", "session", rec.SessionID, "error", err)
		}

		if res.IP != "" || res.Location != "" {
			rec.IP, rec.Location = res.IP, res.Location
			t.log.Update(context.WithoutCancel(t.ctx), rec.SessionID, rec.Timestamp, func(r *models.VisitorRecord) {
				r.IP, r.Location = res.IP, res.Location
			})

			t.mu.Lock()
			if s, ok := t.sessions[rec.SessionID]; ok {
				s.enriched = res
				if s.latest.Timestamp.Equal(rec.Timestamp) {
					s.latest.IP, s.latest.Location = res.IP, res.Location
				}
			}
			t.mu.Unlock()
		}
	}

	t.notify(notify.KindNewVisitor, rec, 0)
}

// Navigate records a client-side route change as a new record of the same
// session. Network metadata already resolved for the session is copied
// over; it is not looked up again.
func (t *Tracker) Navigate(ctx context.Context, sessionID, page string) (models.VisitorRecord, error) {
	t.mu.Lock()
	s, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return models.VisitorRecord{}, ErrUnknownSession
	}
	now := t.clock.Now().UTC()
	s.lastSeen = now
	rec := s.latest
	rec.Timestamp = now
	rec.Page = page
	rec.IP, rec.Location = s.enriched.IP, s.enriched.Location
	rec.TimeOnSite = seconds(now.Sub(s.started))
	s.latest = rec
	t.armIdle(s)
	t.mu.Unlock()

	t.log.Append(ctx, rec)
	return rec, nil
}

// Heartbeat is the browser's periodic "still open" beacon. It keeps the
// session alive and refreshes the latest record's time on site.
func (t *Tracker) Heartbeat(ctx context.Context, sessionID string) (int, error) {
	t.mu.Lock()
	s, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return 0, ErrUnknownSession
	}
	now := t.clock.Now().UTC()
	s.lastSeen = now
	secs := seconds(now.Sub(s.started))
	s.latest.TimeOnSite = secs
	t.mu.Unlock()

	t.updateTimeOnSite(ctx, sessionID, secs)
	return secs, nil
}

// Activity reports user input (pointer, key, scroll, touch). It restarts
// the inactivity timer, re-arming it if it already fired.
func (t *Tracker) Activity(sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	s.lastSeen = t.clock.Now().UTC()
	t.armIdle(s)
	return nil
}

// Exit ends the session: the final time on site is written to its latest
// record, the exit event is sent and the session's timers are stopped.
func (t *Tracker) Exit(ctx context.Context, sessionID string) (time.Duration, error) {
	t.mu.Lock()
	s, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return 0, ErrUnknownSession
	}
	elapsed := t.clock.Now().Sub(s.started)
	rec := t.endLocked(s, elapsed)
	t.mu.Unlock()

	t.updateTimeOnSite(ctx, sessionID, rec.TimeOnSite)
	t.notify(notify.KindExit, rec, elapsed)
	return elapsed, nil
}

// endLocked removes the session and stops its timers. t.mu must be held.
func (t *Tracker) endLocked(s *session, elapsed time.Duration) models.VisitorRecord {
	delete(t.sessions, s.id)
	if s.heartbeat != nil {
		s.heartbeat.Stop()
	}
	if s.idle != nil {
		s.idle.Stop()
	}
	s.latest.TimeOnSite = seconds(elapsed)
	return s.latest
}

// armHeartbeat schedules the next periodic update. t.mu must be held.
func (t *Tracker) armHeartbeat(s *session) {
	id := s.id
	s.heartbeat = t.clock.AfterFunc(t.opts.HeartbeatInterval, func() { t.tick(id) })
}

// tick updates the latest record's time on site and re-arms itself. A
// session that has gone quiet for longer than SessionTTL lost its exit
// beacon; it is ended here with the time it was last seen.
func (t *Tracker) tick(id string) {
	t.mu.Lock()
	s, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	now := t.clock.Now()

	if now.Sub(s.lastSeen) > t.opts.SessionTTL {
		elapsed := s.lastSeen.Sub(s.started)
		rec := t.endLocked(s, elapsed)
		t.mu.Unlock()

		slog.Debug("visitor session swept", "session", id)
		t.updateTimeOnSite(t.ctx, id, rec.TimeOnSite)
		t.notify(notify.KindExit, rec, elapsed)
		return
	}

	secs := seconds(now.Sub(s.started))
	s.latest.TimeOnSite = secs
	t.armHeartbeat(s)
	t.mu.Unlock()

	t.updateTimeOnSite(t.ctx, id, secs)
}

// armIdle (re)starts the inactivity timer. t.mu must be held. The
// generation counter discards a callback whose Stop lost the race.
func (t *Tracker) armIdle(s *session) {
	if s.idle != nil {
		s.idle.Stop()
	}
	s.idleGen++
	id, gen := s.id, s.idleGen
	s.idle = t.clock.AfterFunc(t.opts.InactivityTimeout, func() { t.idleFired(id, gen) })
}

func (t *Tracker) idleFired(id string, gen int) {
	t.mu.Lock()
	s, ok := t.sessions[id]
	if !ok || s.idleGen != gen {
		t.mu.Unlock()
		return
	}
	s.idle = nil
	elapsed := t.clock.Now().Sub(s.started)
	rec := s.latest
	t.mu.Unlock()

	t.notify(notify.KindInactive, rec, elapsed)
}

func (t *Tracker) updateTimeOnSite(ctx context.Context, sessionID string, secs int) {
	t.log.UpdateLatest(ctx, sessionID, func(r *models.VisitorRecord) {
		r.TimeOnSite = secs
	})
}

func (t *Tracker) notify(kind notify.Kind, rec models.VisitorRecord, elapsed time.Duration) {
	if t.opts.Notifier == nil {
		return
	}
	t.opts.Notifier.Go(notify.Event{
		Kind:    kind,
		Site:    t.opts.Site,
		Visitor: rec,
		Elapsed: elapsed,
		At:      t.clock.Now().UTC(),
	})
}

// Active returns the number of open sessions.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Close stops every session timer without sending exit events, cancels
// in-flight enrichment and waits for it to finish.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	for _, s := range t.sessions {
		if s.heartbeat != nil {
			s.heartbeat.Stop()
		}
		if s.idle != nil {
			s.idle.Stop()
		}
	}
	clear(t.sessions)
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
}

func seconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
