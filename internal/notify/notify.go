// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package notify fans visitor events out to outbound channels (an email
// relay plus optional Slack and Discord webhooks). Each channel handles
// its own HTTP call and payload format. The Dispatcher runs them in
// parallel and isolates their failures from one another.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"studiosite/internal/models"
)

// Kind identifies what happened to the visitor.
type Kind string

const (
	KindNewVisitor Kind = "new_visitor"
	KindExit       Kind = "exit"
	KindInactive   Kind = "inactive"
)

// Event is the payload every channel formats its message from.
type Event struct {
	Kind    Kind
	Site    string
	Visitor models.VisitorRecord
	Elapsed time.Duration // time since the visit started
	At      time.Time
}

// Field is one labelled value of an event, rendered as an attachment or
// embed field by the chat channels and as a line by the email relay.
type Field struct {
	Name  string
	Value string
}

// Title returns the one-line headline for the event.
func (e Event) Title() string {
	switch e.Kind {
	case KindExit:
		return fmt.Sprintf("Visitor left %s", e.Site)
	case KindInactive:
		return fmt.Sprintf("Visitor inactive on %s", e.Site)
	default:
		return fmt.Sprintf("New visitor on %s", e.Site)
	}
}

// Fields returns the labelled values shown for the event. Empty values
// (an enrichment that never completed, a missing referrer) are left out.
func (e Event) Fields() []Field {
	v := e.Visitor
	candidates := []Field{
		{"Page", v.Page},
		{"Device", string(v.Device)},
		{"Browser", v.Browser},
		{"OS", v.OS},
		{"Screen", v.ScreenResolution},
		{"Referrer", v.Referrer},
		{"Location", v.Location},
		{"IP", v.IP},
	}
	if e.Kind != KindNewVisitor {
		candidates = append(candidates, Field{"Time on site", formatElapsed(e.Elapsed)})
	}

	fields := make([]Field, 0, len(candidates))
	for _, f := range candidates {
		if strings.TrimSpace(f.Value) != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// Text renders the event as a plain-text message body.
func (e Event) Text() string {
	var b strings.Builder
	b.WriteString(e.Title())
	b.WriteString("\n\n")
	for _, f := range e.Fields() {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Value)
	}
	fmt.Fprintf(&b, "At: %s\n", e.At.UTC().Format(time.RFC1123))
	return b.String()
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// Channel defines the interface every outbound channel implements.
type Channel interface {
	// Send delivers the event. It returns an error when the endpoint is
	// unreachable or rejects the message.
	Send(ctx context.Context, ev Event) error

	// Name returns the channel identifier (e.g., "email", "slack").
	Name() string
}

// IsPlaceholder reports whether a configured endpoint is unset or still
// holds a template value such as "YOUR_WEBHOOK_URL".
func IsPlaceholder(endpoint string) bool {
	s := strings.TrimSpace(endpoint)
	if s == "" {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(s, "YOUR_") ||
		strings.Contains(lower, "your-") ||
		strings.Contains(lower, "example.com")
}

// DefaultTimeout bounds a fire-and-forget dispatch.
const DefaultTimeout = 10 * time.Second

// Dispatcher fans events out to its channels. All methods are safe for
// concurrent use.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given channels. Nil entries
// are dropped.
func NewDispatcher(channels ...Channel) *Dispatcher {
	d := &Dispatcher{timeout: DefaultTimeout}
	for _, ch := range channels {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}
	return d
}

// Channels returns the names of the active channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Dispatch sends the event to every channel in parallel and waits for all
// of them. One channel failing never stops the others. The returned error
// joins the failures, each prefixed with its channel name.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	if len(d.channels) == 0 {
		return nil
	}

	errs := make([]error, len(d.channels))
	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%s: panic: %v", ch.Name(), r)
				}
			}()
			if err := ch.Send(ctx, ev); err != nil {
				errs[i] = fmt.Errorf("%s: %w", ch.Name(), err)
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Go dispatches in the background and returns immediately. Failures are
// logged, never returned.
func (d *Dispatcher) Go(ev Event) {
	if len(d.channels) == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.Dispatch(ctx, ev); err != nil {
			slog.Warn("notification delivery failed", "kind", ev.Kind, "error", err)
		}
	}()
}

// Wait blocks until every background dispatch started by Go has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
