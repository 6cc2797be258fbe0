// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EntryType is the discriminant of a site content entry.
type EntryType string

const (
	EntryService EntryType = "service"
	EntryAbout   EntryType = "about"
	EntryContact EntryType = "contact"
	EntryGeneral EntryType = "general"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryService, EntryAbout, EntryContact, EntryGeneral:
		return true
	}
	return false
}

// ErrInvalidEntry wraps every validation failure of a ContentEntry.
var ErrInvalidEntry = errors.New("invalid content entry")

// ServiceContent describes one service the studio offers.
type ServiceContent struct {
	Summary  string   `json:"summary"`
	Body     string   `json:"body"` // markdown
	Features []string `json:"features,omitempty"`
	Icon     string   `json:"icon,omitempty"`
}

// AboutContent is the studio's about-page copy.
type AboutContent struct {
	Headline string       `json:"headline"`
	Body     string       `json:"body"` // markdown
	Team     []TeamMember `json:"team,omitempty"`
}

// TeamMember is one person on the about page.
type TeamMember struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Photo string `json:"photo,omitempty"`
}

// ContactContent holds the published contact details.
type ContactContent struct {
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Hours   string `json:"hours,omitempty"`
}

// GeneralContent is free-form markdown for anything else.
type GeneralContent struct {
	Body string `json:"body"` // markdown
}

// ContentEntry is a tagged variant: exactly the payload named by Type is set.
type ContentEntry struct {
	ID        string    `json:"id"`
	Type      EntryType `json:"type"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Service *ServiceContent `json:"service,omitempty"`
	About   *AboutContent   `json:"about,omitempty"`
	Contact *ContactContent `json:"contact,omitempty"`
	General *GeneralContent `json:"general,omitempty"`
}

// Validate checks the discriminant against the populated payload.
func (e *ContentEntry) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, e.Type)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEntry)
	}

	set := 0
	for _, present := range []bool{e.Service != nil, e.About != nil, e.Contact != nil, e.General != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one payload must be set, got %d", ErrInvalidEntry, set)
	}

	switch e.Type {
	case EntryService:
		if e.Service == nil {
			return fmt.Errorf("%w: service entry needs a service payload", ErrInvalidEntry)
		}
		if strings.TrimSpace(e.Service.Summary) == "" {
			return fmt.Errorf("%w: service summary is required", ErrInvalidEntry)
		}
	case EntryAbout:
		if e.About == nil {
			return fmt.Errorf("%w: about entry needs an about payload", ErrInvalidEntry)
		}
	case EntryContact:
		if e.Contact == nil {
			return fmt.Errorf("%w: contact entry needs a contact payload", ErrInvalidEntry)
		}
		if !strings.Contains(e.Contact.Email, "@") {
			return fmt.Errorf("%w: contact email is invalid", ErrInvalidEntry)
		}
	case EntryGeneral:
		if e.General == nil {
			return fmt.Errorf("%w: general entry needs a general payload", ErrInvalidEntry)
		}
	}
	return nil
}

// Markdown returns the entry's markdown body, if its variant has one.
func (e *ContentEntry) Markdown() string {
	switch {
	case e.Service != nil:
		return e.Service.Body
	case e.About != nil:
		return e.About.Body
	case e.General != nil:
		return e.General.Body
	}
	return ""
}
