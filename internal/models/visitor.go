// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// DeviceType is the coarse device class inferred from the user agent.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
	DeviceTablet  DeviceType = "tablet"
)

// Unknown is reported for browsers and operating systems that match none
// of the known patterns.
const Unknown = "Unknown"

// VisitorRecord is one captured page view. Everything except TimeOnSite and
// the best-effort IP/Location enrichment is fixed at creation.
type VisitorRecord struct {
	Timestamp        time.Time  `json:"timestamp"`
	SessionID        string     `json:"sessionId"`
	Page             string     `json:"page"`
	UserAgent        string     `json:"userAgent"`
	Referrer         string     `json:"referrer"`
	IP               string     `json:"ip,omitempty"`
	Location         string     `json:"location,omitempty"`
	Device           DeviceType `json:"device"`
	Browser          string     `json:"browser"`
	OS               string     `json:"os"`
	ScreenResolution string     `json:"screenResolution"`
	TimeOnSite       int        `json:"timeOnSite"` // seconds
}

// VisitorStats aggregates the rolling log for the analytics view.
type VisitorStats struct {
	Total             int            `json:"total"`
	UniqueSessions    int            `json:"uniqueSessions"`
	AverageTimeOnSite float64        `json:"averageTimeOnSite"`
	Devices           map[string]int `json:"devices"`
	Browsers          map[string]int `json:"browsers"`
	OperatingSystems  map[string]int `json:"operatingSystems"`
	Pages             map[string]int `json:"pages"`
}
