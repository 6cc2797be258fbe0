// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package telemetry

import (
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// GeoIP resolves locations from a local MaxMind City database. A nil
// *GeoIP is valid and resolves nothing.
type GeoIP struct {
	city *geoip2.Reader
}

// NewGeoIP opens the database at path. An empty path returns nil, nil so
// the caller falls back to the HTTP geo service.
func NewGeoIP(path string) (*GeoIP, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIP{city: r}, nil
}

// Close releases the database.
func (g *GeoIP) Close() error {
	if g == nil || g.city == nil {
		return nil
	}
	return g.city.Close()
}

// Lookup returns "City, Country" for ip, or false when the database has no
// usable record.
func (g *GeoIP) Lookup(ipStr string) (string, bool) {
	if g == nil || g.city == nil {
		return "", false
	}
	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil {
		return "", false
	}
	rec, err := g.city.City(ip)
	if err != nil {
		return "", false
	}
	loc := joinLocation(rec.City.Names["en"], rec.Country.Names["en"])
	return loc, loc != ""
}

// joinLocation formats the non-empty parts as "City, Country".
func joinLocation(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
