// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// Enrichment is the best-effort network metadata attached to a record.
type Enrichment struct {
	IP       string
	Location string
}

// Resolver looks up the public IP and location of a visitor. A partial
// result may be returned together with an error.
type Resolver interface {
	Resolve(ctx context.Context, clientIP string) (Enrichment, error)
}

// Enricher resolves a visitor's location from a public address, using a
// local GeoIP database first and an HTTP geo service second. Lookups are
// never retried.
type Enricher struct {
	client       *http.Client
	geoLookupURL string // "%s" is replaced with the IP
	geo          *GeoIP
}

// NewEnricher creates an enricher. geo may be nil.
func NewEnricher(geoLookupURL string, geo *GeoIP) *Enricher {
	return &Enricher{
		client:       &http.Client{Timeout: 5 * time.Second},
		geoLookupURL: geoLookupURL,
		geo:          geo,
	}
}

// Resolve returns the visitor's IP and location. Only a public address
// identifies the visitor: a private or loopback one leaves both fields
// empty, since any address looked up from here would be the server's own.
func (e *Enricher) Resolve(ctx context.Context, clientIP string) (Enrichment, error) {
	var out Enrichment
	if !isPublicIP(clientIP) {
		return out, nil
	}
	out.IP = strings.TrimSpace(clientIP)

	if loc, ok := e.geo.Lookup(out.IP); ok {
		out.Location = loc
		return out, nil
	}
	if e.geoLookupURL == "" {
		return out, nil
	}

	loc, err := e.lookupGeo(ctx, out.IP)
	if err != nil {
		return out, fmt.Errorf("geo lookup: %w", err)
	}
	out.Location = loc
	return out, nil
}

// VisitorIP picks the address that identifies a visitor. The connection
// address wins when it is public. Otherwise (local development, a proxy
// that is not trusted to forward) the address the browser resolved for
// itself is used, provided it parses as a public address.
func VisitorIP(clientIP, reportedIP string) string {
	if isPublicIP(clientIP) {
		return clientIP
	}
	if isPublicIP(reportedIP) {
		addr, _ := netip.ParseAddr(strings.TrimSpace(reportedIP))
		return addr.Unmap().String()
	}
	return clientIP
}

// isPublicIP reports whether s is a globally routable address.
func isPublicIP(s string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsGlobalUnicast() && !addr.IsPrivate()
}

func (e *Enricher) lookupGeo(ctx context.Context, ip string) (string, error) {
	endpoint := strings.ReplaceAll(e.geoLookupURL, "%s", url.PathEscape(ip))
	var body struct {
		City        string `json:"city"`
		CountryName string `json:"country_name"`
		Error       bool   `json:"error"`
		Reason      string `json:"reason"`
	}
	if err := e.getJSON(ctx, endpoint, &body); err != nil {
		return "", err
	}
	if body.Error {
		return "", fmt.Errorf("service error: %s", body.Reason)
	}
	loc := joinLocation(body.City, body.CountryName)
	if loc == "" {
		return "", errors.New("empty location")
	}
	return loc, nil
}

func (e *Enricher) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
