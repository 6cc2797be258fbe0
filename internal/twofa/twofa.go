// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package twofa wraps the TOTP second factor for the single admin account.
// The shared secret comes from configuration; there is no per-user storage.
package twofa

import (
	"fmt"
	"net/url"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// AccountName labels the admin account in authenticator apps.
const AccountName = "admin"

// QRSize is the edge length in pixels of enrolment QR codes.
const QRSize = 256

// Generate creates a new random secret for issuer.
func Generate(issuer string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: AccountName,
	})
	if err != nil {
		return nil, fmt.Errorf("totp generate: %w", err)
	}
	return key, nil
}

// Key rebuilds the otpauth key for an existing base32 secret.
func Key(secret, issuer string) (*otp.Key, error) {
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", issuer)
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + AccountName,
		RawQuery: q.Encode(),
	}
	key, err := otp.NewKeyFromURL(u.String())
	if err != nil {
		return nil, fmt.Errorf("totp key: %w", err)
	}
	return key, nil
}

// QRCode renders the key's otpauth URL as a PNG.
func QRCode(key *otp.Key) ([]byte, error) {
	png, err := qrcode.Encode(key.URL(), qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return png, nil
}

// WriteQRCode renders the key's QR code to a PNG file.
func WriteQRCode(key *otp.Key, path string) error {
	if err := qrcode.WriteFile(key.URL(), qrcode.Medium, QRSize, path); err != nil {
		return fmt.Errorf("qr write %s: %w", path, err)
	}
	return nil
}

// Validate checks a six-digit code against secret at the current time.
func Validate(code, secret string) bool {
	return totp.Validate(code, secret)
}
