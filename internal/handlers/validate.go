// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"studiosite/internal/models"
)

// Validation limits for portfolio and beacon fields.
const (
	maxTitleLen       = 300
	maxCategoryLen    = 100
	maxImageURLLen    = 2_000
	maxDescriptionLen = 20_000
	maxPageLen        = 2_000
	maxReferrerLen    = 2_000
	maxUserAgentLen   = 1_000
	maxScreenLen      = 32
)

// validatePortfolioInput checks a new item and returns the first error found.
func validatePortfolioInput(in models.PortfolioInput) string {
	if strings.TrimSpace(in.Title) == "" {
		return "Title is required."
	}
	if strings.TrimSpace(in.Category) == "" {
		return "Category is required."
	}
	if strings.TrimSpace(in.Description) == "" {
		return "Description is required."
	}
	return validatePortfolioFields(in.Title, in.Category, in.Image, in.Description)
}

// validatePortfolioPatch checks only the fields a patch sets.
func validatePortfolioPatch(p models.PortfolioPatch) string {
	var title, category, image, description string
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return "Title is required."
		}
		title = *p.Title
	}
	if p.Category != nil {
		if strings.TrimSpace(*p.Category) == "" {
			return "Category is required."
		}
		category = *p.Category
	}
	if p.Description != nil {
		if strings.TrimSpace(*p.Description) == "" {
			return "Description is required."
		}
		description = *p.Description
	}
	if p.Image != nil {
		image = *p.Image
	}
	return validatePortfolioFields(title, category, image, description)
}

func validatePortfolioFields(title, category, image, description string) string {
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	if utf8.RuneCountInString(category) > maxCategoryLen {
		return "Category is too long (max 100 characters)."
	}
	if len(image) > maxImageURLLen {
		return "Image URL is too long."
	}
	if image != "" && !isHTTPURL(image) {
		return "Image must be an http(s) URL."
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "Description is too long (max 20,000 characters)."
	}
	return ""
}

// validateVisit checks a visit-start beacon.
func validateVisit(page, referrer, userAgent, screen string) string {
	if page == "" {
		return "Page is required."
	}
	if len(page) > maxPageLen || len(referrer) > maxReferrerLen {
		return "Page or referrer is too long."
	}
	if len(userAgent) > maxUserAgentLen {
		return "User agent is too long."
	}
	if len(screen) > maxScreenLen {
		return "Screen resolution is too long."
	}
	return ""
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
