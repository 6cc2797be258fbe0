// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"studiosite/internal/storage"
)

const (
	// maxUploadSize is the maximum allowed image upload size (10 MB).
	maxUploadSize = 10 << 20

	// sniffLen is how much of the file header is read for type detection.
	sniffLen = 3072
)

// imageExtensions maps accepted sniffed MIME types to object key extensions.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MediaUpload stores a portfolio image in object storage and returns the
// public URL to put in an item's image field.
func (a *Admin) MediaUpload(w http.ResponseWriter, r *http.Request) {
	if a.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "Object storage is not configured.")
		return
	}

	// Limit request body to maxUploadSize + some overhead for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10 MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid upload form.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided.")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10 MB.")
		return
	}

	// Detect content type from the file header, ignoring the client's claim.
	sniffBuf := make([]byte, sniffLen)
	n, err := io.ReadFull(file, sniffBuf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		writeError(w, http.StatusBadRequest, "Failed to read file.")
		return
	}
	contentType := mimetype.Detect(sniffBuf[:n]).String()
	ext, ok := imageExtensions[contentType]
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, "Only JPEG, PNG, GIF and WebP images are accepted.")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read file.")
		return
	}

	key := storage.ImageKey(time.Now().UTC(), uuid.NewString(), ext)
	if err := a.storage.Upload(r.Context(), key, contentType, file, header.Size); err != nil {
		slog.Error("image upload failed", "key", key, "error", err)
		writeError(w, http.StatusBadGateway, "Upload failed. Please try again.")
		return
	}

	slog.Info("image uploaded", "key", key, "size", header.Size, "type", contentType)
	writeJSON(w, http.StatusCreated, map[string]any{
		"url":         a.storage.FileURL(key),
		"key":         key,
		"contentType": contentType,
		"size":        header.Size,
	})
}
