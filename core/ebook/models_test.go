package ebook

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genzugar/backend/core"
)

func TestObjectKey(t *testing.T) {
	now := time.Unix(1700000000, 123_000_000)
	tests := []struct {
		folder, filename, want string
	}{
		{DocumentsFolder, "panduan.pdf", "documents/1700000000123-panduan.pdf"},
		{DocumentsFolder, "Panduan  Diabetes\tRemaja.pdf", "documents/1700000000123-Panduan_Diabetes_Remaja.pdf"},
		{ThumbnailsFolder, "sampul depan.png", "thumbnails/1700000000123-sampul_depan.png"},
		{ThumbnailsFolder, "../../etc/passwd", "thumbnails/1700000000123-passwd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ObjectKey(tt.folder, tt.filename, now))
	}
}

func TestNewEbook_Validate(t *testing.T) {
	ne := NewEbook{Title: " Panduan "}
	err := ne.Validate(Files{})
	require.Error(t, err)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "document_url", vErr.Fields[0].Field)
	assert.Equal(t, "Panduan", ne.Title)

	// an uploaded document replaces the URL
	assert.NoError(t, ne.Validate(Files{Document: &Upload{Filename: "a.pdf", Body: strings.NewReader("%PDF")}}))

	ne.DocumentURL = "not a url"
	assert.Error(t, ne.Validate(Files{}))

	ne.DocumentURL = "https://cdn.test/a.pdf"
	assert.NoError(t, ne.Validate(Files{}))
}
