// Package ebook manages the e-book library and the reading progress of learners.
package ebook

import (
	"io"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/genzugar/backend/core"
)

type Ebook struct {
	ID                   string      `json:"id" db:"id"`
	Title                string      `json:"title" db:"title"`
	Description          string      `json:"description" db:"description"`
	Author               null.String `json:"author" db:"author"`
	DocumentURL          string      `json:"document_url" db:"document_url"`
	ThumbnailURL         null.String `json:"thumbnail_url" db:"thumbnail_url"`
	Category             null.String `json:"category" db:"category"`
	EstimatedReadMinutes null.Int    `json:"estimated_read_minutes" db:"estimated_read_minutes"`
	IsPublished          bool        `json:"is_published" db:"is_published"`
	CreatedAt            time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt            time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// Progress is the reading state of one e-book for one user.
type Progress struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	EbookID     string    `json:"ebook_id" db:"ebook_id"`
	Completed   bool      `json:"completed" db:"completed"`
	LastPage    int       `json:"last_page" db:"last_page"`
	CompletedAt null.Time `json:"completed_at" db:"completed_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`     // UTC
}

// NewEbook is the payload of both create and update.
// DocumentURL and ThumbnailURL are ignored when the matching file is uploaded.
type NewEbook struct {
	Title                string `json:"title" form:"title" validate:"required,notblank,max=255"`
	Description          string `json:"description" form:"description"`
	Author               string `json:"author" form:"author" validate:"max=255"`
	DocumentURL          string `json:"document_url" form:"document_url" validate:"omitempty,url"`
	ThumbnailURL         string `json:"thumbnail_url" form:"thumbnail_url" validate:"omitempty,url"`
	Category             string `json:"category" form:"category" validate:"max=100"`
	EstimatedReadMinutes *int   `json:"estimated_read_minutes" form:"estimated_read_minutes" validate:"omitempty,gte=0"`
	IsPublished          bool   `json:"is_published" form:"is_published"`
}

// Validate cleans and validates ne. A document is required: either a URL or an uploaded file.
func (ne *NewEbook) Validate(files Files) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Author = core.CleanString(ne.Author)
	ne.DocumentURL = core.CleanString(ne.DocumentURL)
	ne.ThumbnailURL = core.CleanString(ne.ThumbnailURL)
	ne.Category = core.CleanString(ne.Category)

	if err := core.Validate.Struct(ne); err != nil {
		return err
	}
	if ne.DocumentURL == "" && files.Document == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "document_url", Error: "upload a document or provide its URL"})
	}
	return nil
}

func (ne NewEbook) apply(eb *Ebook) {
	eb.Title = ne.Title
	eb.Description = ne.Description
	eb.Author = null.NewString(ne.Author, ne.Author != "")
	eb.DocumentURL = ne.DocumentURL
	eb.ThumbnailURL = null.NewString(ne.ThumbnailURL, ne.ThumbnailURL != "")
	eb.Category = null.NewString(ne.Category, ne.Category != "")
	eb.EstimatedReadMinutes = null.IntFromPtr(ne.EstimatedReadMinutes)
	eb.IsPublished = ne.IsPublished
}

// Upload is a file sent along with a NewEbook.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Files holds the optional uploads of a create or update.
type Files struct {
	Document  *Upload
	Thumbnail *Upload
}

// SaveProgress is what the reader sends while a learner reads.
type SaveProgress struct {
	LastPage  int  `json:"last_page" validate:"gte=0"`
	Completed bool `json:"completed"`
}

func (sp SaveProgress) Validate() error { return core.Validate.Struct(sp) }

type QueryFilter struct {
	Search        string `query:"search"`
	Category      string `query:"category"`
	PublishedOnly bool   `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
}
