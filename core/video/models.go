// Package video manages the educational video catalog. Videos are hosted on YouTube and referenced by URL.
package video

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/genzugar/backend/core"
)

var (
	youtubeRefTag  = "youtube_ref"
	youtubeRefText = "invalid YouTube reference"

	thumbQualityTag  = "thumb_quality"
	thumbQualityText = "quality must be one of maxres, hq, mq or sd"
)

func init() {
	core.RegisterRule(youtubeRefTag, func(fl validator.FieldLevel) bool {
		_, ok := ExtractID(fl.Field().String())
		return ok
	}, youtubeRefText)
	core.RegisterRule(thumbQualityTag, func(fl validator.FieldLevel) bool {
		_, ok := ParseQuality(fl.Field().String())
		return ok
	}, thumbQualityText)
}

type Video struct {
	ID              string      `json:"id" db:"id"`
	Title           string      `json:"title" db:"title"`
	Description     string      `json:"description" db:"description"`
	YouTubeURL      string      `json:"youtube_url" db:"youtube_url"`
	ThumbnailURL    null.String `json:"thumbnail_url" db:"thumbnail_url"`
	DurationMinutes null.Int    `json:"duration_minutes" db:"duration_minutes"`
	Category        null.String `json:"category" db:"category"`
	IsPublished     bool        `json:"is_published" db:"is_published"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// YouTubeID is the identifier resolved from YouTubeURL; "" if it cannot be resolved.
func (v Video) YouTubeID() string {
	id, _ := ExtractID(v.YouTubeURL)
	return id
}

// MarshalJSON adds the resolved identifier and embed URL to the stored fields.
func (v Video) MarshalJSON() ([]byte, error) {
	type video Video
	out := struct {
		video
		YouTubeID string `json:"youtube_id"`
		EmbedURL  string `json:"embed_url"`
	}{video: video(v)}
	if id := v.YouTubeID(); id != "" {
		out.YouTubeID = id
		out.EmbedURL = EmbedURL(id)
	}
	return json.Marshal(out)
}

// NewVideo is the payload of both create and update: an update replaces every field.
type NewVideo struct {
	Title           string `json:"title" validate:"required,notblank,max=255"`
	Description     string `json:"description"`
	YouTubeURL      string `json:"youtube_url" validate:"required,youtube_ref"`
	ThumbnailURL    string `json:"thumbnail_url" validate:"omitempty,url"`
	DurationMinutes *int   `json:"duration_minutes" validate:"omitempty,gte=0"`
	Category        string `json:"category" validate:"max=100"`
	IsPublished     bool   `json:"is_published"`
	// AutoThumbnail replaces ThumbnailURL by the maxres YouTube thumbnail. Defaults to true.
	AutoThumbnail *bool `json:"auto_thumbnail"`
}

func (nv *NewVideo) Validate() error {
	nv.Title = core.CleanString(nv.Title)
	nv.Description = core.CleanString(nv.Description)
	nv.YouTubeURL = core.CleanString(nv.YouTubeURL)
	nv.ThumbnailURL = core.CleanString(nv.ThumbnailURL)
	nv.Category = core.CleanString(nv.Category)
	return core.Validate.Struct(nv)
}

// apply copies nv onto v. The thumbnail is derived from the YouTube reference when auto-thumbnail is on
// or when no thumbnail was given.
func (nv NewVideo) apply(v *Video) {
	v.Title = nv.Title
	v.Description = nv.Description
	v.YouTubeURL = nv.YouTubeURL
	v.Category = null.NewString(nv.Category, nv.Category != "")
	v.IsPublished = nv.IsPublished
	v.DurationMinutes = null.IntFromPtr(nv.DurationMinutes)

	auto := nv.AutoThumbnail == nil || *nv.AutoThumbnail
	v.ThumbnailURL = null.NewString(nv.ThumbnailURL, nv.ThumbnailURL != "")
	if id, ok := ExtractID(nv.YouTubeURL); ok && (auto || nv.ThumbnailURL == "") {
		v.ThumbnailURL = null.StringFrom(ThumbnailURL(id, QualityMaxRes))
	}
}

// Progress records that a user watched a video.
type Progress struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	VideoID     string    `json:"video_id" db:"video_id"`
	Completed   bool      `json:"completed" db:"completed"`
	CompletedAt null.Time `json:"completed_at" db:"completed_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type QueryFilter struct {
	Search        string `query:"search"`
	Category      string `query:"category"`
	PublishedOnly bool   `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
}

// ResolveRequest is the query of the resolver preview endpoint.
type ResolveRequest struct {
	URL     string `query:"url" json:"url" validate:"required,youtube_ref"`
	Quality string `query:"quality" json:"quality" validate:"omitempty,thumb_quality"`
}

func (rr *ResolveRequest) Validate() error {
	rr.URL = core.CleanString(rr.URL)
	return core.Validate.Struct(rr)
}
