package video

import (
	"fmt"
	"regexp"
	"strings"
)

// Quality is a YouTube thumbnail resolution.
type Quality string

const (
	QualityMaxRes Quality = "maxres"
	QualityHigh   Quality = "hq"
	QualityMedium Quality = "mq"
	QualityStd    Quality = "sd"
)

var (
	urlRegex    = regexp.MustCompile(`(?:youtube\.com\/watch\?v=|youtu\.be\/|youtube\.com\/embed\/)([^&\n?#]+)`)
	bareIDRegex = regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`)
	thumbSuffix = map[Quality]string{
		QualityMaxRes: "maxresdefault",
		QualityHigh:   "hqdefault",
		QualityMedium: "mqdefault",
		QualityStd:    "sddefault",
	}
)

// ExtractID returns the video identifier from a YouTube watch, short or embed URL, or from a bare
// 11-character identifier. The URL forms are tried first.
func ExtractID(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if m := urlRegex.FindStringSubmatch(ref); m != nil {
		return m[1], true
	}
	if m := bareIDRegex.FindStringSubmatch(ref); m != nil {
		return m[1], true
	}
	return "", false
}

// ThumbnailURL builds the static thumbnail URL of a video. An unknown quality falls back to maxres.
func ThumbnailURL(id string, q Quality) string {
	suffix, ok := thumbSuffix[q]
	if !ok {
		suffix = thumbSuffix[QualityMaxRes]
	}
	return fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", id, suffix)
}

// EmbedURL builds the player URL of a video.
func EmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id
}

// ParseQuality maps a request value to a Quality; "" maps to maxres.
func ParseQuality(s string) (Quality, bool) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if q == "" {
		return QualityMaxRes, true
	}
	_, ok := thumbSuffix[q]
	return q, ok
}

// Reference is the resolved form of a YouTube reference.
type Reference struct {
	ID           string `json:"youtube_id"`
	EmbedURL     string `json:"embed_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Resolve resolves ref into its identifier, embed and thumbnail URLs.
func Resolve(ref string, q Quality) (Reference, bool) {
	id, ok := ExtractID(ref)
	if !ok {
		return Reference{}, false
	}
	return Reference{ID: id, EmbedURL: EmbedURL(id), ThumbnailURL: ThumbnailURL(id, q)}, true
}
