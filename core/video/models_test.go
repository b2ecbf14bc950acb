package video

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestNewVideo_apply(t *testing.T) {
	off := false
	ten := 10
	const maxres = "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg"

	tests := []struct {
		name      string
		nv        NewVideo
		wantThumb null.String
	}{
		{
			name:      "auto thumbnail by default",
			nv:        NewVideo{YouTubeURL: "https://youtu.be/dQw4w9WgXcQ", ThumbnailURL: "https://cdn.test/t.jpg"},
			wantThumb: null.StringFrom(maxres),
		},
		{
			name:      "custom thumbnail kept when auto is off",
			nv:        NewVideo{YouTubeURL: "https://youtu.be/dQw4w9WgXcQ", ThumbnailURL: "https://cdn.test/t.jpg", AutoThumbnail: &off},
			wantThumb: null.StringFrom("https://cdn.test/t.jpg"),
		},
		{
			name:      "empty thumbnail derived even when auto is off",
			nv:        NewVideo{YouTubeURL: "dQw4w9WgXcQ", AutoThumbnail: &off, DurationMinutes: &ten},
			wantThumb: null.StringFrom(maxres),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Video
			tt.nv.apply(&v)
			assert.Equal(t, tt.wantThumb, v.ThumbnailURL)
			assert.Equal(t, tt.nv.YouTubeURL, v.YouTubeURL)
		})
	}
}

func TestNewVideo_Validate(t *testing.T) {
	nv := NewVideo{Title: "  Apa itu diabetes?  ", YouTubeURL: "https://vimeo.com/1"}
	err := nv.Validate()
	require.Error(t, err)

	vErrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	require.Len(t, vErrs, 1)
	assert.Equal(t, "youtube_url", vErrs[0].Field())
	assert.Equal(t, "Apa itu diabetes?", nv.Title)

	nv.YouTubeURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	assert.NoError(t, nv.Validate())
}

func TestVideo_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Video{ID: "1", YouTubeURL: "https://youtu.be/dQw4w9WgXcQ"})
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "dQw4w9WgXcQ", m["youtube_id"])
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ", m["embed_url"])
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", m["youtube_url"])
}
