package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		in   string
		want []DBOrdering
	}{
		{in: "", want: nil},
		{in: "title", want: []DBOrdering{{Field: "title", Ascending: true}}},
		{in: "-created_at, title", want: []DBOrdering{{Field: "created_at"}, {Field: "title", Ascending: true}}},
		{in: "-,,", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrdering(tt.in))
		})
	}
}

func TestCleanOrdering(t *testing.T) {
	in := ParseOrdering("-created_at,password_hash,title")
	assert.Equal(t, []DBOrdering{{Field: "created_at"}, {Field: "title", Ascending: true}}, CleanOrdering(in, "title", "created_at"))
	assert.Nil(t, CleanOrdering(nil, "title"))
	assert.Equal(t, "title ASC", DBOrdering{Field: "title", Ascending: true}.String())
	assert.Equal(t, "created_at DESC", DBOrdering{Field: "created_at"}.String())
}
