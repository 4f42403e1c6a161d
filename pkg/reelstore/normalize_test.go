package reelstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "golang", "golang"},
		{"uppercase", "GoLang", "golang"},
		{"spaces", "Deep Learning", "deep-learning"},
		{"surrounding whitespace", "  jazz  ", "jazz"},
		{"punctuation runs", "c++ / systems!!", "c-systems"},
		{"digits", "Top 10", "top-10"},
		{"only punctuation", "---", ""},
		{"empty", "", ""},
		{"unicode stripped", "café", "caf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestNormalizeTagNames(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"empty slice", []string{}, nil},
		{"trims and lowercases", []string{"  Go  ", "MUSIC"}, []string{"go", "music"}},
		{"dedupes by slug keeping first", []string{"Deep Learning", "deep-learning", "jazz"}, []string{"deep learning", "jazz"}},
		{"drops empties", []string{"", "  ", "---", "ok"}, []string{"ok"}},
		{"all dropped", []string{"", "--"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTagNames(tt.in))
		})
	}
}
