package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "already clean",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "collapses spaces and tabs",
			input: "hello \t  world",
			want:  "hello world",
		},
		{
			name:  "windows line endings",
			input: "line one\r\nline two",
			want:  "line one\nline two",
		},
		{
			name:  "collapses excess blank lines",
			input: "para one\n\n\n\n\npara two",
			want:  "para one\n\npara two",
		},
		{
			name:  "preserves single blank line",
			input: "para one\n\npara two",
			want:  "para one\n\npara two",
		},
		{
			name:  "strips control characters",
			input: "hel\x00lo\x07 world",
			want:  "hello world",
		},
		{
			name:  "trims surrounding whitespace",
			input: "\n\n  content  \n\n",
			want:  "content",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: " \t\n \n ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}
