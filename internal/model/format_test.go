package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFromExtension(t *testing.T) {
	cases := []struct {
		ext    string
		format FileFormat
		ok     bool
	}{
		{".txt", FormatPlainText, true},
		{"md", FormatPlainText, true},
		{".GO", FormatPlainText, true},
		{".pdf", FormatPdf, true},
		{".docx", FormatDocx, true},
		{".xlsx", FormatXlsx, true},
		{".pptx", FormatPptx, true},
		{".exe", FormatUnknown, false},
		{"", FormatUnknown, false},
	}
	for _, tc := range cases {
		format, ok := FormatFromExtension(tc.ext)
		assert.Equal(t, tc.format, format, "ext %q", tc.ext)
		assert.Equal(t, tc.ok, ok, "ext %q", tc.ext)
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "PlainText", FormatPlainText.String())
	assert.Equal(t, "Unknown", FormatUnknown.String())
	assert.Equal(t, "Unknown", FileFormat(99).String())
}
