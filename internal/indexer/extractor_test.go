package indexer

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmproxy/internal/model"
)

func writeZip(t *testing.T, path string, parts map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range parts {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestExtractPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain content"), 0o644))

	text, err := ExtractText(path, model.FormatPlainText)
	require.NoError(t, err)
	assert.Equal(t, "plain content", text)
}

func TestExtractDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.docx")
	writeZip(t, path, map[string]string{
		"word/document.xml": `<?xml version="1.0"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
			`<w:body><w:p><w:r><w:t>hello</w:t></w:r><w:r><w:t>world</w:t></w:r></w:p></w:body>` +
			`</w:document>`,
	})

	text, err := ExtractText(path, model.FormatDocx)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestExtractDocxMissingDocumentPart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.docx")
	writeZip(t, path, map[string]string{"other.xml": "<a/>"})

	_, err := ExtractText(path, model.FormatDocx)
	assert.Error(t, err)
}

func TestExtractPptx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	writeZip(t, path, map[string]string{
		"ppt/slides/slide1.xml": `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="x">` +
			`<a:t>slide one</a:t></p:sld>`,
		"ppt/slides/slide2.xml": `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="x">` +
			`<a:t>slide two</a:t></p:sld>`,
		"ppt/other.xml": `<x><a:t xmlns:a="x">not a slide</a:t></x>`,
	})

	text, err := ExtractText(path, model.FormatPptx)
	require.NoError(t, err)
	assert.Contains(t, text, "slide one")
	assert.Contains(t, text, "slide two")
	assert.NotContains(t, text, "not a slide")
}

func TestExtractCorruptPdf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := ExtractText(path, model.FormatPdf)
	assert.Error(t, err)
}

func TestExtractUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := ExtractText(path, model.FormatUnknown)
	assert.Error(t, err)
}
