package indexer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"llmproxy/internal/model"
)

// ExtractText pulls plain text out of a file according to its format.
func ExtractText(path string, format model.FileFormat) (string, error) {
	switch format {
	case model.FormatPlainText:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read text file failed: %w", err)
		}
		return string(data), nil
	case model.FormatPdf:
		return extractPDF(path)
	case model.FormatDocx:
		return extractDocx(path)
	case model.FormatXlsx:
		return extractXlsx(path)
	case model.FormatPptx:
		return extractPptx(path)
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func extractPDF(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("parse pdf failed: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return string(out), nil
}

// extractDocx reads the main document part of the OOXML package and joins
// the <w:t> text runs.
func extractDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx failed: %w", err)
	}
	defer archive.Close()

	for _, f := range archive.File {
		if f.Name != "word/document.xml" {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open docx document part failed: %w", err)
		}
		defer r.Close()
		return collectXMLText(r, "t")
	}
	return "", fmt.Errorf("no word/document.xml found in %s", path)
}

func extractXlsx(path string) (string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx failed: %w", err)
	}
	defer wb.Close()

	var lines []string
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, "\t"))
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// extractPptx joins the <a:t> text runs of every slide part.
func extractPptx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open pptx failed: %w", err)
	}
	defer archive.Close()

	var slides []string
	for _, f := range archive.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		r, err := f.Open()
		if err != nil {
			continue
		}
		text, err := collectXMLText(r, "t")
		r.Close()
		if err == nil && text != "" {
			slides = append(slides, text)
		}
	}
	return strings.Join(slides, "\n\n"), nil
}

// collectXMLText concatenates the character data of every element whose
// local name matches, space separated.
func collectXMLText(r io.Reader, local string) (string, error) {
	decoder := xml.NewDecoder(r)
	var texts []string
	depth := 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode xml failed: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == local {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == local && depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 && len(t) > 0 {
				texts = append(texts, string(t))
			}
		}
	}
	return strings.Join(texts, " "), nil
}
