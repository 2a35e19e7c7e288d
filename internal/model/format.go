package model

import "strings"

// FileFormat identifies which parser handles a file during indexing.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatPlainText
	FormatPdf
	FormatDocx
	FormatXlsx
	FormatPptx
)

func (f FileFormat) String() string {
	switch f {
	case FormatPlainText:
		return "PlainText"
	case FormatPdf:
		return "Pdf"
	case FormatDocx:
		return "Docx"
	case FormatXlsx:
		return "Xlsx"
	case FormatPptx:
		return "Pptx"
	default:
		return "Unknown"
	}
}

// FormatFromExtension maps a file extension (with or without the leading dot)
// to its parser format. Unrecognized extensions report ok=false and are
// excluded from indexing.
func FormatFromExtension(ext string) (FileFormat, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "txt", "md", "rs", "py", "js", "ts", "go", "json", "yaml", "yml", "toml":
		return FormatPlainText, true
	case "pdf":
		return FormatPdf, true
	case "docx":
		return FormatDocx, true
	case "xlsx":
		return FormatXlsx, true
	case "pptx":
		return FormatPptx, true
	default:
		return FormatUnknown, false
	}
}
