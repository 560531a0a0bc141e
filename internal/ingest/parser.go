package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

const (
	MimePDF  = "application/pdf"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrUnsupportedType marks an upload whose MIME type is not accepted.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrFileTooLarge marks an upload over the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// ValidateUpload checks an upload's declared MIME type and size before any
// bytes are stored.
func ValidateUpload(mimeType string, size, maxBytes int64) error {
	switch mimeType {
	case MimePDF, MimeDocx:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, maxBytes)
	}
	return nil
}

// ExtractText pulls plain text out of an uploaded document. Extraction is
// best effort: callers treat a failure as an empty extraction, not as a
// failed upload.
func ExtractText(data []byte, mimeType string) (string, error) {
	switch mimeType {
	case MimePDF:
		return extractPDF(data)
	case MimeDocx:
		return extractDocx(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	totalPages := reader.NumPage()
	var b strings.Builder
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing entirely
			continue
		}
		b.WriteString(text)
		b.WriteString(" ")
	}
	text := normalizeText(b.String())
	if text == "" {
		return "", fmt.Errorf("no text extracted from pdf")
	}
	return text, nil
}

// extractDocx reads word/document.xml out of the OOXML container and collects
// its text nodes. The lenient html tokenizer handles the w:-prefixed markup
// without a full OOXML schema.
func extractDocx(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	var docXML []byte
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("read docx entry: %w", err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read docx content: %w", err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("docx missing word/document.xml")
	}
	doc, err := html.Parse(bytes.NewReader(docXML))
	if err != nil {
		return "", fmt.Errorf("parse docx xml: %w", err)
	}
	text := normalizeText(collectText(doc))
	if text == "" {
		return "", fmt.Errorf("no text extracted from docx")
	}
	return text, nil
}

func collectText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
			buf.WriteString(" ")
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && (node.Data == "w:p" || node.Data == "w:br") {
			buf.WriteString(" ")
		}
	}
	walk(n)
	return buf.String()
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}
