package inspect

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"docmanager-backend/internal/shared/util"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTXT  = "text/plain"
)

var (
	// ErrUnreadable means the payload does not match the structure its extension promises.
	ErrUnreadable = errors.New("unreadable document")
	// ErrUnsupported means the extension is not one we know how to check.
	ErrUnsupported = errors.New("unsupported document type")
)

// Report summarizes a validated payload.
type Report struct {
	MIMEType   string
	Pages      int
	Characters int
}

// ContentTypeFor maps a filename extension to the content type served on download.
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".txt":
		return MimeTXT
	default:
		return "application/octet-stream"
	}
}

// Inspect checks that content is a well-formed document of the kind its
// extension names.
func Inspect(ctx context.Context, content []byte, filename string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if len(content) == 0 {
		// An empty text file is still a text file.
		if ext == ".txt" {
			return Report{MIMEType: MimeTXT}, nil
		}
		return Report{}, fmt.Errorf("%w: empty file", ErrUnreadable)
	}
	sniffed := util.DetectMIME(content)

	switch ext {
	case ".pdf":
		pages, err := inspectPDF(content)
		if err != nil {
			return Report{}, fmt.Errorf("%w: pdf: %v", ErrUnreadable, err)
		}
		return Report{MIMEType: MimePDF, Pages: pages}, nil
	case ".docx":
		chars, err := inspectDOCX(content)
		if err != nil {
			return Report{}, fmt.Errorf("%w: docx: %v", ErrUnreadable, err)
		}
		return Report{MIMEType: MimeDOCX, Characters: chars}, nil
	case ".txt":
		if !strings.HasPrefix(sniffed, "text/") || !utf8.Valid(content) || bytes.IndexByte(content, 0) >= 0 {
			return Report{}, fmt.Errorf("%w: txt: detected %s", ErrUnreadable, sniffed)
		}
		return Report{MIMEType: sniffed, Characters: utf8.RuneCount(content)}, nil
	default:
		return Report{}, ErrUnsupported
	}
}

// inspectPDF counts pages. The pdf reader panics on malformed structure, so
// a panic is reported as an ordinary parse error.
func inspectPDF(data []byte) (pages int, err error) {
	defer func() {
		if p := recover(); p != nil {
			pages, err = 0, fmt.Errorf("malformed: %v", p)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	pages = r.NumPage()
	if pages < 1 {
		return 0, errors.New("no pages")
	}
	return pages, nil
}

func inspectDOCX(data []byte) (int, error) {
	if !hasWordDocument(data) {
		return 0, errors.New("word/document.xml not found")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	defer doc.Close()
	text := stripDocxXML(doc.Editable().GetContent())
	return utf8.RuneCountInString(text), nil
}

func hasWordDocument(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
