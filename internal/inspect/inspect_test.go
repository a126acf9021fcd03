package inspect

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"docmanager-backend/internal/inspect/inspecttest"
)

func TestInspectPDF(t *testing.T) {
	report, err := Inspect(context.Background(), inspecttest.PDF(), "report.pdf")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if report.MIMEType != MimePDF || report.Pages != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestInspectRejectsMismatchedPDF(t *testing.T) {
	_, err := Inspect(context.Background(), []byte("just some text"), "report.pdf")
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestInspectCorruptPDFIsUnreadable(t *testing.T) {
	_, err := Inspect(context.Background(), inspecttest.CorruptPDF(), "report.pdf")
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestInspectPDFMutationsNeverPanic(t *testing.T) {
	original := inspecttest.PDF()
	check := func(data []byte) {
		t.Helper()
		defer func() {
			if p := recover(); p != nil {
				t.Fatalf("Inspect panicked: %v", p)
			}
		}()
		if _, err := Inspect(context.Background(), data, "report.pdf"); err != nil && !errors.Is(err, ErrUnreadable) {
			t.Fatalf("expected nil or ErrUnreadable, got %v", err)
		}
	}

	for i := range original {
		for _, b := range []byte{0, '<', '>', '/', ' ', 'x', '9'} {
			mutated := append([]byte(nil), original...)
			mutated[i] = b
			check(mutated)
		}
	}
	for n := 1; n < len(original); n += 7 {
		check(original[:n])
	}
}

func TestInspectDOCX(t *testing.T) {
	report, err := Inspect(context.Background(), inspecttest.DOCX("hello"), "notes.docx")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if report.MIMEType != MimeDOCX {
		t.Fatalf("unexpected mime: %s", report.MIMEType)
	}
	if report.Characters != len("hello") {
		t.Fatalf("expected 5 characters, got %d", report.Characters)
	}
}

func TestInspectRejectsPlainZipAsDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = Inspect(context.Background(), buf.Bytes(), "notes.docx")
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestInspectTXT(t *testing.T) {
	report, err := Inspect(context.Background(), []byte("héllo"), "notes.txt")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if report.Characters != 5 {
		t.Fatalf("expected 5 runes, got %d", report.Characters)
	}

	if _, err := Inspect(context.Background(), inspecttest.PDF(), "notes.txt"); !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected binary payload to be rejected, got %v", err)
	}
	empty, err := Inspect(context.Background(), nil, "notes.txt")
	if err != nil {
		t.Fatalf("expected empty text file to be accepted, got %v", err)
	}
	if empty.MIMEType != MimeTXT || empty.Characters != 0 {
		t.Fatalf("unexpected report for empty text file: %+v", empty)
	}
	if _, err := Inspect(context.Background(), nil, "report.pdf"); !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected empty pdf to be rejected, got %v", err)
	}
}

func TestInspectUnsupported(t *testing.T) {
	if _, err := Inspect(context.Background(), []byte("x"), "image.png"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.PDF":  MimePDF,
		"a.docx": MimeDOCX,
		"a.txt":  MimeTXT,
		"a.bin":  "application/octet-stream",
		"noext":  "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentTypeFor(name); got != want {
			t.Fatalf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
