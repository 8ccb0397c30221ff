package extractor

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const threeQuestions = "1. a? A) 1 B) 2 Answer: A\n2. b? A) 3 B) 4 Answer: B\n3. c? A) 5 B) 6 Answer: A"

func TestExtractErrors(t *testing.T) {
	e := New(0, zerolog.Nop())

	if _, err := e.Extract("nothing to see here", 1); !errors.Is(err, ErrNoQuestionsFound) {
		t.Fatalf("expected ErrNoQuestionsFound, got %v", err)
	}

	if _, err := e.Extract(threeQuestions, 10); !errors.Is(err, ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions, got %v", err)
	}

	got, err := e.Extract(threeQuestions, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(got))
	}
}

func TestExtractTruncatesToMax(t *testing.T) {
	tests := []struct {
		name     string
		max      int
		required int
		want     int
	}{
		{"no cap", 0, 1, 3},
		{"cap below parsed", 2, 1, 2},
		{"cap never below required", 2, 3, 3},
		{"cap above parsed", 10, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.max, zerolog.Nop()).Extract(threeQuestions, tt.required)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d questions, got %d", tt.want, len(got))
			}
			if got[0].Text != "a?" {
				t.Errorf("truncation must keep document order, first = %q", got[0].Text)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"bank.docx", FormatDocx, false},
		{"/tmp/BANK.PDF", FormatPDF, false},
		{"bank.doc", "", true},
		{"bank.txt", "", true},
		{"bank", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got (%q, %v), want %q", got, err, tt.want)
			}
		})
	}
}

func TestExtractFileRejectsBeforeReading(t *testing.T) {
	called := false
	e := New(0, zerolog.Nop()).WithReader(FormatPDF, func(context.Context, string) (string, error) {
		called = true
		return "", nil
	})

	_, err := e.ExtractFile(context.Background(), "questions.txt", 1)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if called {
		t.Fatal("reader must not run for an unsupported format")
	}
}

func TestExtractFileUsesReader(t *testing.T) {
	e := New(0, zerolog.Nop()).WithReader(FormatPDF, func(_ context.Context, path string) (string, error) {
		if !strings.HasSuffix(path, ".pdf") {
			t.Errorf("unexpected path %q", path)
		}
		return "1. What is 2+2? A) 3 B) 4 C) 5 Answer: B", nil
	})

	got, err := e.ExtractFile(context.Background(), "bank.pdf", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].CorrectAnswer != "4" {
		t.Fatalf("unexpected questions %#v", got)
	}
}

func TestReadDocx(t *testing.T) {
	path := writeDocx(t, []string{
		"1. What is 2+2?",
		"A) 3",
		"B) 4",
		"C) 5",
		"Answer: B",
	})

	text, err := ReadDocx(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadDocx: %v", err)
	}
	if want := "1. What is 2+2?\n\nA) 3\n\nB) 4\n\nC) 5\n\nAnswer: B"; text != want {
		t.Errorf("ReadDocx = %q, want %q", text, want)
	}

	got, err := New(0, zerolog.Nop()).ExtractFile(context.Background(), path, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 question, got %d", len(got))
	}
	q := got[0]
	if q.Text != "What is 2+2?" || q.CorrectAnswer != "4" || len(q.Options) != 3 {
		t.Fatalf("unexpected question %#v", q)
	}
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

// writeDocx builds a minimal .docx with one paragraph per line.
func writeDocx(t *testing.T, paragraphs []string) string {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		body.WriteString(p)
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() +
		`</w:body></w:document>`

	path := filepath.Join(t.TempDir(), "bank.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"[Content_Types].xml": docxContentTypes,
		"word/document.xml":   doc,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}
