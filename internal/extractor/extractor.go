// Package extractor turns uploaded question documents into structured
// multiple-choice questions.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/peterskelv123-tech/backend-offline/internal/metrics"
	"github.com/rs/zerolog"
)

var (
	ErrUnsupportedFormat     = errors.New("unsupported file format, only .docx or .pdf allowed")
	ErrNoQuestionsFound      = errors.New("no valid questions found in the file")
	ErrInsufficientQuestions = errors.New("question bank has to contain at least as many questions as students are to answer")
)

// Format is a supported document kind.
type Format string

const (
	FormatDocx Format = "docx"
	FormatPDF  Format = "pdf"
)

// FormatFromPath resolves the document kind from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "docx":
		return FormatDocx, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// TextReader returns the raw text content of a document on disk.
type TextReader func(ctx context.Context, path string) (string, error)

// Extractor reads documents and parses them into questions.
type Extractor struct {
	maxQuestions int
	readers      map[Format]TextReader
	log          zerolog.Logger
}

// New creates an Extractor. maxQuestions caps the size of the parsed bank;
// zero or negative means no cap.
func New(maxQuestions int, log zerolog.Logger) *Extractor {
	return &Extractor{
		maxQuestions: maxQuestions,
		readers: map[Format]TextReader{
			FormatDocx: ReadDocx,
			FormatPDF:  ReadPDF,
		},
		log: log.With().Str("component", "extractor").Logger(),
	}
}

// WithReader overrides the text reader for one format.
func (e *Extractor) WithReader(f Format, r TextReader) *Extractor {
	e.readers[f] = r
	return e
}

// ExtractFile reads the document at path and extracts questions from it.
// required is the number of questions each student will be asked.
func (e *Extractor) ExtractFile(ctx context.Context, path string, required int) ([]Question, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	read, ok := e.readers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	text, err := read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s document: %w", format, err)
	}
	if format == FormatDocx {
		text = PrepareDocx(text)
	}

	return e.Extract(text, required)
}

// Extract parses text and enforces the bank size constraints.
func (e *Extractor) Extract(text string, required int) ([]Question, error) {
	res := Parse(text)

	if res.Mismatch() {
		metrics.ExtractionMismatches.Inc()
		e.log.Warn().
			Int("blocks", res.Blocks).
			Int("answers", res.AnswerLetters).
			Msg("Question blocks and answer letters are not aligned; answers were paired by position")
	}
	if res.Dropped > 0 {
		e.log.Debug().Int("dropped", res.Dropped).Msg("Dropped blocks without question text or options")
	}

	if len(res.Questions) == 0 {
		return nil, ErrNoQuestionsFound
	}
	if required > len(res.Questions) {
		return nil, fmt.Errorf("%w: need %d, parsed %d", ErrInsufficientQuestions, required, len(res.Questions))
	}

	questions := res.Questions
	if limit := e.limit(required); limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}

	metrics.QuestionsExtracted.Add(float64(len(questions)))
	return questions, nil
}

// limit never truncates below the number of questions students must answer.
func (e *Extractor) limit(required int) int {
	if e.maxQuestions <= 0 {
		return 0
	}
	if e.maxQuestions < required {
		return required
	}
	return e.maxQuestions
}
