package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/peterskelv123-tech/backend-offline/internal/extractor"
	"github.com/rs/zerolog"
)

// Sentinel errors for document uploads.
var (
	ErrFileTooLarge = errors.New("file too large")
)

var documentContentTypes = map[extractor.Format]string{
	extractor.FormatDocx: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	extractor.FormatPDF:  "application/pdf",
}

// DocumentService stores uploaded question documents.
type DocumentService struct {
	dir      string
	maxBytes int64
	archive  DocumentArchive
	log      zerolog.Logger
}

// NewDocumentService creates a new DocumentService. archive may be nil.
func NewDocumentService(uploadDir string, maxBytes int64, archive DocumentArchive, log zerolog.Logger) *DocumentService {
	return &DocumentService{
		dir:      filepath.Join(uploadDir, "questions"),
		maxBytes: maxBytes,
		archive:  archive,
		log:      log.With().Str("component", "document_service").Logger(),
	}
}

// Save writes an upload to local storage under a unique name and returns
// its path. The format is checked before anything touches the disk.
func (s *DocumentService) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	if _, err := extractor.FormatFromPath(header.Filename); err != nil {
		return "", err
	}
	if s.maxBytes > 0 && header.Size > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.maxBytes)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.New().String() + "-" + sanitizeFilename(header.Filename)
	dest := filepath.Join(s.dir, name)

	dst, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("write file: %w", err)
	}
	return dest, nil
}

// Archive copies a stored document to object storage when configured.
// Failures are logged; the local copy stays authoritative.
func (s *DocumentService) Archive(ctx context.Context, path string) {
	if s.archive == nil {
		return
	}
	format, err := extractor.FormatFromPath(path)
	if err != nil {
		return
	}
	if err := s.archive.Archive(ctx, filepath.Base(path), path, documentContentTypes[format]); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("failed to archive question document")
		return
	}
	s.log.Debug().Str("path", path).Msg("question document archived")
}

// Discard removes a stored document whose exam was never created.
func (s *DocumentService) Discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", path).Msg("failed to remove upload")
	}
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
