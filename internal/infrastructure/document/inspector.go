// Package document validates uploaded claim documents before they are stored.
package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
)

// expectedMIME maps an accepted extension to the content type it must sniff as
var expectedMIME = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Inspector implements port.DocumentInspector
type Inspector struct {
	maxSize int64
	logger  *zap.Logger
}

// NewInspector creates an inspector rejecting files larger than maxSize bytes (0 = unlimited)
func NewInspector(maxSize int64, logger *zap.Logger) *Inspector {
	return &Inspector{maxSize: maxSize, logger: logger}
}

// Inspect checks extension, size and sniffed content type. PDFs must open
// and contain at least one page; images must decode their header.
func (i *Inspector) Inspect(ctx context.Context, name string, content []byte) (*port.DocumentInfo, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !entity.AllowedDocumentExtensions[ext] {
		return nil, apperr.Validation("%s: only PDF, JPG, JPEG and PNG files are accepted", name)
	}
	if len(content) == 0 {
		return nil, apperr.Validation("%s: file is empty", name)
	}
	if i.maxSize > 0 && int64(len(content)) > i.maxSize {
		return nil, apperr.Validation("%s: file exceeds the %d byte limit", name, i.maxSize)
	}

	detected := mimetype.Detect(content)
	if !detected.Is(expectedMIME[ext]) {
		i.logger.Debug("Upload content does not match extension",
			zap.String("name", name),
			zap.String("extension", ext),
			zap.String("detected", detected.String()))
		return nil, apperr.Validation("%s: content is %s, not %s", name, detected.String(), expectedMIME[ext])
	}

	info := &port.DocumentInfo{
		Extension: ext,
		MIMEType:  expectedMIME[ext],
		Size:      len(content),
	}

	if ext == ".pdf" {
		pages, err := countPages(content)
		if err != nil {
			return nil, apperr.Validation("%s: PDF could not be opened", name)
		}
		if pages < 1 {
			return nil, apperr.Validation("%s: PDF has no pages", name)
		}
		info.Pages = pages
		return info, nil
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
		return nil, apperr.Validation("%s: image could not be decoded", name)
	}
	info.Pages = 1
	return info, nil
}

func countPages(content []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return 0, err
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

var _ port.DocumentInspector = (*Inspector)(nil)
