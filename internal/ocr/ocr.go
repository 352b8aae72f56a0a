// Package ocr turns captured region images into text.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/screenwatch/internal/config"
	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
	"github.com/GriffinCanCode/screenwatch/internal/grpcclient"
)

// Backend names accepted by New.
const (
	BackendTesseract = "tesseract"
	BackendGRPC      = "grpc"
	BackendGosseract = "gosseract"
)

// Extractor recognizes text in an encoded image. An image without text
// yields "" and a nil error.
type Extractor interface {
	Extract(ctx context.Context, image []byte, language string) (string, error)
	Close() error
}

// New builds the extractor selected by cfg.OCRBackend.
func New(cfg *config.Config) (Extractor, error) {
	switch cfg.OCRBackend {
	case "", BackendTesseract:
		return NewTesseract("")
	case BackendGRPC:
		c, err := grpcclient.New(cfg.OCRAddr)
		if err != nil {
			return nil, err
		}
		return &Remote{client: c}, nil
	case BackendGosseract:
		return newGosseract()
	default:
		return nil, apperrors.ConfigInvalid(fmt.Sprintf("unknown ocr backend %q", cfg.OCRBackend))
	}
}

// Remote delegates recognition to the OCR gRPC service.
type Remote struct {
	client *grpcclient.Client
}

func (r *Remote) Extract(ctx context.Context, image []byte, language string) (string, error) {
	text, err := r.client.ExtractText(ctx, image, "png", language)
	if err != nil {
		return "", err
	}
	return clean(text), nil
}

func (r *Remote) Close() error { return r.client.Close() }

// clean trims surrounding whitespace and normalizes line endings.
func clean(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}
