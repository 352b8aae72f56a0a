//go:build gosseract

package ocr

import (
	"context"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
)

// Gosseract binds libtesseract in-process. The client is not safe for
// concurrent use, so calls are serialized.
type Gosseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func newGosseract() (Extractor, error) {
	return &Gosseract{client: gosseract.NewClient()}, nil
}

func (g *Gosseract) Extract(ctx context.Context, image []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if language != "" {
		if err := g.client.SetLanguage(language); err != nil {
			return "", apperrors.ExtractionFailed(err)
		}
	}
	if err := g.client.SetImageFromBytes(image); err != nil {
		return "", apperrors.ExtractionFailed(err)
	}
	text, err := g.client.Text()
	if err != nil {
		return "", apperrors.ExtractionFailed(err)
	}
	return clean(text), nil
}

func (g *Gosseract) Close() error { return g.client.Close() }
