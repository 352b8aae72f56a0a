// Package screen provides platform-agnostic region capture
package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
)

// Backend names accepted by New.
const (
	BackendScreenshot = "screenshot"
	BackendNative     = "native"
)

// Capturer grabs a screen region as PNG bytes.
type Capturer interface {
	Capture(ctx context.Context, region image.Rectangle) ([]byte, error)
	Close()
}

// New returns the capturer for the named backend.
func New(backend string) (Capturer, error) {
	switch backend {
	case "", BackendScreenshot:
		return newScreenshotCapturer(), nil
	case BackendNative:
		tool, ok := nativeTool()
		if !ok {
			slog.Warn("native capture unavailable, falling back", "fallback", BackendScreenshot)
			return newScreenshotCapturer(), nil
		}
		return newToolCapturer(tool)
	default:
		return nil, apperrors.ConfigInvalid(fmt.Sprintf("unknown capture backend %q", backend))
	}
}

// tool runs an external command that writes the region to path.
type tool interface {
	name() string
	capture(ctx context.Context, region image.Rectangle, path string) error
}

// toolCapturer shells out to a platform screenshot tool through a temp file.
type toolCapturer struct {
	tool
	tempDir string
}

func newToolCapturer(t tool) (*toolCapturer, error) {
	dir, err := os.MkdirTemp("", "screenwatch-capture-*")
	if err != nil {
		return nil, apperrors.CaptureUnavailable(err)
	}
	return &toolCapturer{tool: t, tempDir: dir}, nil
}

func (c *toolCapturer) Capture(ctx context.Context, region image.Rectangle) ([]byte, error) {
	if region.Empty() {
		return nil, apperrors.CaptureUnavailable(fmt.Errorf("empty region %v", region))
	}
	path := filepath.Join(c.tempDir, "region.png")
	defer os.Remove(path)

	if err := c.capture(ctx, region, path); err != nil {
		return nil, apperrors.CaptureUnavailable(err).WithMetadata("tool", c.name())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.CaptureUnavailable(err).WithMetadata("tool", c.name())
	}
	if len(data) == 0 {
		return nil, apperrors.CaptureUnavailable(fmt.Errorf("%s produced no image", c.name()))
	}
	return data, nil
}

func (c *toolCapturer) Close() {
	if c.tempDir != "" {
		os.RemoveAll(c.tempDir)
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
