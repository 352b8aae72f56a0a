package screen

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
)

// displayBounds returns the bounds of every active display.
var displayBounds = func() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}

var captureRect = screenshot.CaptureRect

// screenshotCapturer reads pixels straight from the display server.
type screenshotCapturer struct{}

func newScreenshotCapturer() *screenshotCapturer { return &screenshotCapturer{} }

func (c *screenshotCapturer) Capture(ctx context.Context, region image.Rectangle) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkOnScreen(region, displayBounds()); err != nil {
		return nil, err
	}
	img, err := captureRect(region)
	if err != nil {
		return nil, apperrors.CaptureUnavailable(err)
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, apperrors.CaptureUnavailable(err)
	}
	return data, nil
}

func (c *screenshotCapturer) Close() {}

// checkOnScreen requires region to lie inside a single display.
func checkOnScreen(region image.Rectangle, displays []image.Rectangle) error {
	if region.Empty() {
		return apperrors.CaptureUnavailable(fmt.Errorf("empty region %v", region))
	}
	if len(displays) == 0 {
		return apperrors.CaptureUnavailable(fmt.Errorf("no active displays"))
	}
	for _, d := range displays {
		if region.In(d) {
			return nil
		}
	}
	return apperrors.CaptureUnavailable(fmt.Errorf("region %v is off-screen", region)).
		WithMetadata("displays", fmt.Sprint(displays))
}
