//go:build darwin

package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
)

type screencaptureTool struct{}

func (screencaptureTool) name() string { return "screencapture" }

// -x: no sound, -R: region in points
func (screencaptureTool) capture(ctx context.Context, r image.Rectangle, path string) error {
	rect := fmt.Sprintf("%d,%d,%d,%d", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-R", rect, "-t", "png", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("screencapture: %w: %s", err, stderr.String())
	}
	return nil
}

func nativeTool() (tool, bool) {
	if _, err := exec.LookPath("screencapture"); err != nil {
		return nil, false
	}
	return screencaptureTool{}, true
}
