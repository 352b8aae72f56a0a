//go:build linux

package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
)

type scrotTool struct{}

func (scrotTool) name() string { return "scrot" }

func (scrotTool) capture(ctx context.Context, r image.Rectangle, path string) error {
	area := fmt.Sprintf("%d,%d,%d,%d", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	return run(exec.CommandContext(ctx, "scrot", "-o", "-a", area, path))
}

// importTool uses ImageMagick's import against the root window.
type importTool struct{}

func (importTool) name() string { return "import" }

func (importTool) capture(ctx context.Context, r image.Rectangle, path string) error {
	crop := fmt.Sprintf("%dx%d+%d+%d", r.Dx(), r.Dy(), r.Min.X, r.Min.Y)
	return run(exec.CommandContext(ctx, "import", "-silent", "-window", "root", "-crop", crop, path))
}

func run(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", cmd.Path, err, stderr.String())
	}
	return nil
}

// nativeTool prefers scrot, then ImageMagick.
func nativeTool() (tool, bool) {
	if _, err := exec.LookPath("scrot"); err == nil {
		return scrotTool{}, true
	}
	if _, err := exec.LookPath("import"); err == nil {
		return importTool{}, true
	}
	return nil, false
}
