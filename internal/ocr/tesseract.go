package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
)

// DefaultTesseractBin is looked up on PATH when no binary is configured.
const DefaultTesseractBin = "tesseract"

// Tesseract runs the tesseract CLI, streaming the image through stdin.
type Tesseract struct {
	bin string
}

// NewTesseract locates the binary; an empty bin searches PATH.
func NewTesseract(bin string) (*Tesseract, error) {
	if bin == "" {
		bin = DefaultTesseractBin
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, apperrors.ConfigInvalid(fmt.Sprintf("tesseract binary %q not found", bin))
	}
	return &Tesseract{bin: path}, nil
}

func (t *Tesseract) Extract(ctx context.Context, image []byte, language string) (string, error) {
	args := []string{"stdin", "stdout"}
	if language != "" {
		args = append(args, "-l", language)
	}
	cmd := exec.CommandContext(ctx, t.bin, args...)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", apperrors.ExtractionFailed(err).WithMetadata("stderr", stderr.String())
	}
	return clean(stdout.String()), nil
}

func (t *Tesseract) Close() error { return nil }
