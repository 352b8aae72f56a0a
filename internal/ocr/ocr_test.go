package ocr

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/screenwatch/internal/config"
	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
)

// fakeTesseract writes a shell script standing in for the tesseract CLI.
func fakeTesseract(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tesseract")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestTesseractExtract(t *testing.T) {
	// echo args on the first line, then the stdin payload
	bin := fakeTesseract(t, `echo "$@"; cat; printf '\r\n\n'`)
	tess, err := NewTesseract(bin)
	require.NoError(t, err)

	text, err := tess.Extract(context.Background(), []byte("北京 news"), "chi_sim")
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "stdin stdout -l chi_sim", lines[0])
	assert.Equal(t, "北京 news", lines[1])
}

func TestTesseractNoLanguage(t *testing.T) {
	bin := fakeTesseract(t, `echo "$@"`)
	tess, err := NewTesseract(bin)
	require.NoError(t, err)

	text, err := tess.Extract(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "stdin stdout", text)
}

func TestTesseractFailure(t *testing.T) {
	bin := fakeTesseract(t, `echo "Error opening data file" >&2; exit 1`)
	tess, err := NewTesseract(bin)
	require.NoError(t, err)

	_, err = tess.Extract(context.Background(), []byte("x"), "zzz")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeExtractionFailed))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Metadata["stderr"], "Error opening data file")
}

func TestTesseractCancelled(t *testing.T) {
	bin := fakeTesseract(t, `sleep 5`)
	tess, err := NewTesseract(bin)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tess.Extract(ctx, []byte("x"), "eng")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewTesseractMissingBinary(t *testing.T) {
	_, err := NewTesseract(filepath.Join(t.TempDir(), "no-such-tesseract"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfigInvalid))
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.OCRBackend = "cloud-vision"
	_, err := New(cfg)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfigInvalid))
}

func TestNewGRPCBackend(t *testing.T) {
	cfg := config.Default()
	cfg.OCRBackend = BackendGRPC
	cfg.OCRAddr = "localhost:1"

	// grpc.NewClient connects lazily, so construction succeeds offline.
	ex, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Remote{}, ex)
	assert.NoError(t, ex.Close())
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a\nb", clean("  a\r\nb \n\n"))
	assert.Equal(t, "", clean(" \r\n "))
}
