//go:build !gosseract

package ocr

import apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"

func newGosseract() (Extractor, error) {
	return nil, apperrors.ConfigInvalid("gosseract backend requires building with -tags gosseract")
}
