// Package frame decides whether a captured frame is worth running OCR on.
package frame

import (
	"bytes"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"log/slog"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/screenwatch/internal/fingerprint"
)

// Detector remembers the last processed frame. Not safe for concurrent use;
// the scheduler loop is its only caller.
type Detector struct {
	last fingerprint.Sum
	seen bool

	maxDistance int
	lastHash    *goimagehash.ImageHash
}

// Option configures a Detector.
type Option func(*Detector)

// WithPerceptual also skips frames whose perceptual hash is within
// maxDistance bits of the last processed frame. Zero disables it.
func WithPerceptual(maxDistance int) Option {
	return func(d *Detector) { d.maxDistance = maxDistance }
}

// NewDetector creates a detector with no prior frame.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ShouldProcess reports whether data differs from the last processed frame
// and, if so, records it as the new reference.
func (d *Detector) ShouldProcess(data []byte) bool {
	sum := fingerprint.Of(data)
	if d.seen && sum == d.last {
		return false
	}
	if d.maxDistance > 0 && d.similar(data) {
		return false
	}
	d.last, d.seen = sum, true
	return true
}

// Last returns the fingerprint of the last processed frame.
func (d *Detector) Last() (fingerprint.Sum, bool) {
	return d.last, d.seen
}

// similar compares pHashes. Undecodable frames are never similar, leaving the
// exact comparison in charge. The reference hash only advances on frames that
// get processed, so slow drift still triggers OCR eventually.
func (d *Detector) similar(data []byte) bool {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}
	if d.lastHash == nil {
		d.lastHash = hash
		return false
	}
	dist, err := d.lastHash.Distance(hash)
	if err != nil {
		d.lastHash = hash
		return false
	}
	if dist <= d.maxDistance {
		slog.Debug("skipping OCR due to similar frame", "distance", dist)
		return true
	}
	d.lastHash = hash
	return false
}
