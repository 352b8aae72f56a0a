package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"testing"
)

func TestShouldProcessFirstFrame(t *testing.T) {
	d := NewDetector()
	if !d.ShouldProcess([]byte("frame-1")) {
		t.Error("first frame must be processed")
	}
	if _, ok := d.Last(); !ok {
		t.Error("Last() should report a stored fingerprint")
	}
}

func TestShouldProcessIdenticalFrames(t *testing.T) {
	d := NewDetector()
	d.ShouldProcess([]byte("frame-1"))

	if d.ShouldProcess([]byte("frame-1")) {
		t.Error("identical frame should be skipped")
	}
	if !d.ShouldProcess([]byte("frame-2")) {
		t.Error("changed frame should be processed")
	}
	if !d.ShouldProcess([]byte("frame-1")) {
		t.Error("only the immediately previous frame is remembered")
	}
}

func TestShouldProcessEmptyInput(t *testing.T) {
	d := NewDetector()
	if !d.ShouldProcess(nil) {
		t.Error("first call is always true, even for empty input")
	}
	if d.ShouldProcess([]byte{}) {
		t.Error("empty input equals nil input")
	}
}

func pngOf(t *testing.T, fill func(x, y int) color.Gray) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func noise(seed uint64) func(x, y int) color.Gray {
	r := rand.New(rand.NewPCG(seed, seed))
	var px [64][64]uint8
	for y := range px {
		for x := range px[y] {
			px[y][x] = uint8(r.IntN(256))
		}
	}
	return func(x, y int) color.Gray { return color.Gray{Y: px[y][x]} }
}

func TestPerceptualSkipsNearDuplicates(t *testing.T) {
	d := NewDetector(WithPerceptual(4))

	fill := noise(1)
	base := pngOf(t, fill)
	// one pixel nudged: bytes differ, picture does not
	nudged := pngOf(t, func(x, y int) color.Gray {
		g := fill(x, y)
		if x == 3 && y == 3 {
			g.Y ^= 1
		}
		return g
	})
	different := pngOf(t, noise(2))

	if !d.ShouldProcess(base) {
		t.Fatal("first frame must be processed")
	}
	if d.ShouldProcess(nudged) {
		t.Error("near-duplicate frame should be skipped")
	}
	if !d.ShouldProcess(different) {
		t.Error("different frame should be processed")
	}
}

func TestPerceptualUndecodableFallsBack(t *testing.T) {
	d := NewDetector(WithPerceptual(10))
	if !d.ShouldProcess([]byte("not an image")) {
		t.Error("first frame must be processed")
	}
	if !d.ShouldProcess([]byte("still not an image")) {
		t.Error("undecodable frames fall back to exact comparison")
	}
}
