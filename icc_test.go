package dezoomify

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestJPEGICCProfileRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	profile := bytes.Repeat([]byte{0xAB, 0xCD}, 40000) // force multi-chunk split
	withICC := injectJPEGMetadata(buf.Bytes(), profile, nil)
	got := extractJPEGICCProfile(withICC)
	if !bytes.Equal(got, profile) {
		t.Fatalf("round-tripped ICC profile mismatch: got %d bytes, want %d", len(got), len(profile))
	}
	if _, err := jpeg.Decode(bytes.NewReader(withICC)); err != nil {
		t.Fatalf("image with injected ICC segment is no longer valid JPEG: %v", err)
	}
}

func TestJPEGEXIFRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	exif := []byte("fake-tiff-exif-blob")
	withExif := injectJPEGMetadata(buf.Bytes(), nil, exif)
	got := extractJPEGEXIF(withExif)
	if !bytes.Equal(got, exif) {
		t.Fatalf("round-tripped EXIF mismatch: got %q, want %q", got, exif)
	}
}

func TestPNGICCProfileRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	profile := []byte("a tiny fake icc profile")
	withICC := injectPNGICCProfile(buf.Bytes(), profile)
	got := extractPNGICCProfile(withICC)
	if !bytes.Equal(got, profile) {
		t.Fatalf("round-tripped PNG ICC profile mismatch: got %q, want %q", got, profile)
	}
	if _, err := png.Decode(bytes.NewReader(withICC)); err != nil {
		t.Fatalf("image with injected iCCP chunk is no longer valid PNG: %v", err)
	}
}
