package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/dafibh/sppku/sppku-backend/internal/config"
	"github.com/dafibh/sppku/sppku-backend/internal/testutil"
)

// createTestImage creates a test image of the specified size and format
func createTestImage(width, height int, format string) ([]byte, string) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	var buf bytes.Buffer
	var filename string

	switch format {
	case "png":
		png.Encode(&buf, img)
		filename = "bukti.png"
	default:
		jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
		filename = "bukti.jpg"
	}

	return buf.Bytes(), filename
}

func newTestProofService() (*ProofService, *testutil.MockProofRepository) {
	repo := testutil.NewMockProofRepository()
	return NewProofService(repo, config.PaymentConfig{ProofMaxBytes: 2 * 1024 * 1024}), repo
}

func TestProofValidate_ValidJPEG(t *testing.T) {
	svc, _ := newTestProofService()
	data, filename := createTestImage(100, 100, "jpeg")

	if err := svc.Validate(data, filename); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestProofValidate_ValidPNG(t *testing.T) {
	svc, _ := newTestProofService()
	data, filename := createTestImage(100, 100, "png")

	if err := svc.Validate(data, filename); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestProofValidate_TooLarge(t *testing.T) {
	svc := NewProofService(nil, config.PaymentConfig{ProofMaxBytes: 1024})
	data := make([]byte, 1025)

	if err := svc.Validate(data, "bukti.jpg"); err != ErrProofTooLarge {
		t.Errorf("expected ErrProofTooLarge, got %v", err)
	}
}

func TestProofValidate_InvalidFormat(t *testing.T) {
	svc, _ := newTestProofService()
	data, _ := createTestImage(100, 100, "jpeg")

	for _, name := range []string{"bukti.gif", "bukti.pdf", "bukti"} {
		if err := svc.Validate(data, name); err != ErrProofInvalidFormat {
			t.Errorf("%s: expected ErrProofInvalidFormat, got %v", name, err)
		}
	}
}

func TestProofValidate_NotAnImage(t *testing.T) {
	svc, _ := newTestProofService()

	if err := svc.Validate([]byte("definitely not an image"), "bukti.jpg"); err != ErrProofInvalidImage {
		t.Errorf("expected ErrProofInvalidImage, got %v", err)
	}
}

func TestProofValidate_TooSmall(t *testing.T) {
	svc, _ := newTestProofService()
	data, filename := createTestImage(40, 80, "png")

	if err := svc.Validate(data, filename); err != ErrProofTooSmall {
		t.Errorf("expected ErrProofTooSmall, got %v", err)
	}
}

func TestProofValidate_TooManyPixels(t *testing.T) {
	svc, _ := newTestProofService()

	// a blank gray PNG compresses to a few KB but decodes to tens of MB
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 6000, 5000))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	if buf.Len() > 2*1024*1024 {
		t.Fatalf("test image should fit the byte limit, got %d bytes", buf.Len())
	}

	if err := svc.Validate(buf.Bytes(), "bukti.png"); err != ErrProofTooManyPixels {
		t.Errorf("expected ErrProofTooManyPixels, got %v", err)
	}
	if _, err := svc.Decode(buf.Bytes(), "bukti.png"); err != ErrProofTooManyPixels {
		t.Errorf("expected Decode to stop at ErrProofTooManyPixels, got %v", err)
	}
}

func TestProofDecode_TruncatedImage(t *testing.T) {
	svc, _ := newTestProofService()
	data, filename := createTestImage(100, 100, "png")

	// header still reports valid dimensions
	truncated := data[:len(data)/2]
	if err := svc.Validate(truncated, filename); err != nil {
		t.Fatalf("expected header check to pass, got %v", err)
	}
	if _, err := svc.Decode(truncated, filename); err != ErrProofInvalidImage {
		t.Errorf("expected ErrProofInvalidImage, got %v", err)
	}
}

func decodeTestImage(t *testing.T, svc *ProofService, width, height int, format string) image.Image {
	t.Helper()
	data, filename := createTestImage(width, height, format)
	img, err := svc.Decode(data, filename)
	if err != nil {
		t.Fatalf("failed to decode test image: %v", err)
	}
	return img
}

func TestProofStore_ResizesAndUploads(t *testing.T) {
	svc, repo := newTestProofService()
	img := decodeTestImage(t, svc, 2000, 100, "png")

	key, err := svc.Store(context.Background(), 7, img)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasPrefix(key, "proofs/7/") || !strings.HasSuffix(key, ".jpg") {
		t.Errorf("unexpected key %s", key)
	}

	stored, ok := repo.Objects[key]
	if !ok {
		t.Fatal("expected object to be uploaded")
	}
	out, err := jpeg.Decode(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("stored proof is not a JPEG: %v", err)
	}
	if out.Bounds().Dx() != ProofMaxWidth {
		t.Errorf("expected width %d, got %d", ProofMaxWidth, out.Bounds().Dx())
	}
}

func TestProofStore_NotConfigured(t *testing.T) {
	svc := NewProofService(nil, config.PaymentConfig{})
	img := decodeTestImage(t, svc, 100, 100, "jpeg")

	if _, err := svc.Store(context.Background(), 1, img); err != ErrProofStorageNotConfigured {
		t.Errorf("expected ErrProofStorageNotConfigured, got %v", err)
	}
}

func TestProofStore_UploadFailure(t *testing.T) {
	svc, repo := newTestProofService()
	repo.UploadFn = func(key string) (string, error) { return "", errors.New("s3 down") }
	img := decodeTestImage(t, svc, 100, 100, "jpeg")

	if _, err := svc.Store(context.Background(), 1, img); err == nil {
		t.Error("expected error on upload failure")
	}
}

func TestProofURL(t *testing.T) {
	svc, _ := newTestProofService()

	url, err := svc.URL(context.Background(), "proofs/1/a.jpg")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(url, "proofs/1/a.jpg") || !strings.Contains(url, "15m0s") {
		t.Errorf("unexpected url %s", url)
	}

	url, err = svc.URL(context.Background(), "")
	if err != nil || url != "" {
		t.Errorf("expected empty url for empty key, got %q, %v", url, err)
	}
}
