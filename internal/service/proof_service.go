package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"time"

	"github.com/dafibh/sppku/sppku-backend/internal/config"
	"github.com/dafibh/sppku/sppku-backend/internal/repository/storage"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

const (
	MinProofWidth  = 50
	MinProofHeight = 50
	MaxProofPixels = 24_000_000
	ProofMaxWidth  = 1600
	JPEGQuality    = 85
)

var (
	ErrProofTooLarge             = errors.New("proof image is too large")
	ErrProofInvalidFormat        = errors.New("invalid proof format. Supported: JPEG, PNG")
	ErrProofTooSmall             = errors.New("proof image too small. Minimum 50x50 pixels")
	ErrProofTooManyPixels        = errors.New("proof image dimensions are too large")
	ErrProofInvalidImage         = errors.New("proof is not a valid image")
	ErrProofStorageNotConfigured = errors.New("proof storage not configured")
)

// AllowedProofExtensions maps extensions to content types
var AllowedProofExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ProofService validates, normalizes and stores proof-of-payment images
type ProofService struct {
	storage   storage.ProofRepository
	maxBytes  int
	urlExpiry time.Duration
}

// NewProofService creates a new ProofService
func NewProofService(storage storage.ProofRepository, cfg config.PaymentConfig) *ProofService {
	maxBytes := cfg.ProofMaxBytes
	if maxBytes <= 0 {
		maxBytes = 2 * 1024 * 1024
	}
	expiry := cfg.ProofURLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &ProofService{storage: storage, maxBytes: maxBytes, urlExpiry: expiry}
}

// IsEnabled indicates whether proofs can be stored
func (s *ProofService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// Validate checks size, extension and the header dimensions without decoding pixels
func (s *ProofService) Validate(data []byte, filename string) error {
	if len(data) > s.maxBytes {
		return ErrProofTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedProofExtensions[ext]; !ok {
		return ErrProofInvalidFormat
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ErrProofInvalidImage
	}
	if cfg.Width < MinProofWidth || cfg.Height < MinProofHeight {
		return ErrProofTooSmall
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxProofPixels {
		return ErrProofTooManyPixels
	}
	return nil
}

// Decode validates the proof and decodes it once for Store
func (s *ProofService) Decode(data []byte, filename string) (image.Image, error) {
	if err := s.Validate(data, filename); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrProofInvalidImage
	}
	return img, nil
}

// Store resizes a decoded proof to at most ProofMaxWidth, re-encodes it as JPEG
// and uploads it under the student's prefix. It returns the object key.
func (s *ProofService) Store(ctx context.Context, studentID int32, img image.Image) (string, error) {
	if !s.IsEnabled() {
		return "", ErrProofStorageNotConfigured
	}

	if img.Bounds().Dx() > ProofMaxWidth {
		img = imaging.Resize(img, ProofMaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return "", fmt.Errorf("failed to encode proof: %w", err)
	}

	key := storage.GenerateProofKey(studentID, ".jpg")
	stored, err := s.storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len()))
	if err != nil {
		return "", fmt.Errorf("failed to upload proof: %w", err)
	}
	return stored, nil
}

// Discard removes a stored proof. Failures are logged.
func (s *ProofService) Discard(ctx context.Context, key string) {
	if key == "" || !s.IsEnabled() {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("proof_key", key).Msg("Failed to delete orphaned proof")
	}
}

// URL resolves a proof key into a short-lived download URL
func (s *ProofService) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	if !s.IsEnabled() {
		return "", ErrProofStorageNotConfigured
	}
	return s.storage.GeneratePresignedURL(ctx, key, s.urlExpiry)
}
