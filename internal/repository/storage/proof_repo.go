package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// ProofRepository defines the interface for proof-of-payment object storage
type ProofRepository interface {
	// Upload stores the object and returns its key (not a URL)
	Upload(ctx context.Context, objectKey string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectKey string) error
	// GeneratePresignedURL resolves a stored key to a temporary download URL
	GeneratePresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// GenerateProofKey creates a unique object key for a student's proof image
func GenerateProofKey(studentID int32, ext string) string {
	filename := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	return path.Join("proofs", fmt.Sprintf("%d", studentID), filename)
}
