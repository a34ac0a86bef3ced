package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ChecksumService writes checksum sidecars for produced installers
type ChecksumService struct{}

// NewChecksumService creates a new checksum service
func NewChecksumService() *ChecksumService {
	return &ChecksumService{}
}

// GenerateSHA256 writes "<file>.sha256" in sha256sum format and returns its path
func (s *ChecksumService) GenerateSHA256(filePath string) (string, error) {
	hash, err := ComputeSHA256(filePath)
	if err != nil {
		return "", err
	}

	checksumPath := filePath + ".sha256"
	content := fmt.Sprintf("%s  %s\n", hash, filepath.Base(filePath))

	if err := os.WriteFile(checksumPath, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write SHA256 file: %w", err)
	}

	return checksumPath, nil
}

// ComputeSHA256 returns the hex SHA-256 digest of a file
func ComputeSHA256(filePath string) (string, error) {
	//nolint:gosec // G304: filePath is function parameter for checksum generation
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
