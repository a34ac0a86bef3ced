package gateways

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ochairo/unipkg/internal/domain/entities"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
	"github.com/ochairo/unipkg/internal/domain/services"
)

// SignatureChecker verifies detached OpenPGP signatures
type SignatureChecker interface {
	VerifySignatureFromFile(filePath, sigPath string) error
	VerifySignatureFromURL(ctx context.Context, filePath, sigURL string) error
}

// IntegrityVerifier checks downloaded or local archives before extraction
type IntegrityVerifier struct {
	signatures SignatureChecker
	logger     interfaces.Logger
}

// NewIntegrityVerifier creates a verifier. signatures may be nil when no
// keyring is configured; signature checks then fail.
func NewIntegrityVerifier(signatures SignatureChecker, logger interfaces.Logger) *IntegrityVerifier {
	return &IntegrityVerifier{
		signatures: signatures,
		logger:     interfaces.OrNoOp(logger).Named("verify"),
	}
}

// Verify applies the digest and signature checks src asks for
func (v *IntegrityVerifier) Verify(ctx context.Context, path string, src entities.InputSource) error {
	if src.SHA256 != "" {
		if err := v.VerifyChecksum(path, src.SHA256); err != nil {
			return err
		}
		v.logger.Info("checksum verified", interfaces.F("file", filepath.Base(path)))
	}

	if src.Signature != "" {
		if err := v.verifySignature(ctx, path, src.Signature); err != nil {
			return err
		}
		v.logger.Info("signature verified", interfaces.F("file", filepath.Base(path)))
	}
	return nil
}

// VerifyChecksum compares a file's SHA-256 digest with the expected hex value
func (v *IntegrityVerifier) VerifyChecksum(path, expected string) error {
	actual, err := services.ComputeSHA256(path)
	if err != nil {
		return uerrors.Wrap(err, uerrors.KindVerificationFailed, "cannot hash %s", filepath.Base(path))
	}
	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return uerrors.New(uerrors.KindVerificationFailed,
			"checksum mismatch for %s: expected %s, got %s", filepath.Base(path), expected, actual)
	}
	return nil
}

func (v *IntegrityVerifier) verifySignature(ctx context.Context, path, signature string) error {
	if v.signatures == nil {
		return uerrors.New(uerrors.KindVerificationFailed, "signature given for %s but no keyring is configured", filepath.Base(path))
	}

	var err error
	if entities.IsRemoteDescriptor(signature) {
		err = v.signatures.VerifySignatureFromURL(ctx, path, strings.TrimSpace(signature))
	} else {
		err = v.signatures.VerifySignatureFromFile(path, signature)
	}
	if err != nil {
		return uerrors.Wrap(err, uerrors.KindVerificationFailed, "signature check of %s failed", filepath.Base(path))
	}
	return nil
}
