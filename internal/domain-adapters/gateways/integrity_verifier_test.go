package gateways_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/unipkg/internal/domain-adapters/gateways"
	"github.com/ochairo/unipkg/internal/domain/entities"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
)

type fakeSignatures struct {
	fileCalls []string
	urlCalls  []string
	err       error
}

func (f *fakeSignatures) VerifySignatureFromFile(_, sigPath string) error {
	f.fileCalls = append(f.fileCalls, sigPath)
	return f.err
}

func (f *fakeSignatures) VerifySignatureFromURL(_ context.Context, _, sigURL string) error {
	f.urlCalls = append(f.urlCalls, sigURL)
	return f.err
}

func writeArchive(t *testing.T) (string, string) {
	t.Helper()
	content := []byte("archive contents")
	path := filepath.Join(t.TempDir(), "Foo.zip")
	require.NoError(t, os.WriteFile(path, content, 0600))
	sum := sha256.Sum256(content)
	return path, hex.EncodeToString(sum[:])
}

func TestIntegrityVerifier_Checksum(t *testing.T) {
	path, sum := writeArchive(t)
	v := gateways.NewIntegrityVerifier(nil, nil)

	assert.NoError(t, v.Verify(context.Background(), path, entities.InputSource{SHA256: sum}))
	assert.NoError(t, v.Verify(context.Background(), path, entities.InputSource{SHA256: strings.ToUpper(sum)}))

	err := v.Verify(context.Background(), path, entities.InputSource{SHA256: strings.Repeat("0", 64)})
	require.Error(t, err)
	assert.Equal(t, uerrors.KindVerificationFailed, uerrors.KindOf(err))
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestIntegrityVerifier_Signature(t *testing.T) {
	path, _ := writeArchive(t)
	sigs := &fakeSignatures{}
	v := gateways.NewIntegrityVerifier(sigs, nil)

	require.NoError(t, v.Verify(context.Background(), path, entities.InputSource{Signature: "/keys/Foo.zip.sig"}))
	require.NoError(t, v.Verify(context.Background(), path, entities.InputSource{Signature: "https://example.com/Foo.zip.asc"}))
	assert.Equal(t, []string{"/keys/Foo.zip.sig"}, sigs.fileCalls)
	assert.Equal(t, []string{"https://example.com/Foo.zip.asc"}, sigs.urlCalls)

	sigs.err = errors.New("signature made by unknown entity")
	err := v.Verify(context.Background(), path, entities.InputSource{Signature: "/keys/Foo.zip.sig"})
	assert.Equal(t, uerrors.KindVerificationFailed, uerrors.KindOf(err))
}

func TestIntegrityVerifier_SignatureWithoutKeyring(t *testing.T) {
	path, _ := writeArchive(t)
	err := gateways.NewIntegrityVerifier(nil, nil).
		Verify(context.Background(), path, entities.InputSource{Signature: "/keys/Foo.zip.sig"})
	assert.Equal(t, uerrors.KindVerificationFailed, uerrors.KindOf(err))
}
