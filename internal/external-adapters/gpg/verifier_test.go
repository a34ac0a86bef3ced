package gpg

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// newSigningFixture writes an armored public key and a payload signed by
// the matching private key. It returns the key path, payload path and the
// armored detached signature.
func newSigningFixture(t *testing.T) (keyPath, payloadPath string, signature []byte) {
	t.Helper()
	dir := t.TempDir()

	entity, err := openpgp.NewEntity("Release Bot", "", "release@example.com", nil)
	if err != nil {
		t.Fatalf("NewEntity failed: %v", err)
	}

	var pub bytes.Buffer
	w, err := armor.Encode(&pub, "PGP PUBLIC KEY BLOCK", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	keyPath = filepath.Join(dir, "release.asc")
	if err := os.WriteFile(keyPath, pub.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}

	payload := []byte("Foo-arm64.zip contents")
	payloadPath = filepath.Join(dir, "Foo-arm64.zip")
	if err := os.WriteFile(payloadPath, payload, 0600); err != nil {
		t.Fatal(err)
	}

	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, entity, bytes.NewReader(payload), nil); err != nil {
		t.Fatalf("ArmoredDetachSign failed: %v", err)
	}
	return keyPath, payloadPath, sig.Bytes()
}

func TestVerifier_VerifySignatureFromFile_Valid(t *testing.T) {
	keyPath, payloadPath, sig := newSigningFixture(t)
	sigPath := payloadPath + ".asc"
	if err := os.WriteFile(sigPath, sig, 0600); err != nil {
		t.Fatal(err)
	}

	v := NewVerifier()
	if err := v.ImportKeyFromFile(keyPath); err != nil {
		t.Fatalf("ImportKeyFromFile failed: %v", err)
	}
	if v.GetKeyringSize() != 1 {
		t.Errorf("keyring size = %d, want 1", v.GetKeyringSize())
	}

	if err := v.VerifySignatureFromFile(payloadPath, sigPath); err != nil {
		t.Errorf("VerifySignatureFromFile failed: %v", err)
	}
}

func TestVerifier_VerifySignatureFromFile_TamperedPayload(t *testing.T) {
	keyPath, payloadPath, sig := newSigningFixture(t)
	sigPath := payloadPath + ".asc"
	if err := os.WriteFile(sigPath, sig, 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(payloadPath, []byte("tampered"), 0600); err != nil {
		t.Fatal(err)
	}

	v := NewVerifier()
	if err := v.ImportKeyFromFile(keyPath); err != nil {
		t.Fatal(err)
	}

	err := v.VerifySignatureFromFile(payloadPath, sigPath)
	if err == nil {
		t.Fatal("Expected verification failure for tampered payload")
	}
	if !strings.Contains(err.Error(), "signature verification failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVerifier_VerifySignatureFromURL(t *testing.T) {
	keyPath, payloadPath, sig := newSigningFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Foo-arm64.zip.asc" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(sig)
	}))
	defer server.Close()

	v := NewVerifier()
	if err := v.ImportKeyFromFile(keyPath); err != nil {
		t.Fatal(err)
	}

	if err := v.VerifySignatureFromURL(context.Background(), payloadPath, server.URL+"/Foo-arm64.zip.asc"); err != nil {
		t.Errorf("VerifySignatureFromURL failed: %v", err)
	}

	err := v.VerifySignatureFromURL(context.Background(), payloadPath, server.URL+"/missing.asc")
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("Expected 404 error, got: %v", err)
	}
}

func TestVerifier_VerifyWithoutKeys(t *testing.T) {
	_, payloadPath, sig := newSigningFixture(t)
	sigPath := payloadPath + ".asc"
	if err := os.WriteFile(sigPath, sig, 0600); err != nil {
		t.Fatal(err)
	}

	err := NewVerifier().VerifySignatureFromFile(payloadPath, sigPath)
	if err == nil || !strings.Contains(err.Error(), "no GPG keys imported") {
		t.Errorf("Expected missing keyring error, got: %v", err)
	}
}

func TestVerifier_ImportKeyFromFile_NonexistentFile(t *testing.T) {
	err := NewVerifier().ImportKeyFromFile("/nonexistent/key.asc")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to open key file") {
		t.Errorf("Expected 'failed to open key file' error, got: %v", err)
	}
}

func TestVerifier_ImportKeyFromFile_Garbage(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "garbage.asc")
	if err := os.WriteFile(keyPath, []byte("not a gpg key"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := NewVerifier().ImportKeyFromFile(keyPath); err == nil {
		t.Fatal("Expected error for invalid key file, got nil")
	}
}
