package encryption

import (
	"bytes"
	"fmt"
	"io"

	"shelfkeep/internal/library"
)

const testHeader = "SHELFKEEP-TEST-ENC\n"

// TestEncryptor is a trivial encryptor for tests: it prefixes data with a
// fixed header instead of doing real cryptography. Never use it for real
// backups.
type TestEncryptor struct {
	configured bool
}

var _ library.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor returns an unconfigured TestEncryptor. Call Setup to
// mark it configured.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.configured = true
	return nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return e.configured
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.WriteString(w, testHeader); err != nil {
		return err
	}
	_, err := io.Copy(w, r)
	return err
}

func (e *TestEncryptor) Unlock(passphrase string) (library.DecryptionContext, error) {
	if !e.configured {
		return nil, fmt.Errorf("encryptor not configured")
	}
	return &testDecryptionContext{}, nil
}

type testDecryptionContext struct{}

func (c *testDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(data, []byte(testHeader)) {
		return fmt.Errorf("missing test encryption header")
	}
	_, err = w.Write(bytes.TrimPrefix(data, []byte(testHeader)))
	return err
}
