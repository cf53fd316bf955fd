package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptSecret_RoundTrip(t *testing.T) {
	blob, err := EncryptSecret("the-api-secret", "correct horse battery staple")
	require.NoError(t, err)

	secret, err := DecryptSecret(blob, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, "the-api-secret", secret)
}

func TestDecryptSecret_WrongPassword(t *testing.T) {
	blob, err := EncryptSecret("the-api-secret", "right")
	require.NoError(t, err)

	_, err = DecryptSecret(blob, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
}

func TestEncryptSecret_RejectsEmptyInputs(t *testing.T) {
	_, err := EncryptSecret("", "password")
	assert.Error(t, err)

	_, err = EncryptSecret("secret", "")
	assert.Error(t, err)
}

func TestDecryptSecret_RejectsUnknownVersion(t *testing.T) {
	_, err := DecryptSecret([]byte(`{"version": 99}`), "password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version")
}

func TestLoadSecret_RawWinsOverFile(t *testing.T) {
	secret, err := LoadSecret(SecretConfig{
		RawSecret:           "raw",
		EncryptedSecretPath: "/nonexistent",
	})
	require.NoError(t, err)
	assert.Equal(t, "raw", secret)
}

func TestLoadSecret_FromEncryptedFile(t *testing.T) {
	blob, err := EncryptSecret("file-secret", "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "secret.enc")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	secret, err := LoadSecret(SecretConfig{
		EncryptedSecretPath: path,
		Password:            "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "file-secret", secret)
}

func TestLoadSecret_NoSourceConfigured(t *testing.T) {
	_, err := LoadSecret(SecretConfig{})
	assert.Error(t, err)
}
