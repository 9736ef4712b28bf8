package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func writeTestKey(t *testing.T, passphrase string) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "test", []byte(passphrase))
	}
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

func TestPlainTextCredentials(t *testing.T) {
	dir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	require.NoError(t, store.Load(dir))
	assert.Empty(t, store.BearerToken())

	store.SetBearerToken("tok-123")
	store.SetProviderKey("openai", "sk-test")
	require.NoError(t, store.Save(dir))

	info, err := os.Stat(filepath.Join(dir, "credentials.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded := NewCredentialStore(SecurityPlainText, "")
	require.NoError(t, reloaded.Load(dir))
	assert.Equal(t, "tok-123", reloaded.BearerToken())
	assert.Equal(t, "sk-test", reloaded.ProviderKey("openai"))
}

func TestProviderKeyFallsBackToEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	store := NewCredentialStore(SecurityPlainText, "")
	assert.Equal(t, "from-env", store.ProviderKey("anthropic"))

	store.SetProviderKey("anthropic", "stored")
	assert.Equal(t, "stored", store.ProviderKey("anthropic"))
	assert.Empty(t, store.ProviderKey("ollama"))
}

func TestSealedCredentials(t *testing.T) {
	dir := t.TempDir()
	keyPath := writeTestKey(t, "")

	store := NewCredentialStore(SecuritySSHKey, keyPath)
	store.SetBearerToken("sealed-token")
	require.NoError(t, store.Save(dir))

	raw, err := os.ReadFile(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sealed-token")

	reloaded := NewCredentialStore(SecuritySSHKey, keyPath)
	require.NoError(t, reloaded.Load(dir))
	assert.Equal(t, "sealed-token", reloaded.BearerToken())
}

func TestSealedCredentialsNeedPassphrase(t *testing.T) {
	dir := t.TempDir()
	keyPath := writeTestKey(t, "hunter2")

	store := NewCredentialStore(SecuritySSHKey, keyPath)
	store.SetBearerToken("x")
	require.ErrorIs(t, store.Save(dir), ErrPassphraseRequired)

	store.SetPassphrase("hunter2")
	require.NoError(t, store.Save(dir))

	reloaded := NewCredentialStore(SecuritySSHKey, keyPath)
	reloaded.SetPassphrase("hunter2")
	require.NoError(t, reloaded.Load(dir))
	assert.Equal(t, "x", reloaded.BearerToken())
}

func TestSealerRejectsShortInput(t *testing.T) {
	s, err := newSealer(make([]byte, 32))
	require.NoError(t, err)

	_, err = s.Open([]byte("abc"))
	assert.ErrorIs(t, err, errCiphertextTooShort)

	sealed, err := s.Seal([]byte("payload"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	_, err = s.Open(sealed)
	assert.Error(t, err)
}
