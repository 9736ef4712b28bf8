package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// ErrPassphraseRequired is returned when the SSH key is encrypted and no
// passphrase was supplied.
var ErrPassphraseRequired = errors.New("SSH key is encrypted - passphrase required")

// LoadSSHSigner parses the private key at keyPath, using passphrase only if
// the key turns out to be encrypted.
func LoadSSHSigner(keyPath, passphrase string) (ssh.Signer, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err == nil {
		return signer, nil
	}

	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, fmt.Errorf("invalid SSH key: %w", err)
	}
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	Log.Debug("loading encrypted SSH key", zap.String("path", keyPath))
	signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key (wrong passphrase?): %w", err)
	}
	return signer, nil
}

// FindSSHKeys scans ~/.ssh for private keys, most preferred first.
func FindSSHKeys() []string {
	sshDir := filepath.Join(GetHomeDir(), ".ssh")

	var found []string
	for _, name := range []string{"hackmate_ed25519", "id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(sshDir, name)
		data, err := os.ReadFile(keyPath)
		if err != nil {
			continue
		}
		content := string(data)
		if strings.Contains(content, "BEGIN") && strings.Contains(content, "PRIVATE KEY") {
			found = append(found, keyPath)
		}
	}
	return found
}
