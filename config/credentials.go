package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// SecurityMethod defines how credentials are stored at rest
type SecurityMethod string

const (
	SecurityPlainText SecurityMethod = "plaintext"
	SecuritySSHKey    SecurityMethod = "ssh_key"
)

const bearerTokenKey = "bearer_token"

// CredentialStore holds secrets for this installation: the client's bearer
// token and provider API keys. Values are kept in a plaintext TOML file or an
// AES-GCM sealed file keyed off an SSH private key.
type CredentialStore struct {
	method      SecurityMethod
	credentials map[string]string
	sshKeyPath  string
	passphrase  string
	sealer      *Sealer
}

func NewCredentialStore(method SecurityMethod, sshKeyPath string) *CredentialStore {
	if method == "" {
		method = SecurityPlainText
	}
	return &CredentialStore{
		method:      method,
		credentials: make(map[string]string),
		sshKeyPath:  ExpandPath(sshKeyPath),
	}
}

// SetPassphrase sets the passphrase for an encrypted SSH key
func (c *CredentialStore) SetPassphrase(passphrase string) {
	c.passphrase = passphrase
	c.sealer = nil
}

func (c *CredentialStore) Method() SecurityMethod {
	return c.method
}

// Load reads credentials from dataDir. A missing file yields an empty store.
func (c *CredentialStore) Load(dataDir string) error {
	var (
		creds map[string]string
		err   error
	)
	switch c.method {
	case SecurityPlainText:
		creds, err = loadPlainText(dataDir)
	case SecuritySSHKey:
		creds, err = c.loadSealed(dataDir)
	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
	if err != nil {
		return err
	}
	if creds == nil {
		creds = make(map[string]string)
	}
	c.credentials = creds
	Log.Debug("credentials loaded", zap.String("method", string(c.method)), zap.Int("entries", len(creds)))
	return nil
}

func (c *CredentialStore) Save(dataDir string) error {
	switch c.method {
	case SecurityPlainText:
		return savePlainText(dataDir, c.credentials)
	case SecuritySSHKey:
		return c.saveSealed(dataDir)
	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

func (c *CredentialStore) Get(key string) string {
	return c.credentials[key]
}

func (c *CredentialStore) Set(key, value string) {
	c.credentials[key] = value
}

func (c *CredentialStore) Delete(key string) {
	delete(c.credentials, key)
}

func (c *CredentialStore) BearerToken() string {
	return c.credentials[bearerTokenKey]
}

func (c *CredentialStore) SetBearerToken(token string) {
	c.credentials[bearerTokenKey] = token
}

// ProviderKey returns the API key for a provider type, falling back to the
// provider's conventional environment variable.
func (c *CredentialStore) ProviderKey(providerType string) string {
	if key := c.credentials["provider_"+providerType]; key != "" {
		return key
	}
	if env, ok := providerKeyEnv[providerType]; ok {
		return os.Getenv(env)
	}
	return ""
}

func (c *CredentialStore) SetProviderKey(providerType, key string) {
	c.credentials["provider_"+providerType] = key
}

var providerKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

func credentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.toml")
}

func sealedCredentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.enc")
}

type credentialsFile struct {
	Credentials map[string]string `toml:"credentials"`
}

func loadPlainText(dataDir string) (map[string]string, error) {
	path := credentialsPath(dataDir)
	if !FileExists(path) {
		return make(map[string]string), nil
	}

	var cf credentialsFile
	if _, err := toml.DecodeFile(path, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return cf.Credentials, nil
}

func savePlainText(dataDir string, creds map[string]string) error {
	f, err := os.OpenFile(credentialsPath(dataDir), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create credentials file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(credentialsFile{Credentials: creds}); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return nil
}

func (c *CredentialStore) ensureSealer() error {
	if c.sealer != nil {
		return nil
	}
	sealer, err := NewSSHSealer(c.sshKeyPath, c.passphrase)
	if err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}
	c.sealer = sealer
	return nil
}

func (c *CredentialStore) loadSealed(dataDir string) (map[string]string, error) {
	path := sealedCredentialsPath(dataDir)
	if !FileExists(path) {
		return make(map[string]string), nil
	}
	if err := c.ensureSealer(); err != nil {
		return nil, err
	}

	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read encrypted credentials: %w", err)
	}
	plain, err := c.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	var creds map[string]string
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted credentials: %w", err)
	}
	return creds, nil
}

func (c *CredentialStore) saveSealed(dataDir string) error {
	if err := c.ensureSealer(); err != nil {
		return err
	}

	plain, err := json.Marshal(c.credentials)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}
	sealed, err := c.sealer.Seal(plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	if err := os.WriteFile(sealedCredentialsPath(dataDir), sealed, 0600); err != nil {
		return fmt.Errorf("failed to write encrypted credentials: %w", err)
	}
	return nil
}
