package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

// StorageBackend defines the interface for credential storage
type StorageBackend interface {
	Save(profile string, data []byte) error
	Load(profile string) ([]byte, error)
	Delete(profile string) error
	Name() string
}

// KeyringStorage uses system keyring for credential storage
type KeyringStorage struct {
	serviceName string
}

// NewKeyringStorage creates a keyring storage backend
func NewKeyringStorage(serviceName string) *KeyringStorage {
	return &KeyringStorage{
		serviceName: serviceName,
	}
}

func (s *KeyringStorage) Save(profile string, data []byte) error {
	return keyring.Set(s.serviceName, profile, string(data))
}

func (s *KeyringStorage) Load(profile string) ([]byte, error) {
	data, err := keyring.Get(s.serviceName, profile)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrNoPassword
		}
		return nil, err
	}
	return []byte(data), nil
}

func (s *KeyringStorage) Delete(profile string) error {
	if err := keyring.Delete(s.serviceName, profile); err != nil && err != keyring.ErrNotFound {
		return err
	}
	return nil
}

func (s *KeyringStorage) Name() string {
	return "system-keyring"
}

// EncryptedFileStorage stores credentials in AES-GCM encrypted files
type EncryptedFileStorage struct {
	baseDir string
	key     []byte
}

// NewEncryptedFileStorage creates an encrypted file storage backend
func NewEncryptedFileStorage(baseDir string) (*EncryptedFileStorage, error) {
	key, err := getOrCreateEncryptionKey(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}

	return &EncryptedFileStorage{
		baseDir: baseDir,
		key:     key,
	}, nil
}

func (s *EncryptedFileStorage) Save(profile string, data []byte) error {
	encrypted, err := s.encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	credFile := s.credentialFile(profile)
	if err := os.MkdirAll(filepath.Dir(credFile), 0700); err != nil {
		return err
	}

	return os.WriteFile(credFile, encrypted, 0600)
}

func (s *EncryptedFileStorage) Load(profile string) ([]byte, error) {
	encrypted, err := os.ReadFile(s.credentialFile(profile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoPassword
		}
		return nil, err
	}

	return s.decrypt(encrypted)
}

func (s *EncryptedFileStorage) Delete(profile string) error {
	err := os.Remove(s.credentialFile(profile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *EncryptedFileStorage) Name() string {
	return "encrypted-file"
}

// credentialFile maps user@host[:port] onto a portable file name.
func (s *EncryptedFileStorage) credentialFile(profile string) string {
	name := strings.NewReplacer(":", "_", "/", "_", `\`, "_").Replace(profile)
	return filepath.Join(s.baseDir, "credentials", name+".enc")
}

func (s *EncryptedFileStorage) encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *EncryptedFileStorage) decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("invalid ciphertext")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	plaintext, err := gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	return plaintext, nil
}

func (s *EncryptedFileStorage) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// getOrCreateEncryptionKey generates or loads the encryption key
func getOrCreateEncryptionKey(baseDir string) ([]byte, error) {
	keyFile := filepath.Join(baseDir, ".keyfile")

	if data, err := os.ReadFile(keyFile); err == nil {
		key, err := base64.StdEncoding.DecodeString(string(data))
		if err == nil && len(key) == 32 {
			return key, nil
		}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(keyFile, []byte(encoded), 0600); err != nil {
		return nil, err
	}

	return key, nil
}

// ListProfiles lists every user@host with a stored password
func (m *Manager) ListProfiles() ([]string, error) {
	profiles := []string{}
	data, err := os.ReadFile(m.profilesFile())
	if err != nil {
		if os.IsNotExist(err) {
			return profiles, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (m *Manager) profilesFile() string {
	return filepath.Join(m.configDir, "profiles.json")
}

func (m *Manager) writeProfiles(profiles []string) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return err
	}
	return os.WriteFile(m.profilesFile(), data, 0600)
}

func (m *Manager) addProfileToList(profile string) error {
	profiles, err := m.ListProfiles()
	if err != nil {
		return err
	}

	for _, p := range profiles {
		if p == profile {
			return nil
		}
	}

	return m.writeProfiles(append(profiles, profile))
}

func (m *Manager) removeProfileFromList(profile string) error {
	profiles, err := m.ListProfiles()
	if err != nil {
		return err
	}

	updated := []string{}
	for _, p := range profiles {
		if p != profile {
			updated = append(updated, p)
		}
	}

	return m.writeProfiles(updated)
}
