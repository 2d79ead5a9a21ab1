package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "zsync"

// ErrNoPassword means nothing is stored for the requested user and host.
var ErrNoPassword = errors.New("no stored password")

// Manager stores FTP passwords per user@host
type Manager struct {
	configDir      string
	useKeyring     bool
	storage        StorageBackend
	storageWarning string
}

// NewManager creates a new auth manager
func NewManager(configDir string) *Manager {
	return NewManagerWithOptions(configDir, ManagerOptions{})
}

// ManagerOptions configures the auth manager
type ManagerOptions struct {
	ForceEncryptedFile bool // Skip the system keyring
}

// NewManagerWithOptions creates a new auth manager with specific options
func NewManagerWithOptions(configDir string, opts ManagerOptions) *Manager {
	mgr := &Manager{
		configDir: configDir,
	}

	if opts.ForceEncryptedFile || !checkKeyringAvailable() {
		storage, err := NewEncryptedFileStorage(configDir)
		if err != nil {
			mgr.storage = unavailableStorage{err: err}
			mgr.storageWarning = fmt.Sprintf("WARNING: Credential storage unavailable (%v). Passwords must be given on the command line.", err)
			return mgr
		}
		mgr.storage = storage
		if !opts.ForceEncryptedFile {
			mgr.storageWarning = "INFO: System keyring not available. Using encrypted file storage."
		}
		return mgr
	}

	mgr.storage = NewKeyringStorage(serviceName)
	mgr.useKeyring = true
	return mgr
}

// checkKeyringAvailable tests if system keyring is available
func checkKeyringAvailable() bool {
	testKey := "zsync-keyring-check"
	if err := keyring.Set(serviceName, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, testKey)
	return true
}

// Profile is the storage key for a user on a host. User names are folded to
// upper case as TSO does.
func Profile(user, host string) string {
	return strings.ToUpper(user) + "@" + strings.ToLower(host)
}

// SavePassword stores the password for user on host
func (m *Manager) SavePassword(user, host, password string) error {
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}
	profile := Profile(user, host)
	if err := m.storage.Save(profile, []byte(password)); err != nil {
		return err
	}

	if err := m.addProfileToList(profile); err != nil {
		// Non-fatal: the password itself is stored
		fmt.Fprintf(os.Stderr, "Warning: failed to update profile list: %v\n", err)
	}
	return nil
}

// LoadPassword returns the stored password, or ErrNoPassword
func (m *Manager) LoadPassword(user, host string) (string, error) {
	data, err := m.storage.Load(Profile(user, host))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DeletePassword removes the stored password for user on host
func (m *Manager) DeletePassword(user, host string) error {
	profile := Profile(user, host)
	if err := m.storage.Delete(profile); err != nil {
		return err
	}

	if err := m.removeProfileFromList(profile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to update profile list: %v\n", err)
	}
	return nil
}

// UseKeyring reports whether passwords live in the system keyring
func (m *Manager) UseKeyring() bool {
	return m.useKeyring
}

func (m *Manager) ConfigDir() string {
	return m.configDir
}

// GetStorageBackend returns the name of the active storage backend
func (m *Manager) GetStorageBackend() string {
	return m.storage.Name()
}

// GetStorageWarning returns a notice about degraded storage, if any
func (m *Manager) GetStorageWarning() string {
	return m.storageWarning
}

type unavailableStorage struct {
	err error
}

func (s unavailableStorage) Save(string, []byte) error   { return s.err }
func (s unavailableStorage) Load(string) ([]byte, error) { return nil, ErrNoPassword }
func (s unavailableStorage) Delete(string) error         { return s.err }
func (s unavailableStorage) Name() string                { return "unavailable" }
