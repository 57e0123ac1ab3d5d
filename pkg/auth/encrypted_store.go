package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	// passphraseEnv overrides the generated passphrase file
	passphraseEnv = "SKYCRAWL_PASSPHRASE"
)

// EncryptedFileStore keeps app passwords in an AES-GCM encrypted file. The
// key is derived from a passphrase with PBKDF2.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// vaultFile is the on-disk layout
type vaultFile struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// vault is the decrypted content
type vault struct {
	salt     []byte
	accounts map[string]Account
}

// NewEncryptedFileStore opens the store at path using the passphrase from
// SKYCRAWL_PASSPHRASE, or a generated one kept next to the user config.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	passphrase, err := loadPassphrase()
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return NewEncryptedFileStoreWithPassphrase(path, passphrase)
}

// NewEncryptedFileStoreWithPassphrase opens the store at path with an explicit passphrase
func NewEncryptedFileStoreWithPassphrase(path, passphrase string) (*EncryptedFileStore, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store saves credentials to the encrypted file
func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Handle == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.read()
	if errors.Is(err, os.ErrNotExist) {
		v = &vault{accounts: make(map[string]Account)}
	} else if err != nil {
		return fmt.Errorf("failed to load existing data: %w", err)
	}

	v.accounts[account.Handle] = *account
	return e.write(v)
}

// Retrieve gets credentials from the encrypted file
func (e *EncryptedFileStore) Retrieve(handle string) (*Account, error) {
	if handle == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	v, err := e.read()
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCredentialsNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	account, ok := v.accounts[handle]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns all stored accounts
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, err := e.read()
	if errors.Is(err, os.ErrNotExist) {
		return []*Account{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	accounts := make([]*Account, 0, len(v.accounts))
	for _, account := range v.accounts {
		acc := account
		accounts = append(accounts, &acc)
	}
	return accounts, nil
}

// Delete removes credentials from the encrypted file. The file itself is
// removed with the last account.
func (e *EncryptedFileStore) Delete(handle string) error {
	if handle == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.read()
	if errors.Is(err, os.ErrNotExist) {
		return ErrCredentialsNotFound
	} else if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}

	if _, ok := v.accounts[handle]; !ok {
		return ErrCredentialsNotFound
	}
	delete(v.accounts, handle)

	if len(v.accounts) == 0 {
		return os.Remove(e.path)
	}
	return e.write(v)
}

// Exists checks if credentials exist
func (e *EncryptedFileStore) Exists(handle string) bool {
	account, err := e.Retrieve(handle)
	return err == nil && account != nil
}

func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
}

func (e *EncryptedFileStore) read() (*vault, error) {
	content, err := os.ReadFile(e.path)
	if err != nil {
		return nil, err
	}

	var file vaultFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	plain, err := decrypt(sealed, e.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt data: %w", err)
	}

	v := &vault{salt: salt}
	if err := json.Unmarshal(plain, &v.accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	if v.accounts == nil {
		v.accounts = make(map[string]Account)
	}
	return v, nil
}

func (e *EncryptedFileStore) write(v *vault) error {
	if len(v.salt) == 0 {
		v.salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, v.salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plain, err := json.Marshal(v.accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	sealed, err := encrypt(plain, e.deriveKey(v.salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt data: %w", err)
	}

	content, err := json.MarshalIndent(vaultFile{
		Salt:      base64.StdEncoding.EncodeToString(v.salt),
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
		Version:   1,
		Modified:  time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal file data: %w", err)
	}

	tempFile := e.path + ".tmp"
	if err := os.WriteFile(tempFile, content, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempFile, e.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// loadPassphrase reads the passphrase from the environment, or from a file in
// the config directory that is created on first use.
func loadPassphrase() (string, error) {
	if pass := os.Getenv(passphraseEnv); pass != "" {
		return pass, nil
	}

	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	passphraseFile := filepath.Join(configDir, ".passphrase")

	if content, err := os.ReadFile(passphraseFile); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(b)

	if err := os.WriteFile(passphraseFile, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

// encrypt seals plaintext with AES-GCM, prefixing the nonce
func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
