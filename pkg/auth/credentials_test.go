package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	mockStore := NewMockStore()
	manager := NewManagerWithStores(mockStore)

	account := &Account{
		Handle:      "alice.bsky.social",
		Endpoint:    "https://bsky.social",
		AppPassword: "abcd-efgh-ijkl-mnop",
	}

	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if account.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	retrieved, err := manager.Retrieve("alice.bsky.social")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.AppPassword != account.AppPassword {
		t.Errorf("AppPassword mismatch: got %s, want %s", retrieved.AppPassword, account.AppPassword)
	}
	if retrieved.Endpoint != account.Endpoint {
		t.Errorf("Endpoint mismatch: got %s, want %s", retrieved.Endpoint, account.Endpoint)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected 1 account in list, got %d", len(accounts))
	}

	if err := manager.Delete("alice.bsky.social"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("alice.bsky.social"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound after delete, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	tests := []struct {
		name    string
		account *Account
	}{
		{"nil account", nil},
		{"missing handle", &Account{AppPassword: "secret"}},
		{"missing password", &Account{Handle: "bob.test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := manager.Store(tt.account); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestManagerFallsThroughStores(t *testing.T) {
	failing := NewMockStore()
	failing.StoreError = errors.New("keychain locked")
	backup := NewMockStore()

	manager := NewManagerWithStores(failing, backup)
	if err := manager.Store(&Account{Handle: "bob.test", AppPassword: "pw"}); err != nil {
		t.Fatalf("Expected the second store to accept the account: %v", err)
	}
	if !backup.Exists("bob.test") {
		t.Error("Account should be in the backup store")
	}

	both := NewMockStore()
	both.StoreError = errors.New("read-only")
	manager = NewManagerWithStores(failing, both)
	if err := manager.Store(&Account{Handle: "bob.test", AppPassword: "pw"}); err == nil {
		t.Error("Expected an error when every store refuses")
	}
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()
	_ = older.Store(&Account{Handle: "bob.test", AppPassword: "old", LastModified: time.Now().Add(-time.Hour)})
	_ = newer.Store(&Account{Handle: "bob.test", AppPassword: "new", LastModified: time.Now()})

	accounts, err := NewManagerWithStores(older, newer).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0].AppPassword != "new" {
		t.Errorf("Expected the newest copy, got %+v", accounts)
	}
}

func TestPasswordForChecksEndpoint(t *testing.T) {
	store := NewMockStore()
	_ = store.Store(&Account{Handle: "carol.test", Endpoint: "https://pds.example.com", AppPassword: "pw"})
	manager := NewManagerWithStores(store)

	if pw, err := manager.PasswordFor("https://pds.example.com", "carol.test"); err != nil || pw != "pw" {
		t.Errorf("Expected stored password, got %q, %v", pw, err)
	}
	if _, err := manager.PasswordFor("https://bsky.social", "carol.test"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected endpoint mismatch to be not found, got %v", err)
	}
	if _, err := manager.PasswordFor("https://pds.example.com", "dave.test"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected unknown handle to be not found, got %v", err)
	}
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.enc")
	store, err := NewEncryptedFileStoreWithPassphrase(path, "correct horse")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	account := &Account{Handle: "alice.test", AppPassword: "abcd-efgh-ijkl-mnop"}
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}
	if err := store.Store(&Account{Handle: "bob.test", AppPassword: "other"}); err != nil {
		t.Fatalf("Failed to store second account: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if strings.Contains(string(raw), "abcd-efgh-ijkl-mnop") {
		t.Error("App password must not appear in plain text")
	}
	if info, err := os.Stat(path); err == nil && info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	// A second instance with the same passphrase reads the same data
	reopened, _ := NewEncryptedFileStoreWithPassphrase(path, "correct horse")
	got, err := reopened.Retrieve("alice.test")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if got.AppPassword != account.AppPassword {
		t.Errorf("Got %q, want %q", got.AppPassword, account.AppPassword)
	}

	list, _ := reopened.List()
	if len(list) != 2 {
		t.Errorf("Expected 2 accounts, got %d", len(list))
	}

	wrong, _ := NewEncryptedFileStoreWithPassphrase(path, "wrong")
	if _, err := wrong.Retrieve("alice.test"); err == nil || errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected a decryption error, got %v", err)
	}

	if err := store.Delete("alice.test"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if store.Exists("alice.test") {
		t.Error("Deleted account still exists")
	}
	if err := store.Delete("bob.test"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be removed with the last account")
	}
	if err := store.Delete("bob.test"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestEncryptedFileStoreUsesPassphraseEnv(t *testing.T) {
	t.Setenv(passphraseEnv, "from-env")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if store.passphrase != "from-env" {
		t.Errorf("Expected passphrase from env, got %q", store.passphrase)
	}
}

func TestEncryptedFileStoreMissingFile(t *testing.T) {
	store, _ := NewEncryptedFileStoreWithPassphrase(filepath.Join(t.TempDir(), "none.enc"), "p")

	if _, err := store.Retrieve("x.test"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	list, err := store.List()
	if err != nil || len(list) != 0 {
		t.Errorf("Expected empty list, got %v, %v", list, err)
	}
	if _, err := NewEncryptedFileStoreWithPassphrase("x.enc", ""); err == nil {
		t.Error("Expected an error for an empty passphrase")
	}
}

func fakeEnv(vars map[string]string) *EnvironmentStore {
	return &EnvironmentStore{getenv: func(k string) string { return vars[k] }}
}

func TestEnvironmentStore(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		handle  string
		want    string
		wantErr bool
	}{
		{"no password", map[string]string{EnvUsername: "alice.test"}, "alice.test", "", true},
		{"matching handle", map[string]string{EnvUsername: "alice.test", EnvPassword: "pw"}, "alice.test", "alice.test", false},
		{"other handle", map[string]string{EnvUsername: "alice.test", EnvPassword: "pw"}, "bob.test", "", true},
		{"default handle", map[string]string{EnvUsername: "alice.test", EnvPassword: "pw"}, "", "alice.test", false},
		{"password only", map[string]string{EnvPassword: "pw"}, "bob.test", "bob.test", false},
		{"nothing named", map[string]string{EnvPassword: "pw"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := fakeEnv(tt.vars).Retrieve(tt.handle)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %+v", account)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if account.Handle != tt.want {
				t.Errorf("Handle = %q, want %q", account.Handle, tt.want)
			}
		})
	}

	env := fakeEnv(map[string]string{EnvUsername: "a.test", EnvPassword: "pw", EnvEndpoint: "https://pds.test"})
	if err := env.Store(&Account{Handle: "a.test"}); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Store should be unavailable, got %v", err)
	}
	list, _ := env.List()
	if len(list) != 1 || list[0].Endpoint != "https://pds.test" {
		t.Errorf("Unexpected list: %+v", list)
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{Handle: "alice.test", AppPassword: "abcd-efgh-ijkl-mnop"}
	sanitized := SanitizeAccount(account)

	if sanitized.AppPassword == account.AppPassword {
		t.Error("AppPassword should be masked")
	}
	if sanitized.AppPassword != "abcd...mnop" {
		t.Errorf("Unexpected mask %q", sanitized.AppPassword)
	}
	if sanitized.Handle != account.Handle {
		t.Error("Handle should not be masked")
	}
	if SanitizeAccount(nil) != nil {
		t.Error("Sanitizing nil should return nil")
	}
	if maskString("short") != "********" {
		t.Error("Short strings should be fully masked")
	}
}

func TestLookup(t *testing.T) {
	store := NewMockStore()
	_ = store.Store(&Account{Handle: "alice.test", AppPassword: "stored"})
	manager := NewManagerWithStores(store)

	prompted := 0
	prompt := func(handle string) (string, error) {
		prompted++
		return "typed", nil
	}

	lookup := lookupWith(manager, true, prompt)
	if pw, err := lookup("", "alice.test"); err != nil || pw != "stored" {
		t.Errorf("Expected stored password, got %q, %v", pw, err)
	}
	if prompted != 0 {
		t.Error("Stored credentials should not prompt")
	}

	if pw, err := lookup("", "bob.test"); err != nil || pw != "typed" {
		t.Errorf("Expected prompted password, got %q, %v", pw, err)
	}
	if prompted != 1 {
		t.Errorf("Expected one prompt, got %d", prompted)
	}

	if _, err := lookupWith(manager, false, prompt)("", "bob.test"); err == nil {
		t.Error("Non-interactive lookup should not prompt")
	}
	if _, err := lookupWith(nil, false, prompt)("", "bob.test"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}

	empty := lookupWith(nil, true, func(string) (string, error) { return "", nil })
	if _, err := empty("", "bob.test"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Empty input should be invalid, got %v", err)
	}
}

func TestShowAppPasswordGuide(t *testing.T) {
	var sb strings.Builder
	ShowAppPasswordGuide(&sb)
	if !strings.Contains(sb.String(), EnvPassword) {
		t.Error("Guide should mention the password variable")
	}
}
