package auth

import "sync"

// MockStore is an in-memory CredentialStore with error injection
type MockStore struct {
	accounts map[string]Account
	mu       sync.RWMutex

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates an empty in-memory store
func NewMockStore() *MockStore {
	return &MockStore{accounts: make(map[string]Account)}
}

// Store saves a copy of account
func (m *MockStore) Store(account *Account) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if account == nil || account.Handle == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Handle] = *account
	return nil
}

// Retrieve returns a copy of the stored account
func (m *MockStore) Retrieve(handle string) (*Account, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}
	if handle == "" {
		return nil, ErrInvalidCredentials
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[handle]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns copies of all stored accounts
func (m *MockStore) List() ([]*Account, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]*Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		acc := account
		accounts = append(accounts, &acc)
	}
	return accounts, nil
}

// Delete removes the account for handle
func (m *MockStore) Delete(handle string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if handle == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[handle]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, handle)
	return nil
}

// Exists checks if an account is stored for handle
func (m *MockStore) Exists(handle string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[handle]
	return ok
}

// Count returns the number of stored accounts
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
