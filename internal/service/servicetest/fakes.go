// Package servicetest provides in-memory fakes for the service ports, shared
// by service and API tests.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/reeys/reeys-backend/internal/models"
)

// MemStore is an in-memory account store and transaction log with the same
// conditional-decrement semantics as the real adapter.
type MemStore struct {
	mu       sync.Mutex
	Accounts map[string]*models.Account
	Txns     []models.Transaction
	Now      func() time.Time
	FindErr  error
}

func NewMemStore() *MemStore {
	return &MemStore{
		Accounts: make(map[string]*models.Account),
		Now:      time.Now,
	}
}

// Put seeds an account, overwriting any existing one.
func (m *MemStore) Put(account *models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *account
	m.Accounts[account.UID] = &cp
}

// Get returns a copy of the stored account, or nil.
func (m *MemStore) Get(uid string) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[uid]
	if !ok {
		return nil
	}
	cp := *account
	return &cp
}

func (m *MemStore) Find(ctx context.Context, uid string) (*models.Account, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	return m.Get(uid), nil
}

func (m *MemStore) Create(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Accounts[account.UID]; exists {
		return nil
	}
	cp := *account
	cp.CreatedAt = m.Now()
	cp.LastUpdated = cp.CreatedAt
	m.Accounts[account.UID] = &cp
	return nil
}

func (m *MemStore) AddBalance(ctx context.Context, uid string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[uid]
	if !ok {
		return fmt.Errorf("account %s not found", uid)
	}
	account.Balance += delta
	if account.Balance < 0 {
		account.Balance = 0
	}
	account.LastUpdated = m.Now()
	return nil
}

func (m *MemStore) DeductBalance(ctx context.Context, uid string, amount int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[uid]
	if !ok || account.Balance < amount {
		return false, nil
	}
	account.Balance -= amount
	account.LastUpdated = m.Now()
	return true, nil
}

func (m *MemStore) GrantSubscriptionTokens(ctx context.Context, uid string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[uid]
	if !ok {
		return fmt.Errorf("account %s not found", uid)
	}
	account.Balance += amount
	now := m.Now()
	account.LastTokenAdd = &now
	account.LastUpdated = now
	return nil
}

func (m *MemStore) UpdateSubscription(ctx context.Context, uid string, status models.SubscriptionStatus, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[uid]
	if !ok {
		return fmt.Errorf("account %s not found", uid)
	}
	account.SubscriptionStatus = status
	if productID != "" {
		account.SubscriptionProductID = productID
	}
	account.LastUpdated = m.Now()
	return nil
}

func (m *MemStore) ResetWeek(ctx context.Context, uid string, start time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[uid]
	if !ok {
		return fmt.Errorf("account %s not found", uid)
	}
	account.WeekStartDate = &start
	account.WeeklyGenerated = 0
	account.LastUpdated = m.Now()
	return nil
}

func (m *MemStore) IncrementGenerated(ctx context.Context, uid string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[uid]
	if !ok {
		return fmt.Errorf("account %s not found", uid)
	}
	account.TotalGenerated += count
	account.WeeklyGenerated += count
	account.LastUpdated = m.Now()
	return nil
}

func (m *MemStore) Record(ctx context.Context, uid, event string, amount int, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Txns = append(m.Txns, models.Transaction{
		ID:          int64(len(m.Txns) + 1),
		UID:         uid,
		Event:       event,
		Amount:      amount,
		Description: description,
		CreatedAt:   m.Now(),
	})
	return nil
}

func (m *MemStore) ListForUser(ctx context.Context, uid string, limit int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []models.Transaction
	for i := len(m.Txns) - 1; i >= 0 && len(out) < limit; i-- {
		if m.Txns[i].UID == uid {
			out = append(out, m.Txns[i])
		}
	}
	return out, nil
}

// TxnsFor returns recorded transactions for uid, optionally filtered by event.
func (m *MemStore) TxnsFor(uid, event string) []models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.Txns {
		if t.UID == uid && (event == "" || t.Event == event) {
			out = append(out, t)
		}
	}
	return out
}

// FakeGateway scripts the AI collaborator per prompt.
type FakeGateway struct {
	mu                    sync.Mutex
	GenerateImageFn       func(ctx context.Context, original []byte, prompt string, reference []byte) ([]byte, error)
	GenerateSuggestionsFn func(ctx context.Context, image []byte) ([]models.Suggestion, error)
	Prompts               []string
}

func (f *FakeGateway) GenerateImage(ctx context.Context, original []byte, prompt string, reference []byte) ([]byte, error) {
	f.mu.Lock()
	f.Prompts = append(f.Prompts, prompt)
	f.mu.Unlock()
	if f.GenerateImageFn != nil {
		return f.GenerateImageFn(ctx, original, prompt, reference)
	}
	return []byte("image:" + prompt), nil
}

func (f *FakeGateway) GenerateSuggestions(ctx context.Context, image []byte) ([]models.Suggestion, error) {
	if f.GenerateSuggestionsFn != nil {
		return f.GenerateSuggestionsFn(ctx, image)
	}
	return nil, fmt.Errorf("not scripted")
}

// FakeUploader fabricates public URLs without touching any blob store.
type FakeUploader struct {
	mu      sync.Mutex
	Uploads int
	Err     error
}

func (f *FakeUploader) Upload(ctx context.Context, userID string, data []byte, contentType string) (string, string, error) {
	if f.Err != nil {
		return "", "", f.Err
	}
	f.mu.Lock()
	f.Uploads++
	n := f.Uploads
	f.mu.Unlock()
	key := fmt.Sprintf("user_images/%s/object-%d.jpg", userID, n)
	return "https://cdn.test/" + key, key, nil
}

// FakeImageStore records saved image metadata and hands out document ids.
type FakeImageStore struct {
	mu    sync.Mutex
	Saved []models.GeneratedImage
}

func (f *FakeImageStore) Save(ctx context.Context, userID, imageURL, fileName, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("doc-%d", len(f.Saved)+1)
	f.Saved = append(f.Saved, models.GeneratedImage{
		ID:       id,
		UserID:   userID,
		ImageURL: imageURL,
		FileName: fileName,
		Prompts:  []string{prompt},
	})
	return id, nil
}

func (f *FakeImageStore) FindByID(ctx context.Context, id string) (*models.GeneratedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, img := range f.Saved {
		if img.ID == id {
			cp := img
			return &cp, nil
		}
	}
	return nil, nil
}

// FakePackStore serves packs from a map.
type FakePackStore struct {
	Packs map[string]*models.Pack
}

func (f *FakePackStore) FindByID(ctx context.Context, id string) (*models.Pack, error) {
	pack, ok := f.Packs[id]
	if !ok {
		return nil, nil
	}
	cp := *pack
	return &cp, nil
}

func (f *FakePackStore) List(ctx context.Context) ([]models.Pack, error) {
	var out []models.Pack
	for _, pack := range f.Packs {
		if pack.IsActive {
			out = append(out, *pack)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

// FakePremiumList is an email allow-list backed by a set.
type FakePremiumList struct {
	Emails map[string]bool
	Err    error
}

func (f *FakePremiumList) Contains(ctx context.Context, email string) (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}
	return f.Emails[email], nil
}
