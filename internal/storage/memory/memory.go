// Package memory provides an in-process implementation of storage.AccountStore.
// Accounts live for the lifetime of the process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/storage"
)

var _ storage.AccountStore = (*Store)(nil)

// Store keeps accounts in a map guarded by a single mutex.
type Store struct {
	mu       sync.RWMutex
	accounts map[models.Principal]*models.UserAccount
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[models.Principal]*models.UserAccount),
		now:      time.Now,
	}
}

func (s *Store) GetOrCreate(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[p]
	if !ok {
		acc = models.NewUserAccount(p, s.now())
		s.accounts[p] = acc
	}
	return acc.Clone(), nil
}

func (s *Store) GetComplete(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[p]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return acc.Clone(), nil
}

func (s *Store) GetPersonal(ctx context.Context, p models.Principal) (models.PersonalInfo, error) {
	acc, err := s.GetComplete(ctx, p)
	if err != nil {
		return models.PersonalInfo{}, err
	}
	return acc.Profile.Personal, nil
}

func (s *Store) GetSocial(ctx context.Context, p models.Principal) (models.SocialLinks, error) {
	acc, err := s.GetComplete(ctx, p)
	if err != nil {
		return models.SocialLinks{}, err
	}
	return acc.Profile.Social, nil
}

func (s *Store) GetJob(ctx context.Context, p models.Principal) (models.JobPreferences, error) {
	acc, err := s.GetComplete(ctx, p)
	if err != nil {
		return models.JobPreferences{}, err
	}
	return acc.Profile.Job, nil
}

func (s *Store) UpdatePersonal(ctx context.Context, p models.Principal, info models.PersonalInfo) error {
	return s.update(p, func(acc *models.UserAccount) { acc.Profile.Personal = info.Clone() })
}

func (s *Store) UpdateSocial(ctx context.Context, p models.Principal, links models.SocialLinks) error {
	return s.update(p, func(acc *models.UserAccount) { acc.Profile.Social = links.Clone() })
}

func (s *Store) UpdateJob(ctx context.Context, p models.Principal, prefs models.JobPreferences) error {
	return s.update(p, func(acc *models.UserAccount) { acc.Profile.Job = prefs.Clone() })
}

// Close is a no-op; the map is released with the store.
func (s *Store) Close() error {
	return nil
}

func (s *Store) update(p models.Principal, apply func(*models.UserAccount)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[p]
	if !ok {
		return storage.ErrNotFound
	}
	apply(acc)
	return nil
}
