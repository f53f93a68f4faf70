// Package storage provides abstractions for persistent account storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/profilekeeper/internal/models"
)

// ErrNotFound is returned when no account exists for a principal.
var ErrNotFound = errors.New("account not found")

// AccountStore defines the interface for account storage operations.
// This abstraction allows swapping storage backends (memory, SQLite, PostgreSQL, Redis)
// without changing the service layer.
//
// Every call is atomic with respect to other calls for the same principal.
// Implementations store exactly what they are given and perform no validation.
type AccountStore interface {
	// GetOrCreate returns the account for p, creating and persisting the
	// default account first if none exists. An existing account is returned
	// unmodified.
	GetOrCreate(ctx context.Context, p models.Principal) (*models.UserAccount, error)

	// GetComplete returns the full account for p, or ErrNotFound.
	GetComplete(ctx context.Context, p models.Principal) (*models.UserAccount, error)

	// GetPersonal, GetSocial and GetJob return a single section, or ErrNotFound.
	GetPersonal(ctx context.Context, p models.Principal) (models.PersonalInfo, error)
	GetSocial(ctx context.Context, p models.Principal) (models.SocialLinks, error)
	GetJob(ctx context.Context, p models.Principal) (models.JobPreferences, error)

	// UpdatePersonal, UpdateSocial and UpdateJob replace one section wholesale.
	// Nothing else in the account changes. They return ErrNotFound, and write
	// nothing, when p has no account.
	UpdatePersonal(ctx context.Context, p models.Principal, info models.PersonalInfo) error
	UpdateSocial(ctx context.Context, p models.Principal, links models.SocialLinks) error
	UpdateJob(ctx context.Context, p models.Principal, prefs models.JobPreferences) error

	// Close releases any resources held by the store.
	Close() error
}
