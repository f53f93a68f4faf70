package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/storage"
)

// GetOrCreate inserts the default account unless one exists, then reads it back.
// The insert is a no-op on conflict, so concurrent callers converge on one row.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	rec, err := storage.EncodeAccount(models.NewUserAccount(p, s.now()))
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (principal, created_at, personal, social, job, stats)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (principal) DO NOTHING
	`,
		rec.Principal,
		rec.CreatedAt,
		string(rec.Personal),
		string(rec.Social),
		string(rec.Job),
		string(rec.Stats),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return s.GetComplete(ctx, p)
}

// GetComplete retrieves the full account for p.
func (s *SQLiteStore) GetComplete(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	query := `
		SELECT principal, created_at, personal, social, job, stats
		FROM accounts
		WHERE principal = ?
	`

	var rec storage.Record
	err := s.db.QueryRowContext(ctx, query, p.Bytes()).Scan(
		&rec.Principal,
		&rec.CreatedAt,
		&rec.Personal,
		&rec.Social,
		&rec.Job,
		&rec.Stats,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return rec.Decode()
}

func (s *SQLiteStore) GetPersonal(ctx context.Context, p models.Principal) (models.PersonalInfo, error) {
	return getSection[models.PersonalInfo](ctx, s.db, p, models.SectionPersonal)
}

func (s *SQLiteStore) GetSocial(ctx context.Context, p models.Principal) (models.SocialLinks, error) {
	return getSection[models.SocialLinks](ctx, s.db, p, models.SectionSocial)
}

func (s *SQLiteStore) GetJob(ctx context.Context, p models.Principal) (models.JobPreferences, error) {
	return getSection[models.JobPreferences](ctx, s.db, p, models.SectionJob)
}

func (s *SQLiteStore) UpdatePersonal(ctx context.Context, p models.Principal, info models.PersonalInfo) error {
	return s.updateSection(ctx, p, models.SectionPersonal, info)
}

func (s *SQLiteStore) UpdateSocial(ctx context.Context, p models.Principal, links models.SocialLinks) error {
	return s.updateSection(ctx, p, models.SectionSocial, links)
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, p models.Principal, prefs models.JobPreferences) error {
	return s.updateSection(ctx, p, models.SectionJob, prefs)
}

// updateSection overwrites one section column in a single statement.
func (s *SQLiteStore) updateSection(ctx context.Context, p models.Principal, section models.Section, value any) error {
	column, err := sectionColumn(section)
	if err != nil {
		return err
	}
	doc, err := storage.EncodeSection(value)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET "+column+" = ? WHERE principal = ?",
		string(doc), p.Bytes(),
	)
	if err != nil {
		return fmt.Errorf("failed to update %s section: %w", section, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func getSection[T any](ctx context.Context, db *sql.DB, p models.Principal, section models.Section) (T, error) {
	var zero T
	column, err := sectionColumn(section)
	if err != nil {
		return zero, err
	}

	var doc []byte
	err = db.QueryRowContext(ctx,
		"SELECT "+column+" FROM accounts WHERE principal = ?",
		p.Bytes(),
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, storage.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get %s section: %w", section, err)
	}

	return storage.DecodeSection[T](doc)
}

// sectionColumn maps a section to its column. Only known sections reach SQL.
func sectionColumn(section models.Section) (string, error) {
	switch section {
	case models.SectionPersonal:
		return "personal", nil
	case models.SectionSocial:
		return "social", nil
	case models.SectionJob:
		return "job", nil
	}
	return "", fmt.Errorf("unknown section %q", section)
}
