package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/storage"
)

const (
	insertAccountQuery = `
		INSERT INTO accounts (principal, created_at, personal, social, job, stats)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (principal) DO NOTHING`

	selectAccountQuery = `
		SELECT principal, created_at, personal, social, job, stats
		FROM accounts
		WHERE principal = $1`
)

// GetOrCreate inserts the default account unless one exists, then reads it back
// in a separate statement so a row committed by a concurrent caller is visible.
func (s *PostgresStore) GetOrCreate(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	rec, err := storage.EncodeAccount(models.NewUserAccount(p, s.now()))
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(ctx, insertAccountQuery,
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

func (s *PostgresStore) GetComplete(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	var rec storage.Record
	err := s.db.QueryRow(ctx, selectAccountQuery, p.Bytes()).Scan(
		&rec.Principal,
		&rec.CreatedAt,
		&rec.Personal,
		&rec.Social,
		&rec.Job,
		&rec.Stats,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return rec.Decode()
}

func (s *PostgresStore) GetPersonal(ctx context.Context, p models.Principal) (models.PersonalInfo, error) {
	return getSection[models.PersonalInfo](ctx, s.db, p, models.SectionPersonal)
}

func (s *PostgresStore) GetSocial(ctx context.Context, p models.Principal) (models.SocialLinks, error) {
	return getSection[models.SocialLinks](ctx, s.db, p, models.SectionSocial)
}

func (s *PostgresStore) GetJob(ctx context.Context, p models.Principal) (models.JobPreferences, error) {
	return getSection[models.JobPreferences](ctx, s.db, p, models.SectionJob)
}

func (s *PostgresStore) UpdatePersonal(ctx context.Context, p models.Principal, info models.PersonalInfo) error {
	return s.updateSection(ctx, p, models.SectionPersonal, info)
}

func (s *PostgresStore) UpdateSocial(ctx context.Context, p models.Principal, links models.SocialLinks) error {
	return s.updateSection(ctx, p, models.SectionSocial, links)
}

func (s *PostgresStore) UpdateJob(ctx context.Context, p models.Principal, prefs models.JobPreferences) error {
	return s.updateSection(ctx, p, models.SectionJob, prefs)
}

func (s *PostgresStore) updateSection(ctx context.Context, p models.Principal, section models.Section, value any) error {
	query, ok := updateQueries[section]
	if !ok {
		return fmt.Errorf("unknown section %q", section)
	}
	doc, err := storage.EncodeSection(value)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, query, string(doc), p.Bytes())
	if err != nil {
		return fmt.Errorf("failed to update %s section: %w", section, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var updateQueries = map[models.Section]string{
	models.SectionPersonal: `UPDATE accounts SET personal = $1 WHERE principal = $2`,
	models.SectionSocial:   `UPDATE accounts SET social = $1 WHERE principal = $2`,
	models.SectionJob:      `UPDATE accounts SET job = $1 WHERE principal = $2`,
}

var selectQueries = map[models.Section]string{
	models.SectionPersonal: `SELECT personal FROM accounts WHERE principal = $1`,
	models.SectionSocial:   `SELECT social FROM accounts WHERE principal = $1`,
	models.SectionJob:      `SELECT job FROM accounts WHERE principal = $1`,
}

func getSection[T any](ctx context.Context, db DB, p models.Principal, section models.Section) (T, error) {
	var zero T
	query, ok := selectQueries[section]
	if !ok {
		return zero, fmt.Errorf("unknown section %q", section)
	}

	var doc []byte
	err := db.QueryRow(ctx, query, p.Bytes()).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, storage.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get %s section: %w", section, err)
	}
	return storage.DecodeSection[T](doc)
}
