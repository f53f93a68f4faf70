package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmynk/profilekeeper/internal/models"
)

// Record is the serialized form of an account shared by the SQL and Redis
// backends: the key, the creation time and one JSON document per section.
type Record struct {
	Principal []byte
	CreatedAt int64 // unix nanoseconds
	Personal  []byte
	Social    []byte
	Job       []byte
	Stats     []byte
}

// EncodeAccount serializes acc into a Record.
func EncodeAccount(acc *models.UserAccount) (Record, error) {
	rec := Record{
		Principal: acc.Principal.Bytes(),
		CreatedAt: acc.CreatedAt.UnixNano(),
	}

	var err error
	if rec.Personal, err = EncodeSection(acc.Profile.Personal); err != nil {
		return Record{}, err
	}
	if rec.Social, err = EncodeSection(acc.Profile.Social); err != nil {
		return Record{}, err
	}
	if rec.Job, err = EncodeSection(acc.Profile.Job); err != nil {
		return Record{}, err
	}
	if rec.Stats, err = EncodeSection(acc.Stats); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Decode rebuilds the account held in r.
func (r Record) Decode() (*models.UserAccount, error) {
	p, err := models.PrincipalFromBytes(r.Principal)
	if err != nil {
		return nil, fmt.Errorf("failed to decode principal: %w", err)
	}

	acc := &models.UserAccount{
		Principal: p,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}
	if acc.Profile.Personal, err = DecodeSection[models.PersonalInfo](r.Personal); err != nil {
		return nil, err
	}
	if acc.Profile.Social, err = DecodeSection[models.SocialLinks](r.Social); err != nil {
		return nil, err
	}
	if acc.Profile.Job, err = DecodeSection[models.JobPreferences](r.Job); err != nil {
		return nil, err
	}
	if acc.Stats, err = DecodeSection[models.Stats](r.Stats); err != nil {
		return nil, err
	}
	if acc.Stats.Medals == nil {
		acc.Stats.Medals = []models.Medal{}
	}
	return acc, nil
}

// EncodeSection serializes a single section or the stats block.
func EncodeSection(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode section: %w", err)
	}
	return b, nil
}

// DecodeSection parses a document written by EncodeSection. An empty
// document decodes to the zero value.
func DecodeSection[T any](b []byte) (T, error) {
	var v T
	if len(b) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("failed to decode section: %w", err)
	}
	return v, nil
}
