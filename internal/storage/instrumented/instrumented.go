// Package instrumented decorates a storage.AccountStore with Prometheus metrics.
package instrumented

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/profilekeeper/internal/metrics"
	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/storage"
)

var _ storage.AccountStore = (*Store)(nil)

// Store records the outcome and latency of every call to the wrapped store.
type Store struct {
	next    storage.AccountStore
	metrics *metrics.Metrics
}

// Wrap returns next instrumented with m.
func Wrap(next storage.AccountStore, m *metrics.Metrics) *Store {
	return &Store{next: next, metrics: m}
}

func (s *Store) GetOrCreate(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	defer s.observe("get_or_create", time.Now())
	acc, err := s.next.GetOrCreate(ctx, p)
	s.record("get_or_create", "", err)
	return acc, err
}

func (s *Store) GetComplete(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	defer s.observe("get_complete", time.Now())
	acc, err := s.next.GetComplete(ctx, p)
	s.record("get_complete", "", err)
	return acc, err
}

func (s *Store) GetPersonal(ctx context.Context, p models.Principal) (models.PersonalInfo, error) {
	defer s.observe("get_section", time.Now())
	v, err := s.next.GetPersonal(ctx, p)
	s.record("get_section", models.SectionPersonal, err)
	return v, err
}

func (s *Store) GetSocial(ctx context.Context, p models.Principal) (models.SocialLinks, error) {
	defer s.observe("get_section", time.Now())
	v, err := s.next.GetSocial(ctx, p)
	s.record("get_section", models.SectionSocial, err)
	return v, err
}

func (s *Store) GetJob(ctx context.Context, p models.Principal) (models.JobPreferences, error) {
	defer s.observe("get_section", time.Now())
	v, err := s.next.GetJob(ctx, p)
	s.record("get_section", models.SectionJob, err)
	return v, err
}

func (s *Store) UpdatePersonal(ctx context.Context, p models.Principal, info models.PersonalInfo) error {
	defer s.observe("update_section", time.Now())
	err := s.next.UpdatePersonal(ctx, p, info)
	s.record("update_section", models.SectionPersonal, err)
	return err
}

func (s *Store) UpdateSocial(ctx context.Context, p models.Principal, links models.SocialLinks) error {
	defer s.observe("update_section", time.Now())
	err := s.next.UpdateSocial(ctx, p, links)
	s.record("update_section", models.SectionSocial, err)
	return err
}

func (s *Store) UpdateJob(ctx context.Context, p models.Principal, prefs models.JobPreferences) error {
	defer s.observe("update_section", time.Now())
	err := s.next.UpdateJob(ctx, p, prefs)
	s.record("update_section", models.SectionJob, err)
	return err
}

func (s *Store) Close() error {
	return s.next.Close()
}

func (s *Store) observe(op string, start time.Time) {
	s.metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *Store) record(op string, section models.Section, err error) {
	result := metrics.ResultOK
	switch {
	case errors.Is(err, storage.ErrNotFound):
		result = metrics.ResultNotFound
	case err != nil:
		result = metrics.ResultError
	}
	s.metrics.StoreOperations.WithLabelValues(op, string(section), result).Inc()
}
