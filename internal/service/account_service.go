package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/mmynk/profilekeeper/internal/api"
	"github.com/mmynk/profilekeeper/internal/auth"
	"github.com/mmynk/profilekeeper/internal/metrics"
	"github.com/mmynk/profilekeeper/internal/middleware"
	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/profile"
	"github.com/mmynk/profilekeeper/internal/storage"
)

// AccountOptions tunes AccountService behaviour.
type AccountOptions struct {
	// StrictUpdates reports NotFound for updates from callers without an
	// account. By default such updates are dropped and an empty response is
	// returned.
	StrictUpdates bool
}

// AccountService implements the Connect AccountService. Every call acts on the
// authenticated caller's own account.
type AccountService struct {
	store     storage.AccountStore
	assembler *profile.Assembler
	metrics   *metrics.Metrics
	logger    *slog.Logger
	opts      AccountOptions
}

var _ api.AccountServiceHandler = (*AccountService)(nil)

// NewAccountService creates a new AccountService.
func NewAccountService(store storage.AccountStore, assembler *profile.Assembler, m *metrics.Metrics, logger *slog.Logger, opts AccountOptions) *AccountService {
	return &AccountService{
		store:     store,
		assembler: assembler,
		metrics:   m,
		logger:    logger,
		opts:      opts,
	}
}

// GetOrCreateAccount returns the caller's account, creating it with defaults
// on first use.
func (s *AccountService) GetOrCreateAccount(ctx context.Context, req *connect.Request[api.GetOrCreateAccountRequest]) (*connect.Response[api.GetOrCreateAccountResponse], error) {
	p, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	acc, err := s.store.GetOrCreate(ctx, p)
	if err != nil {
		s.logger.Error("GetOrCreateAccount failed", "principal", p, "error", err)
		return nil, s.toConnectError(err)
	}

	return connect.NewResponse(&api.GetOrCreateAccountResponse{Account: accountToAPI(acc)}), nil
}

// GetCompleteAccount returns the caller's account or CodeNotFound.
func (s *AccountService) GetCompleteAccount(ctx context.Context, req *connect.Request[api.GetCompleteAccountRequest]) (*connect.Response[api.GetCompleteAccountResponse], error) {
	p, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	acc, err := s.store.GetComplete(ctx, p)
	if err != nil {
		return nil, s.toConnectError(err)
	}

	return connect.NewResponse(&api.GetCompleteAccountResponse{Account: accountToAPI(acc)}), nil
}

// GetPersonalInfo returns the caller's personal section.
func (s *AccountService) GetPersonalInfo(ctx context.Context, req *connect.Request[api.GetPersonalInfoRequest]) (*connect.Response[api.GetPersonalInfoResponse], error) {
	p, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	info, err := s.store.GetPersonal(ctx, p)
	if err != nil {
		return nil, s.toConnectError(err)
	}

	return connect.NewResponse(&api.GetPersonalInfoResponse{Personal: &info}), nil
}

// UpdatePersonalInfo merges the patch into the stored personal section.
func (s *AccountService) UpdatePersonalInfo(ctx context.Context, req *connect.Request[api.UpdatePersonalInfoRequest]) (*connect.Response[api.UpdatePersonalInfoResponse], error) {
	p, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	info, err := s.assembler.AssemblePersonal(ctx, p, req.Msg.Personal)
	if err != nil {
		if s.dropUpdate(p, models.SectionPersonal, err) {
			return connect.NewResponse(&api.UpdatePersonalInfoResponse{}), nil
		}
		return nil, s.updateError(p, models.SectionPersonal, err)
	}

	s.logger.Info("Personal info updated", "principal", p)
	return connect.NewResponse(&api.UpdatePersonalInfoResponse{Personal: &info}), nil
}

// GetSocialLinks returns the caller's social section.
func (s *AccountService) GetSocialLinks(ctx context.Context, req *connect.Request[api.GetSocialLinksRequest]) (*connect.Response[api.GetSocialLinksResponse], error) {
	p, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	links, err := s.store.GetSocial(ctx, p)
	if err != nil {
		return nil, s.toConnectError(err)
	}

	return connect.NewResponse(&api.GetSocialLinksResponse{Social: socialToAPI(links)}), nil
}

// UpdateSocialLinks merges the patch into the stored social section. A set
// additional list replaces the stored one.
func (s *AccountService) UpdateSocialLinks(ctx context.Context, req *connect.Request[api.UpdateSocialLinksRequest]) (*connect.Response[api.UpdateSocialLinksResponse], error) {
	p, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	links, err := s.assembler.AssembleSocial(ctx, p, socialPatchFromAPI(req.Msg.Social))
	if err != nil {
		if s.dropUpdate(p, models.SectionSocial, err) {
			return connect.NewResponse(&api.UpdateSocialLinksResponse{}), nil
		}
		return nil, s.updateError(p, models.SectionSocial, err)
	}

	s.logger.Info("Social links updated", "principal", p)
	return connect.NewResponse(&api.UpdateSocialLinksResponse{Social: socialToAPI(links)}), nil
}

// GetJobPreferences returns the caller's job section.
func (s *AccountService) GetJobPreferences(ctx context.Context, req *connect.Request[api.GetJobPreferencesRequest]) (*connect.Response[api.GetJobPreferencesResponse], error) {
	p, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	prefs, err := s.store.GetJob(ctx, p)
	if err != nil {
		return nil, s.toConnectError(err)
	}

	return connect.NewResponse(&api.GetJobPreferencesResponse{Job: &prefs}), nil
}

// UpdateJobPreferences merges the patch into the stored job section.
func (s *AccountService) UpdateJobPreferences(ctx context.Context, req *connect.Request[api.UpdateJobPreferencesRequest]) (*connect.Response[api.UpdateJobPreferencesResponse], error) {
	p, err := callerPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	prefs, err := s.assembler.AssembleJob(ctx, p, req.Msg.Job)
	if err != nil {
		if s.dropUpdate(p, models.SectionJob, err) {
			return connect.NewResponse(&api.UpdateJobPreferencesResponse{}), nil
		}
		return nil, s.updateError(p, models.SectionJob, err)
	}

	s.logger.Info("Job preferences updated", "principal", p)
	return connect.NewResponse(&api.UpdateJobPreferencesResponse{Job: &prefs}), nil
}

// dropUpdate reports whether err is an update before account creation that
// should be answered with an empty response.
func (s *AccountService) dropUpdate(p models.Principal, section models.Section, err error) bool {
	if s.opts.StrictUpdates || !errors.Is(err, storage.ErrNotFound) {
		return false
	}
	s.logger.Warn("Dropping update for missing account", "principal", p, "section", section)
	return true
}

func (s *AccountService) updateError(p models.Principal, section models.Section, err error) error {
	if errors.Is(err, profile.ErrValidation) {
		s.metrics.ValidationFailures.WithLabelValues(string(section)).Inc()
		s.logger.Info("Rejected update", "principal", p, "section", section, "error", err)
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("Update failed", "principal", p, "section", section, "error", err)
	}
	return s.toConnectError(err)
}

func (s *AccountService) toConnectError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, profile.ErrValidation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func callerPrincipal(ctx context.Context) (models.Principal, error) {
	p, ok := middleware.GetPrincipal(ctx)
	if !ok || p.IsAnonymous() {
		return models.Principal{}, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return p, nil
}
