package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mmynk/profilekeeper/internal/api"
	"github.com/mmynk/profilekeeper/internal/metrics"
	"github.com/mmynk/profilekeeper/internal/middleware"
	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/profile"
	"github.com/mmynk/profilekeeper/internal/storage/storagetest"
)

// MockAccountStore is a mock implementation of storage.AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetOrCreate(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

func (m *MockAccountStore) GetComplete(ctx context.Context, p models.Principal) (*models.UserAccount, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

func (m *MockAccountStore) GetPersonal(ctx context.Context, p models.Principal) (models.PersonalInfo, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(models.PersonalInfo), args.Error(1)
}

func (m *MockAccountStore) GetSocial(ctx context.Context, p models.Principal) (models.SocialLinks, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(models.SocialLinks), args.Error(1)
}

func (m *MockAccountStore) GetJob(ctx context.Context, p models.Principal) (models.JobPreferences, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(models.JobPreferences), args.Error(1)
}

func (m *MockAccountStore) UpdatePersonal(ctx context.Context, p models.Principal, info models.PersonalInfo) error {
	return m.Called(ctx, p, info).Error(0)
}

func (m *MockAccountStore) UpdateSocial(ctx context.Context, p models.Principal, links models.SocialLinks) error {
	return m.Called(ctx, p, links).Error(0)
}

func (m *MockAccountStore) UpdateJob(ctx context.Context, p models.Principal, prefs models.JobPreferences) error {
	return m.Called(ctx, p, prefs).Error(0)
}

func (m *MockAccountStore) Close() error {
	return m.Called().Error(0)
}

func newMockedService(store *MockAccountStore, opts AccountOptions) *AccountService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assembler := profile.NewAssembler(store, profile.NewValidator(profile.DefaultRules()))
	return NewAccountService(store, assembler, metrics.New(), logger, opts)
}

func TestAccountService_StoreFailureIsInternal(t *testing.T) {
	store := new(MockAccountStore)
	svc := newMockedService(store, AccountOptions{})
	p := storagetest.NewPrincipal(1)
	ctx := middleware.WithPrincipal(context.Background(), p)

	store.On("GetOrCreate", mock.Anything, p).Return(nil, errors.New("disk on fire"))

	_, err := svc.GetOrCreateAccount(ctx, connect.NewRequest(&api.GetOrCreateAccountRequest{}))
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
	store.AssertExpectations(t)
}

func TestAccountService_UpdateWriteFailureIsNotDropped(t *testing.T) {
	store := new(MockAccountStore)
	svc := newMockedService(store, AccountOptions{})
	p := storagetest.NewPrincipal(1)
	ctx := middleware.WithPrincipal(context.Background(), p)

	store.On("GetJob", mock.Anything, p).Return(models.JobPreferences{}, nil)
	store.On("UpdateJob", mock.Anything, p, models.JobPreferences{PreferredTimezone: models.Some("UTC")}).
		Return(errors.New("connection reset"))

	_, err := svc.UpdateJobPreferences(ctx, connect.NewRequest(&api.UpdateJobPreferencesRequest{
		Job: profile.JobPatch{PreferredTimezone: profile.Set("UTC")},
	}))
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
	store.AssertExpectations(t)
}

func TestAccountService_ValidationSkipsWrite(t *testing.T) {
	store := new(MockAccountStore)
	svc := newMockedService(store, AccountOptions{})
	p := storagetest.NewPrincipal(1)
	ctx := middleware.WithPrincipal(context.Background(), p)

	store.On("GetPersonal", mock.Anything, p).Return(models.PersonalInfo{}, nil)

	_, err := svc.UpdatePersonalInfo(ctx, connect.NewRequest(&api.UpdatePersonalInfoRequest{
		Personal: profile.PersonalPatch{Email: profile.Set("nope")},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	store.AssertNotCalled(t, "UpdatePersonal", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountService_MissingPrincipal(t *testing.T) {
	store := new(MockAccountStore)
	svc := newMockedService(store, AccountOptions{})

	_, err := svc.GetPersonalInfo(context.Background(), connect.NewRequest(&api.GetPersonalInfoRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	ctx := middleware.WithPrincipal(context.Background(), models.AnonymousPrincipal)
	_, err = svc.GetPersonalInfo(ctx, connect.NewRequest(&api.GetPersonalInfoRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	store.AssertNotCalled(t, "GetPersonal", mock.Anything, mock.Anything)
}
