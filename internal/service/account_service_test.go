package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/profilekeeper/internal/api"
	"github.com/mmynk/profilekeeper/internal/auth"
	"github.com/mmynk/profilekeeper/internal/metrics"
	"github.com/mmynk/profilekeeper/internal/middleware"
	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/profile"
	"github.com/mmynk/profilekeeper/internal/storage/sqlite"
)

type testEnv struct {
	accounts *api.AccountServiceClient
	auth     *api.AuthServiceClient
	metrics  *metrics.Metrics
}

// setupTestServer serves both services over a temp SQLite database.
func setupTestServer(t *testing.T, opts AccountOptions) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	challenges := auth.NewChallengeStore(time.Minute)

	accountSvc := NewAccountService(store, profile.NewAssembler(store, profile.NewValidator(profile.DefaultRules())), m, logger, opts)
	authSvc := NewAuthService(challenges, auth.NewKeyAuthenticator(challenges), jwtManager, logger)

	interceptors := connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(logger))
	accountPath, accountHandler := api.NewAccountServiceHandler(accountSvc, interceptors)
	authPath, authHandler := api.NewAuthServiceHandler(authSvc, connect.WithInterceptors(middleware.LoggingInterceptor(logger)))

	mux := http.NewServeMux()
	mux.Handle(accountPath, accountHandler)
	mux.Handle(authPath, authHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		accounts: api.NewAccountServiceClient(http.DefaultClient, server.URL),
		auth:     api.NewAuthServiceClient(http.DefaultClient, server.URL),
		metrics:  m,
	}
}

// login runs the challenge flow with a fresh key and returns the bearer token
// and the principal it speaks for.
func (e *testEnv) login(t *testing.T) (string, models.Principal) {
	t.Helper()
	ctx := context.Background()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	challenge, err := e.auth.Challenge(ctx, connect.NewRequest(&api.ChallengeRequest{}))
	require.NoError(t, err)

	nonce := challenge.Msg.Nonce
	resp, err := e.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
		PublicKey: der,
		Nonce:     nonce,
		Signature: ed25519.Sign(priv, []byte(nonce)),
	}))
	require.NoError(t, err)

	p, err := models.ParsePrincipal(resp.Msg.Principal)
	require.NoError(t, err)
	require.Equal(t, models.PrincipalFromPublicKey(der), p)
	return resp.Msg.Token, p
}

func authed[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func requireCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, connect.CodeOf(err), "unexpected error: %v", err)
}

func TestGetOrCreateAccount(t *testing.T) {
	env := setupTestServer(t, AccountOptions{})
	ctx := context.Background()
	token, p := env.login(t)

	first, err := env.accounts.GetOrCreateAccount(ctx, authed(&api.GetOrCreateAccountRequest{}, token))
	require.NoError(t, err)

	acc := first.Msg.Account
	require.NotNil(t, acc)
	assert.Equal(t, p.String(), acc.Principal)
	assert.Equal(t, uint64(models.InitialLevel), acc.Stats.Level)
	assert.Equal(t, uint64(models.InitialExperiencePoints), acc.Stats.ExperiencePoints)
	assert.NotNil(t, acc.Stats.Medals)
	assert.Empty(t, acc.Stats.Medals)
	assert.Equal(t, models.PersonalInfo{}, acc.Profile.Personal)
	assert.Equal(t, api.SocialLinks{}, acc.Profile.Social)
	assert.Equal(t, models.JobPreferences{}, acc.Profile.Job)

	second, err := env.accounts.GetOrCreateAccount(ctx, authed(&api.GetOrCreateAccountRequest{}, token))
	require.NoError(t, err)
	assert.True(t, acc.CreatedAt.Equal(second.Msg.Account.CreatedAt), "second call must not recreate the account")

	complete, err := env.accounts.GetCompleteAccount(ctx, authed(&api.GetCompleteAccountRequest{}, token))
	require.NoError(t, err)
	assert.Equal(t, acc.Principal, complete.Msg.Account.Principal)
}

func TestGetCompleteAccount_NotFound(t *testing.T) {
	env := setupTestServer(t, AccountOptions{})
	token, _ := env.login(t)

	_, err := env.accounts.GetCompleteAccount(context.Background(), authed(&api.GetCompleteAccountRequest{}, token))
	requireCode(t, err, connect.CodeNotFound)

	_, err = env.accounts.GetJobPreferences(context.Background(), authed(&api.GetJobPreferencesRequest{}, token))
	requireCode(t, err, connect.CodeNotFound)
}

func TestUpdatePersonalInfo_KeepsUnmentionedFields(t *testing.T) {
	env := setupTestServer(t, AccountOptions{})
	ctx := context.Background()
	token, _ := env.login(t)

	_, err := env.accounts.GetOrCreateAccount(ctx, authed(&api.GetOrCreateAccountRequest{}, token))
	require.NoError(t, err)

	_, err = env.accounts.UpdatePersonalInfo(ctx, authed(&api.UpdatePersonalInfoRequest{
		Personal: profile.PersonalPatch{
			FullName: profile.Set("Ada Lovelace"),
			Email:    profile.Set("ada@example.com"),
		},
	}, token))
	require.NoError(t, err)

	resp, err := env.accounts.UpdatePersonalInfo(ctx, authed(&api.UpdatePersonalInfoRequest{
		Personal: profile.PersonalPatch{Bio: profile.Set("First programmer")},
	}, token))
	require.NoError(t, err)
	require.NotNil(t, resp.Msg.Personal)

	got, err := env.accounts.GetPersonalInfo(ctx, authed(&api.GetPersonalInfoRequest{}, token))
	require.NoError(t, err)
	assert.Equal(t, resp.Msg.Personal, got.Msg.Personal)
	assert.Equal(t, models.Some("Ada Lovelace"), got.Msg.Personal.FullName)
	assert.Equal(t, models.Some("ada@example.com"), got.Msg.Personal.Email)
	assert.Equal(t, models.Some("First programmer"), got.Msg.Personal.Bio)

	// null clears a field
	_, err = env.accounts.UpdatePersonalInfo(ctx, authed(&api.UpdatePersonalInfoRequest{
		Personal: profile.PersonalPatch{Bio: profile.Clear[string]()},
	}, token))
	require.NoError(t, err)

	got, err = env.accounts.GetPersonalInfo(ctx, authed(&api.GetPersonalInfoRequest{}, token))
	require.NoError(t, err)
	assert.False(t, got.Msg.Personal.Bio.IsSet())
	assert.Equal(t, models.Some("Ada Lovelace"), got.Msg.Personal.FullName)
}

func TestUpdateSocialLinks_AdditionalReplaced(t *testing.T) {
	env := setupTestServer(t, AccountOptions{})
	ctx := context.Background()
	token, _ := env.login(t)

	_, err := env.accounts.GetOrCreateAccount(ctx, authed(&api.GetOrCreateAccountRequest{}, token))
	require.NoError(t, err)

	_, err = env.accounts.UpdateSocialLinks(ctx, authed(&api.UpdateSocialLinksRequest{
		Social: api.SocialLinksPatch{
			GitHub: profile.Set("https://github.com/ada"),
			Additional: profile.Set([]api.AdditionalLink{
				{URL: "https://ada.dev"},
				{URL: "https://blog.ada.dev"},
			}),
		},
	}, token))
	require.NoError(t, err)

	resp, err := env.accounts.UpdateSocialLinks(ctx, authed(&api.UpdateSocialLinksRequest{
		Social: api.SocialLinksPatch{
			Additional: profile.Set([]api.AdditionalLink{{ID: "client-chosen", URL: "https://ada.example"}}),
		},
	}, token))
	require.NoError(t, err)

	links, ok := resp.Msg.Social.Additional.Get()
	require.True(t, ok)
	require.Len(t, links, 1)
	assert.Equal(t, "https://ada.example", links[0].URL)
	assert.NotEmpty(t, links[0].ID)
	assert.NotEqual(t, "client-chosen", links[0].ID)

	acc, err := env.accounts.GetCompleteAccount(ctx, authed(&api.GetCompleteAccountRequest{}, token))
	require.NoError(t, err)
	assert.Equal(t, models.Some("https://github.com/ada"), acc.Msg.Account.Profile.Social.GitHub)
	stored, _ := acc.Msg.Account.Profile.Social.Additional.Get()
	require.Len(t, stored, 1)
	assert.Equal(t, "https://ada.example", stored[0].URL)
	assert.Equal(t, models.PersonalInfo{}, acc.Msg.Account.Profile.Personal)
	assert.Equal(t, models.JobPreferences{}, acc.Msg.Account.Profile.Job)
}

func TestUpdateJobPreferences_InvalidSalaryRejected(t *testing.T) {
	env := setupTestServer(t, AccountOptions{})
	ctx := context.Background()
	token, _ := env.login(t)

	_, err := env.accounts.GetOrCreateAccount(ctx, authed(&api.GetOrCreateAccountRequest{}, token))
	require.NoError(t, err)

	valid := profile.JobPatch{
		Locations:         profile.Set([]models.WorkMode{models.WorkModeRemote}),
		SalaryRange:       profile.Set(models.SalaryRange{Min: 50000, Max: 120000}),
		PreferredTimezone: profile.Set("Europe/Berlin"),
	}
	before, err := env.accounts.UpdateJobPreferences(ctx, authed(&api.UpdateJobPreferencesRequest{Job: valid}, token))
	require.NoError(t, err)

	_, err = env.accounts.UpdateJobPreferences(ctx, authed(&api.UpdateJobPreferencesRequest{
		Job: profile.JobPatch{SalaryRange: profile.Set(models.SalaryRange{Min: 120000, Max: 50000})},
	}, token))
	requireCode(t, err, connect.CodeInvalidArgument)
	assert.Contains(t, err.Error(), "salaryRange")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ValidationFailures.WithLabelValues("job")))

	after, err := env.accounts.GetJobPreferences(ctx, authed(&api.GetJobPreferencesRequest{}, token))
	require.NoError(t, err)
	assert.Equal(t, before.Msg.Job, after.Msg.Job)
}

func TestUpdateBeforeCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("dropped by default", func(t *testing.T) {
		env := setupTestServer(t, AccountOptions{})
		token, _ := env.login(t)

		resp, err := env.accounts.UpdatePersonalInfo(ctx, authed(&api.UpdatePersonalInfoRequest{
			Personal: profile.PersonalPatch{FullName: profile.Set("Ada")},
		}, token))
		require.NoError(t, err)
		assert.Nil(t, resp.Msg.Personal)

		social, err := env.accounts.UpdateSocialLinks(ctx, authed(&api.UpdateSocialLinksRequest{}, token))
		require.NoError(t, err)
		assert.Nil(t, social.Msg.Social)

		_, err = env.accounts.GetCompleteAccount(ctx, authed(&api.GetCompleteAccountRequest{}, token))
		requireCode(t, err, connect.CodeNotFound)
	})

	t.Run("strict mode reports not found", func(t *testing.T) {
		env := setupTestServer(t, AccountOptions{StrictUpdates: true})
		token, _ := env.login(t)

		_, err := env.accounts.UpdateJobPreferences(ctx, authed(&api.UpdateJobPreferencesRequest{
			Job: profile.JobPatch{PreferredTimezone: profile.Set("UTC")},
		}, token))
		requireCode(t, err, connect.CodeNotFound)

		_, err = env.accounts.GetCompleteAccount(ctx, authed(&api.GetCompleteAccountRequest{}, token))
		requireCode(t, err, connect.CodeNotFound)
	})
}

func TestAccountsAreIsolatedByPrincipal(t *testing.T) {
	env := setupTestServer(t, AccountOptions{})
	ctx := context.Background()
	alice, _ := env.login(t)
	bob, _ := env.login(t)

	for _, token := range []string{alice, bob} {
		_, err := env.accounts.GetOrCreateAccount(ctx, authed(&api.GetOrCreateAccountRequest{}, token))
		require.NoError(t, err)
	}

	_, err := env.accounts.UpdatePersonalInfo(ctx, authed(&api.UpdatePersonalInfoRequest{
		Personal: profile.PersonalPatch{FullName: profile.Set("Alice")},
	}, alice))
	require.NoError(t, err)

	got, err := env.accounts.GetPersonalInfo(ctx, authed(&api.GetPersonalInfoRequest{}, bob))
	require.NoError(t, err)
	assert.Equal(t, models.PersonalInfo{}, *got.Msg.Personal)
}

func TestAccountService_RequiresAuth(t *testing.T) {
	env := setupTestServer(t, AccountOptions{})
	ctx := context.Background()

	_, err := env.accounts.GetOrCreateAccount(ctx, connect.NewRequest(&api.GetOrCreateAccountRequest{}))
	requireCode(t, err, connect.CodeUnauthenticated)

	_, err = env.accounts.GetOrCreateAccount(ctx, authed(&api.GetOrCreateAccountRequest{}, "forged"))
	requireCode(t, err, connect.CodeUnauthenticated)
}

func TestLogin_Rejects(t *testing.T) {
	env := setupTestServer(t, AccountOptions{})
	ctx := context.Background()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{}))
	requireCode(t, err, connect.CodeInvalidArgument)

	_, err = env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
		PublicKey: der,
		Nonce:     "never-issued",
		Signature: ed25519.Sign(priv, []byte("never-issued")),
	}))
	requireCode(t, err, connect.CodeUnauthenticated)

	_, err = env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
		PublicKey: []byte("junk"),
		Nonce:     "n",
		Signature: []byte("s"),
	}))
	requireCode(t, err, connect.CodeInvalidArgument)
}
