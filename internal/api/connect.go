// Package api defines the RPC surface: message types, the JSON codec and the
// Connect handler and client constructors for AccountService and AuthService.
package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/profilekeeper/internal/profile"
)

const (
	AccountServiceName = "profilekeeper.v1.AccountService"
	AuthServiceName    = "profilekeeper.v1.AuthService"
)

const (
	AccountServiceGetOrCreateAccountProcedure   = "/profilekeeper.v1.AccountService/GetOrCreateAccount"
	AccountServiceGetCompleteAccountProcedure   = "/profilekeeper.v1.AccountService/GetCompleteAccount"
	AccountServiceGetPersonalInfoProcedure      = "/profilekeeper.v1.AccountService/GetPersonalInfo"
	AccountServiceUpdatePersonalInfoProcedure   = "/profilekeeper.v1.AccountService/UpdatePersonalInfo"
	AccountServiceGetSocialLinksProcedure       = "/profilekeeper.v1.AccountService/GetSocialLinks"
	AccountServiceUpdateSocialLinksProcedure    = "/profilekeeper.v1.AccountService/UpdateSocialLinks"
	AccountServiceGetJobPreferencesProcedure    = "/profilekeeper.v1.AccountService/GetJobPreferences"
	AccountServiceUpdateJobPreferencesProcedure = "/profilekeeper.v1.AccountService/UpdateJobPreferences"

	AuthServiceChallengeProcedure = "/profilekeeper.v1.AuthService/Challenge"
	AuthServiceLoginProcedure     = "/profilekeeper.v1.AuthService/Login"
)

// requestHeadroom covers the JSON envelope and the text fields of a request.
const requestHeadroom = 64 * 1024

// DefaultMaxRequestBytes is the read limit applied when the caller passes no
// connect.WithReadMaxBytes of its own.
var DefaultMaxRequestBytes = MaxRequestBytes(profile.DefaultRules())

// MaxRequestBytes returns the largest request body worth reading under rules:
// a personal update carrying both files at their size limit, base64-encoded,
// plus headroom. It returns 0, meaning unlimited, when either file size is
// unbounded.
func MaxRequestBytes(rules profile.Rules) int {
	if rules.MaxProfilePicBytes <= 0 || rules.MaxResumeBytes <= 0 {
		return 0
	}
	files := base64.StdEncoding.EncodedLen(rules.MaxProfilePicBytes) + base64.StdEncoding.EncodedLen(rules.MaxResumeBytes)
	return files + requestHeadroom
}

// AccountServiceHandler is implemented by the account service.
type AccountServiceHandler interface {
	GetOrCreateAccount(context.Context, *connect.Request[GetOrCreateAccountRequest]) (*connect.Response[GetOrCreateAccountResponse], error)
	GetCompleteAccount(context.Context, *connect.Request[GetCompleteAccountRequest]) (*connect.Response[GetCompleteAccountResponse], error)
	GetPersonalInfo(context.Context, *connect.Request[GetPersonalInfoRequest]) (*connect.Response[GetPersonalInfoResponse], error)
	UpdatePersonalInfo(context.Context, *connect.Request[UpdatePersonalInfoRequest]) (*connect.Response[UpdatePersonalInfoResponse], error)
	GetSocialLinks(context.Context, *connect.Request[GetSocialLinksRequest]) (*connect.Response[GetSocialLinksResponse], error)
	UpdateSocialLinks(context.Context, *connect.Request[UpdateSocialLinksRequest]) (*connect.Response[UpdateSocialLinksResponse], error)
	GetJobPreferences(context.Context, *connect.Request[GetJobPreferencesRequest]) (*connect.Response[GetJobPreferencesResponse], error)
	UpdateJobPreferences(context.Context, *connect.Request[UpdateJobPreferencesRequest]) (*connect.Response[UpdateJobPreferencesResponse], error)
}

// AuthServiceHandler is implemented by the login service.
type AuthServiceHandler interface {
	Challenge(context.Context, *connect.Request[ChallengeRequest]) (*connect.Response[ChallengeResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
}

// NewAccountServiceHandler returns the mount path and handler for svc.
func NewAccountServiceHandler(svc AccountServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	read := append([]connect.HandlerOption{connect.WithIdempotency(connect.IdempotencyNoSideEffects)}, opts...)

	return route(AccountServiceName, map[string]http.Handler{
		AccountServiceGetOrCreateAccountProcedure:   connect.NewUnaryHandler(AccountServiceGetOrCreateAccountProcedure, svc.GetOrCreateAccount, opts...),
		AccountServiceGetCompleteAccountProcedure:   connect.NewUnaryHandler(AccountServiceGetCompleteAccountProcedure, svc.GetCompleteAccount, read...),
		AccountServiceGetPersonalInfoProcedure:      connect.NewUnaryHandler(AccountServiceGetPersonalInfoProcedure, svc.GetPersonalInfo, read...),
		AccountServiceUpdatePersonalInfoProcedure:   connect.NewUnaryHandler(AccountServiceUpdatePersonalInfoProcedure, svc.UpdatePersonalInfo, opts...),
		AccountServiceGetSocialLinksProcedure:       connect.NewUnaryHandler(AccountServiceGetSocialLinksProcedure, svc.GetSocialLinks, read...),
		AccountServiceUpdateSocialLinksProcedure:    connect.NewUnaryHandler(AccountServiceUpdateSocialLinksProcedure, svc.UpdateSocialLinks, opts...),
		AccountServiceGetJobPreferencesProcedure:    connect.NewUnaryHandler(AccountServiceGetJobPreferencesProcedure, svc.GetJobPreferences, read...),
		AccountServiceUpdateJobPreferencesProcedure: connect.NewUnaryHandler(AccountServiceUpdateJobPreferencesProcedure, svc.UpdateJobPreferences, opts...),
	})
}

// NewAuthServiceHandler returns the mount path and handler for svc.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return route(AuthServiceName, map[string]http.Handler{
		AuthServiceChallengeProcedure: connect.NewUnaryHandler(AuthServiceChallengeProcedure, svc.Challenge, opts...),
		AuthServiceLoginProcedure:     connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...),
	})
}

// handlerOptions puts the defaults first so caller options override them.
func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{
		connect.WithCodec(Codec{}),
		connect.WithReadMaxBytes(DefaultMaxRequestBytes),
	}, opts...)
}

func route(service string, handlers map[string]http.Handler) (string, http.Handler) {
	prefix := "/" + service + "/"
	return prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok && strings.HasPrefix(r.URL.Path, prefix) {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// AccountServiceClient calls AccountService over Connect.
type AccountServiceClient struct {
	getOrCreateAccount   *connect.Client[GetOrCreateAccountRequest, GetOrCreateAccountResponse]
	getCompleteAccount   *connect.Client[GetCompleteAccountRequest, GetCompleteAccountResponse]
	getPersonalInfo      *connect.Client[GetPersonalInfoRequest, GetPersonalInfoResponse]
	updatePersonalInfo   *connect.Client[UpdatePersonalInfoRequest, UpdatePersonalInfoResponse]
	getSocialLinks       *connect.Client[GetSocialLinksRequest, GetSocialLinksResponse]
	updateSocialLinks    *connect.Client[UpdateSocialLinksRequest, UpdateSocialLinksResponse]
	getJobPreferences    *connect.Client[GetJobPreferencesRequest, GetJobPreferencesResponse]
	updateJobPreferences *connect.Client[UpdateJobPreferencesRequest, UpdateJobPreferencesResponse]
}

// NewAccountServiceClient builds a client for the service at baseURL.
func NewAccountServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AccountServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &AccountServiceClient{
		getOrCreateAccount:   connect.NewClient[GetOrCreateAccountRequest, GetOrCreateAccountResponse](httpClient, baseURL+AccountServiceGetOrCreateAccountProcedure, opts...),
		getCompleteAccount:   connect.NewClient[GetCompleteAccountRequest, GetCompleteAccountResponse](httpClient, baseURL+AccountServiceGetCompleteAccountProcedure, opts...),
		getPersonalInfo:      connect.NewClient[GetPersonalInfoRequest, GetPersonalInfoResponse](httpClient, baseURL+AccountServiceGetPersonalInfoProcedure, opts...),
		updatePersonalInfo:   connect.NewClient[UpdatePersonalInfoRequest, UpdatePersonalInfoResponse](httpClient, baseURL+AccountServiceUpdatePersonalInfoProcedure, opts...),
		getSocialLinks:       connect.NewClient[GetSocialLinksRequest, GetSocialLinksResponse](httpClient, baseURL+AccountServiceGetSocialLinksProcedure, opts...),
		updateSocialLinks:    connect.NewClient[UpdateSocialLinksRequest, UpdateSocialLinksResponse](httpClient, baseURL+AccountServiceUpdateSocialLinksProcedure, opts...),
		getJobPreferences:    connect.NewClient[GetJobPreferencesRequest, GetJobPreferencesResponse](httpClient, baseURL+AccountServiceGetJobPreferencesProcedure, opts...),
		updateJobPreferences: connect.NewClient[UpdateJobPreferencesRequest, UpdateJobPreferencesResponse](httpClient, baseURL+AccountServiceUpdateJobPreferencesProcedure, opts...),
	}
}

func (c *AccountServiceClient) GetOrCreateAccount(ctx context.Context, req *connect.Request[GetOrCreateAccountRequest]) (*connect.Response[GetOrCreateAccountResponse], error) {
	return c.getOrCreateAccount.CallUnary(ctx, req)
}

func (c *AccountServiceClient) GetCompleteAccount(ctx context.Context, req *connect.Request[GetCompleteAccountRequest]) (*connect.Response[GetCompleteAccountResponse], error) {
	return c.getCompleteAccount.CallUnary(ctx, req)
}

func (c *AccountServiceClient) GetPersonalInfo(ctx context.Context, req *connect.Request[GetPersonalInfoRequest]) (*connect.Response[GetPersonalInfoResponse], error) {
	return c.getPersonalInfo.CallUnary(ctx, req)
}

func (c *AccountServiceClient) UpdatePersonalInfo(ctx context.Context, req *connect.Request[UpdatePersonalInfoRequest]) (*connect.Response[UpdatePersonalInfoResponse], error) {
	return c.updatePersonalInfo.CallUnary(ctx, req)
}

func (c *AccountServiceClient) GetSocialLinks(ctx context.Context, req *connect.Request[GetSocialLinksRequest]) (*connect.Response[GetSocialLinksResponse], error) {
	return c.getSocialLinks.CallUnary(ctx, req)
}

func (c *AccountServiceClient) UpdateSocialLinks(ctx context.Context, req *connect.Request[UpdateSocialLinksRequest]) (*connect.Response[UpdateSocialLinksResponse], error) {
	return c.updateSocialLinks.CallUnary(ctx, req)
}

func (c *AccountServiceClient) GetJobPreferences(ctx context.Context, req *connect.Request[GetJobPreferencesRequest]) (*connect.Response[GetJobPreferencesResponse], error) {
	return c.getJobPreferences.CallUnary(ctx, req)
}

func (c *AccountServiceClient) UpdateJobPreferences(ctx context.Context, req *connect.Request[UpdateJobPreferencesRequest]) (*connect.Response[UpdateJobPreferencesResponse], error) {
	return c.updateJobPreferences.CallUnary(ctx, req)
}

// AuthServiceClient calls AuthService over Connect.
type AuthServiceClient struct {
	challenge *connect.Client[ChallengeRequest, ChallengeResponse]
	login     *connect.Client[LoginRequest, LoginResponse]
}

// NewAuthServiceClient builds a client for the login service at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &AuthServiceClient{
		challenge: connect.NewClient[ChallengeRequest, ChallengeResponse](httpClient, baseURL+AuthServiceChallengeProcedure, opts...),
		login:     connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
	}
}

func (c *AuthServiceClient) Challenge(ctx context.Context, req *connect.Request[ChallengeRequest]) (*connect.Response[ChallengeResponse], error) {
	return c.challenge.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}
