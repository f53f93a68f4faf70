package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/mmynk/profilekeeper/internal/api"
	"github.com/mmynk/profilekeeper/internal/auth"
)

// AuthService implements the AuthService RPC interface: a key-signature login
// that issues bearer tokens for AccountService.
type AuthService struct {
	challenges    *auth.ChallengeStore
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

var _ api.AuthServiceHandler = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(challenges *auth.ChallengeStore, authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		challenges:    challenges,
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Challenge issues a single-use nonce for the client to sign.
func (s *AuthService) Challenge(ctx context.Context, req *connect.Request[api.ChallengeRequest]) (*connect.Response[api.ChallengeResponse], error) {
	nonce, expires := s.challenges.Issue()
	return connect.NewResponse(&api.ChallengeResponse{Nonce: nonce, ExpiresAt: expires}), nil
}

// Login verifies the signed challenge and returns a JWT for the key's principal.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	if len(req.Msg.PublicKey) == 0 || req.Msg.Nonce == "" || len(req.Msg.Signature) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("publicKey, nonce and signature are required"))
	}

	p, err := s.authenticator.Authenticate(ctx, auth.KeyCredential{
		PublicKey: req.Msg.PublicKey,
		Nonce:     req.Msg.Nonce,
		Signature: req.Msg.Signature,
	})
	if err != nil {
		s.logger.Warn("Login failed", "error", err)
		if errors.Is(err, auth.ErrInvalidKey) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}

	token, expires, err := s.jwtManager.Generate(p)
	if err != nil {
		s.logger.Error("Failed to generate token", "principal", p, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Principal logged in", "principal", p)
	return connect.NewResponse(&api.LoginResponse{
		Token:     token,
		Principal: p.String(),
		ExpiresAt: expires,
	}), nil
}
