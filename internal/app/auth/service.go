/*
Package auth implements account registration, sign-in and access token verification.

It is the identity collaborator of the chat gateway: websocket connections present an access
token issued by SignIn, and the gateway resolves it to a user name through Verify.
*/
package auth

import (
	"context"
	"errors"
	"regexp"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"roomchat/internal/app/chat"
	"roomchat/internal/app/user"
	"roomchat/internal/pkg/auth/jwt"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

const (
	minPasswordLen = 6
	maxPasswordLen = 50
)

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, userName, passwordHash string) (user.Account, error)
	FindByUserName(ctx context.Context, userName string) (user.Account, error)
}

// SignInResult is returned to a client after a successful sign-in.
type SignInResult struct {
	UserName    string `json:"userName"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// Service issues and verifies identities.
type Service struct {
	users    UserRepository
	secret   string
	tokenTTL time.Duration
	hashCost int
}

// NewService creates a Service signing tokens with secret.
func NewService(users UserRepository, secret string) *Service {
	return &Service{
		users:    users,
		secret:   secret,
		tokenTTL: jwt.AccessExpiration,
		hashCost: bcrypt.DefaultCost,
	}
}

var _ chat.Authenticator = (*Service)(nil)

// SignUp registers a new account.
func (s *Service) SignUp(ctx context.Context, userName, password string) (user.Account, error) {
	if !usernameRegex.MatchString(userName) {
		return user.Account{}, errs.NewError(errs.ErrInvalidUsername)
	}

	passwordLen := utf8.RuneCountInString(password)
	if passwordLen < minPasswordLen || passwordLen > maxPasswordLen {
		return user.Account{}, errs.NewError(errs.ErrInvalidPassword)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return user.Account{}, errs.NewError(errs.ErrUnknown, err)
	}

	account, err := s.users.Create(ctx, userName, string(hashedPassword))
	if err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			logx.Warn("registration conflict: username already exists", "user_name", userName)
			return user.Account{}, errs.NewError(errs.ErrUserAlreadyExists)
		}
		return user.Account{}, errs.NewError(errs.ErrStorageFailed, err)
	}

	logx.Info("Account created.", "user_name", account.UserName)
	return account, nil
}

// SignIn checks the credentials and issues an access token.
func (s *Service) SignIn(ctx context.Context, userName, password string) (SignInResult, error) {
	account, err := s.users.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logx.Warn("login: unknown user", "user_name", userName)
			return SignInResult{}, errs.NewError(errs.ErrInvalidCredentials)
		}
		return SignInResult{}, errs.NewError(errs.ErrStorageFailed, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		logx.Warn("login: password mismatch", "user_name", userName)
		return SignInResult{}, errs.NewError(errs.ErrInvalidCredentials)
	}

	token, expiresAt, err := s.issue(account.UserName)
	if err != nil {
		return SignInResult{}, err
	}

	return SignInResult{
		UserName:    account.UserName,
		AccessToken: token,
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// Verify implements chat.Authenticator. The token must be valid and its user
// must still exist.
func (s *Service) Verify(ctx context.Context, token string) (chat.Identity, error) {
	if token == "" {
		return chat.Identity{}, errs.NewError(errs.ErrUnauthorized)
	}

	payload, err := jwt.ParseToken(token, s.secret)
	if err != nil {
		return chat.Identity{}, errs.NewError(errs.ErrUnauthorized)
	}

	if _, err := s.users.FindByUserName(ctx, payload.UserName); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return chat.Identity{}, errs.NewError(errs.ErrUnauthorized)
		}
		return chat.Identity{}, errs.NewError(errs.ErrStorageFailed, err)
	}

	return chat.Identity{
		UserName:  payload.UserName,
		ExpiresAt: payload.ExpiresAtTime(),
	}, nil
}

// Refresh implements chat.Authenticator.
func (s *Service) Refresh(userName string) (string, time.Time, error) {
	return s.issue(userName)
}

func (s *Service) issue(userName string) (string, time.Time, error) {
	token, expiresAt, err := jwt.GenerateToken(&jwt.Payload{UserName: userName}, s.secret, s.tokenTTL)
	if err != nil {
		return "", time.Time{}, errs.NewError(errs.ErrUnknown, err)
	}
	return token, expiresAt, nil
}
