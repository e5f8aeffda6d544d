// Package services contains server-side business logic. This file implements
// UserService: self-registration, login, identity lookup and admin-provisioned
// accounts.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/cryptox"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/repomanager"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (in *RegisterInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.RuneLength(6, 0), validation.Length(0, auth.MaxPasswordBytes)),
		validation.Field(&in.Name, validation.RuneLength(2, 0)),
	)
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *LoginInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.RuneLength(6, 0), validation.Length(0, auth.MaxPasswordBytes)),
	)
}

type CreateUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (in *CreateUserInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.RuneLength(6, 0), validation.Length(0, auth.MaxPasswordBytes)),
		validation.Field(&in.Name, validation.RuneLength(2, 0)),
		validation.Field(&in.Role, validation.In(common.RoleAdmin, common.RoleUser)),
	)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UserService implements the identity flows on top of the users repository,
// the password hasher and the token service.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	tokens      *auth.TokenService
	signer      cryptox.PasswordSigner
	logger      logging.Logger
}

// NewUserService wires a UserService. db may be nil when the repository
// manager is memory-backed.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.Hasher,
	tokens *auth.TokenService, signer cryptox.PasswordSigner, logger logging.Logger) *UserService {
	if signer == nil {
		signer = cryptox.NopSigner{}
	}
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		signer:      signer,
		logger:      logger.With("module", "services.user"),
	}
}

// Register creates a user with role "user" and returns a token for it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	user, err := s.createUser(ctx, in.Email, in.Password, in.Name, common.RoleUser)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return &AuthResult{Token: token, User: user}, nil
}

// Login checks credentials. An unknown email and a wrong password both
// yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(in.Password)
			s.logger.Info(ctx, "login failed")
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.logger.Info(ctx, "login failed")
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Me resolves the authenticated identity through the store.
func (s *UserService) Me(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	if claims == nil {
		return nil, common.ErrorUnauthorized
	}
	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// CreateUser provisions an account on behalf of an admin. The caller's role
// is enforced by the HTTP layer; no token is issued.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if in.Role == "" {
		in.Role = common.RoleUser
	}

	user, err := s.createUser(ctx, in.Email, in.Password, in.Name, in.Role)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user provisioned", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *UserService) createUser(ctx context.Context, email, password, name, role string) (*models.User, error) {
	if name == "" {
		name = localPart(email)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		PasswordSig:  s.sign(password),
		Role:         role,
	}

	created, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *UserService) sign(password string) *string {
	sig := s.signer.Sign(password)
	if sig == "" {
		return nil
	}
	return &sig
}

func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
