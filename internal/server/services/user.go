// Package services contains server-side business logic. This file implements
// UserService: sign-in, registration and the administrative user operations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/filmkeeper/internal/common"
	"github.com/dmitrijs2005/filmkeeper/internal/dbx"
	"github.com/dmitrijs2005/filmkeeper/internal/logging"
	"github.com/dmitrijs2005/filmkeeper/internal/server/auth"
	"github.com/dmitrijs2005/filmkeeper/internal/server/models"
	"github.com/dmitrijs2005/filmkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200

	dummyPassword = "filmkeeper-timing-equalizer"
)

// PasswordHasher is satisfied by *auth.PasswordHasher.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

// TokenIssuer is satisfied by *auth.TokenCodec.
type TokenIssuer interface {
	Issue(id auth.IdentityClaims) (string, error)
	TTL() time.Duration
}

// AccessToken is the sign-in result.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	tokens      TokenIssuer
	log         logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, tokens TokenIssuer, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		log:         log.With("module", "users"),
	}
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignIn checks the credentials and issues an access token. Unknown email
// and wrong password both yield common.ErrInvalidCredentials after the same
// amount of hashing work.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*AccessToken, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.equalizeTiming(ctx, password)
			return nil, common.ErrInvalidCredentials
		}
		s.log.Error(ctx, "sign-in lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDependencyUnavailable, err)
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidInput):
			return nil, common.ErrInvalidCredentials
		case errors.Is(err, common.ErrMalformedHash):
			s.log.Error(ctx, "stored password hash is malformed", "user_id", user.ID)
			return nil, common.ErrorInternal
		default:
			return nil, err
		}
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.IdentityClaims{Subject: user.ID, Email: user.Email})
	if err != nil {
		s.log.Error(ctx, "token issue failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	s.log.Info(ctx, "user signed in", "user_id", user.ID)

	return &AccessToken{
		AccessToken: token,
		TokenType:   common.BearerScheme,
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// Register creates a regular user. The password is hashed before the
// transaction starts so the connection is not held during hashing.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email, err := validateEmail(req.Email)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, &models.User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		Role:         models.RoleRegular,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// GetUser returns the user with the given id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, id)
	if err != nil {
		return nil, s.storeError(ctx, "get user", err)
	}
	return user, nil
}

// ListUsers returns a page of users ordered by creation time. A
// non-positive limit selects DefaultListLimit; limits above MaxListLimit
// are clamped.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.repomanager.Users(s.db).List(ctx, limit, offset)
	if err != nil {
		return nil, s.storeError(ctx, "list users", err)
	}
	return list, nil
}

// ChangeRole sets the role of a user. It takes effect on the user's next
// request; tokens already issued stay valid.
func (s *UserService) ChangeRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrInvalidInput, role)
	}

	user, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		repo := s.repomanager.Users(tx)
		if err := repo.UpdateRole(ctx, id, role); err != nil {
			return nil, err
		}
		return repo.GetUserByID(ctx, id)
	})
	if err != nil {
		return nil, s.storeError(ctx, "change role", err)
	}

	s.log.Info(ctx, "user role changed", "user_id", id, "role", role)
	return user, nil
}

// createUser assigns id and creation time and inserts the user unless the
// email is taken.
func (s *UserService) createUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	created, err := dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetUserByEmail(ctx, user.Email)
		if err == nil {
			return nil, common.ErrorAlreadyExists
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}

		return repo.Create(ctx, user)
	})
	if err != nil {
		return nil, s.storeError(ctx, "create user", err)
	}

	return created, nil
}

// storeError passes domain errors through and maps everything else to
// common.ErrDependencyUnavailable.
func (s *UserService) storeError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrorAlreadyExists):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	s.log.Error(ctx, op+" failed", "error", err)
	return fmt.Errorf("%w: %v", common.ErrDependencyUnavailable, err)
}

// equalizeTiming runs one verification against a throwaway hash so that an
// unknown email costs as much as a wrong password.
func (s *UserService) equalizeTiming(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(context.Background(), dummyPassword)
		if err != nil {
			s.log.Error(ctx, "dummy hash failed", "error", err)
			return
		}
		s.dummyHash = h
	})
	if s.dummyHash == "" {
		return
	}
	_, _ = s.hasher.Verify(ctx, password, s.dummyHash)
}

// upgradeHash re-hashes a password stored with an outdated algorithm or
// work factor. Failures are logged and otherwise ignored.
func (s *UserService) upgradeHash(ctx context.Context, userID, password string) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		s.log.Warn(ctx, "password rehash failed", "user_id", userID, "error", err)
		return
	}
	if err := s.repomanager.Users(s.db).UpdatePasswordHash(ctx, userID, hash); err != nil {
		s.log.Warn(ctx, "password rehash not stored", "user_id", userID, "error", err)
		return
	}
	s.log.Info(ctx, "password hash upgraded", "user_id", userID)
}

func validateEmail(raw string) (string, error) {
	email := NormalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", common.ErrInvalidInput)
	}
	return email, nil
}
