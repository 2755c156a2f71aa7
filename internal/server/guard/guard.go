// Package guard decides whether a request may run an operation: it
// verifies the bearer token, reloads the user and checks the role.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filmkeeper/internal/common"
	"github.com/dmitrijs2005/filmkeeper/internal/logging"
	"github.com/dmitrijs2005/filmkeeper/internal/server/auth"
	"github.com/dmitrijs2005/filmkeeper/internal/server/models"
)

// TokenVerifier is satisfied by *auth.TokenCodec.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserLookup loads the current user record. It must return an error
// matching common.ErrorNotFound for unknown ids.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Guard struct {
	tokens TokenVerifier
	users  UserLookup
	policy *Policy
	log    logging.Logger
}

func New(tokens TokenVerifier, users UserLookup, policy *Policy, log logging.Logger) *Guard {
	if policy == nil {
		policy = NewPolicy()
	}
	return &Guard{
		tokens: tokens,
		users:  users,
		policy: policy,
		log:    log.With("module", "guard"),
	}
}

func (g *Guard) Policy() *Policy {
	return g.policy
}

// Check resolves the requirement of operation from the policy and
// authorizes the caller against it.
func (g *Guard) Check(ctx context.Context, operation, authorization string) (Principal, error) {
	req := g.policy.Resolve(operation)
	p, err := g.authorize(ctx, authorization, req)
	if err != nil {
		g.log.Warn(ctx, "access denied", "operation", operation, "requirement", req.String(), "reason", err.Error())
		return Principal{}, err
	}
	return p, nil
}

// Authorize checks the authorization value against req. The returned
// error matches one of common.ErrMissingCredentials,
// common.ErrInvalidCredentials, common.ErrInsufficientRole or
// common.ErrDependencyUnavailable.
func (g *Guard) Authorize(ctx context.Context, authorization string, req Requirement) (Principal, error) {
	p, err := g.authorize(ctx, authorization, req)
	if err != nil {
		g.log.Warn(ctx, "access denied", "requirement", req.String(), "reason", err.Error())
	}
	return p, err
}

func (g *Guard) authorize(ctx context.Context, authorization string, req Requirement) (Principal, error) {
	if req.IsPublic() {
		return Principal{}, nil
	}

	token, ok := auth.BearerToken(authorization)
	if !ok {
		return Principal{}, common.ErrMissingCredentials
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", common.ErrInvalidCredentials, err)
	}

	user, err := g.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return Principal{}, fmt.Errorf("%w: subject no longer exists", common.ErrInvalidCredentials)
		}
		return Principal{}, fmt.Errorf("%w: user lookup: %v", common.ErrDependencyUnavailable, err)
	}

	if req.kind == kindRoles && !Permits(user.Role, req.roles) {
		return Principal{}, fmt.Errorf("%w: have %s, need %s", common.ErrInsufficientRole, user.Role, req)
	}

	return Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}
