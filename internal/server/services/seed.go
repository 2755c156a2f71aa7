package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/filmkeeper/internal/common"
	"github.com/dmitrijs2005/filmkeeper/internal/server/auth"
	"github.com/dmitrijs2005/filmkeeper/internal/server/models"
	"gopkg.in/yaml.v3"
)

// SeedUser is one entry of a seed file. Exactly one of Password and
// PasswordHash must be set; hashes can be produced with cmd/hashpass.
//
//	users:
//	  - email: admin@example.com
//	    password_hash: $argon2id$v=19$m=65536,t=3,p=1$...
//	    role: admin
type SeedUser struct {
	Email        string `yaml:"email"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
	Role         string `yaml:"role"`
}

type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

// LoadSeedFile reads and decodes a YAML seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return &f, nil
}

// SeedUsers creates the listed users, skipping emails that already exist.
// It stops at the first invalid entry or storage failure and returns how
// many users were created so far.
func (s *UserService) SeedUsers(ctx context.Context, seed []SeedUser) (int, error) {
	created := 0
	for i, su := range seed {
		user, err := s.seedUser(ctx, su)
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				s.log.Debug(ctx, "seed user exists, skipped", "index", i)
				continue
			}
			return created, fmt.Errorf("seed user #%d: %w", i, err)
		}
		created++
		s.log.Info(ctx, "seed user created", "user_id", user.ID, "role", user.Role)
	}
	return created, nil
}

func (s *UserService) seedUser(ctx context.Context, su SeedUser) (*models.User, error) {
	email, err := validateEmail(su.Email)
	if err != nil {
		return nil, err
	}

	role := models.RoleRegular
	if strings.TrimSpace(su.Role) != "" {
		if role, err = models.ParseRole(su.Role); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
		}
	}

	var hash string
	switch {
	case su.Password != "" && su.PasswordHash != "":
		return nil, fmt.Errorf("%w: both password and password_hash set", common.ErrInvalidInput)
	case su.PasswordHash != "":
		if !auth.IsSupportedHash(su.PasswordHash) {
			return nil, fmt.Errorf("%w: unsupported password_hash", common.ErrMalformedHash)
		}
		hash = su.PasswordHash
	default:
		if hash, err = s.hasher.Hash(ctx, su.Password); err != nil {
			return nil, err
		}
	}

	return s.createUser(ctx, &models.User{
		Email:        email,
		FirstName:    strings.TrimSpace(su.FirstName),
		LastName:     strings.TrimSpace(su.LastName),
		PasswordHash: hash,
		Role:         role,
	})
}
