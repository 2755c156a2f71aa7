package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/filmkeeper/internal/common"
	"github.com/dmitrijs2005/filmkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - email: admin@example.com
    password: Adm1n!Pass
    role: admin
    first_name: Ada
  - email: bob@example.com
    password_hash: $argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g
`), 0o600))

	f, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, f.Users, 2)
	assert.Equal(t, SeedUser{Email: "admin@example.com", Password: "Adm1n!Pass", Role: "admin", FirstName: "Ada"}, f.Users[0])
	assert.Contains(t, f.Users[1].PasswordHash, "$argon2id$")

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("users: [:"), 0o600))
	_, err = LoadSeedFile(bad)
	require.Error(t, err)
}

func TestSeedUsers_CreatesAndSkips(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u-bob", "bob@example.com", "old", models.RoleRegular)
	ctx := context.Background()

	// admin: one tx committed; bob: rolled back as duplicate; carol: committed
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	preHashed, err := f.hasher.Hash(ctx, "Car0l!Pass")
	require.NoError(t, err)

	n, err := f.svc.SeedUsers(ctx, []SeedUser{
		{Email: "Admin@Example.com", Password: "Adm1n!Pass", Role: "ADMIN"},
		{Email: "bob@example.com", Password: "new"},
		{Email: "carol@example.com", PasswordHash: preHashed},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, f.mock.ExpectationsWereMet())

	admin, err := f.repo.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = f.svc.SignIn(ctx, "carol@example.com", "Car0l!Pass")
	require.NoError(t, err, "a pre-computed hash is stored as is")

	_, err = f.svc.SignIn(ctx, "bob@example.com", "old")
	require.NoError(t, err, "existing users are left untouched")
}

func TestSeedUsers_InvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		user SeedUser
		want error
	}{
		{"bad email", SeedUser{Email: "nope", Password: "pw"}, common.ErrInvalidInput},
		{"bad role", SeedUser{Email: "a@example.com", Password: "pw", Role: "root"}, common.ErrInvalidInput},
		{"both secrets", SeedUser{Email: "a@example.com", Password: "pw", PasswordHash: "$argon2id$x"}, common.ErrInvalidInput},
		{"no secret", SeedUser{Email: "a@example.com"}, common.ErrInvalidInput},
		{"unknown hash", SeedUser{Email: "a@example.com", PasswordHash: "md5:abc"}, common.ErrMalformedHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			n, err := f.svc.SeedUsers(context.Background(), []SeedUser{tt.user})
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, n)
		})
	}
}
