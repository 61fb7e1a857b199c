package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/orgchart/internal/dbx"
	"github.com/dmitrijs2005/orgchart/internal/logging"
	"github.com/dmitrijs2005/orgchart/internal/server/auth"
	"github.com/dmitrijs2005/orgchart/internal/server/httpapi"
	"github.com/dmitrijs2005/orgchart/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/orgchart/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/orgchart/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) { return []byte(pw), nil }
}

func TestHashPassword_Stdin(t *testing.T) {
	out, err := execute(t, "s3cret\n", "hash-password", "--stdin")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"), hash)
	assert.True(t, auth.NewArgon2idHasher().Verify("s3cret", hash))
}

func TestHashPassword_Terminal(t *testing.T) {
	stubPassword(t, "from-tty")

	out, err := execute(t, "", "hash-password")
	require.NoError(t, err)
	assert.True(t, auth.NewArgon2idHasher().Verify("from-tty", strings.TrimSpace(out)))
}

func TestHashPassword_Errors(t *testing.T) {
	_, err := execute(t, "\n", "hash-password", "--stdin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")

	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }

	_, err = execute(t, "", "hash-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a terminal")
}

func TestIssueToken(t *testing.T) {
	t.Setenv("ORGCHART_SECRET_KEY", "")

	out, err := execute(t, "", "issue-token", "--subject", "alice", "--user-id", "id-1", "--secret", "k", "--ttl", "5m")
	require.NoError(t, err)

	verifier, err := auth.NewJWTService([]byte("k"), time.Minute, auth.WithIssuer("orgchart"))
	require.NoError(t, err)
	sub, err := verifier.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, auth.Subject{Username: "alice", UserID: "id-1"}, sub)
}

func TestIssueToken_Validation(t *testing.T) {
	t.Setenv("ORGCHART_SECRET_KEY", "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no subject", []string{"issue-token", "--secret", "k"}, "--subject"},
		{"no secret", []string{"issue-token", "--subject", "a"}, "secret is required"},
		{"bad ttl", []string{"issue-token", "--subject", "a", "--secret", "k", "--ttl", "0s"}, "--ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIssueToken_SecretFromEnv(t *testing.T) {
	t.Setenv("ORGCHART_SECRET_KEY", "env-secret")

	out, err := execute(t, "", "issue-token", "--subject", "bob")
	require.NoError(t, err)

	verifier, err := auth.NewJWTService([]byte("env-secret"), time.Minute, auth.WithIssuer("orgchart"))
	require.NoError(t, err)
	_, ok := verifier.Valid(strings.TrimSpace(out))
	assert.True(t, ok)
}

func startAPI(t *testing.T) string {
	t.Helper()
	tokens, err := auth.NewJWTService([]byte("k"), time.Hour, auth.WithIssuer("orgchart"))
	require.NoError(t, err)
	svc := services.NewAccountService(nil, repomanager.NewMemoryRepositoryManager(),
		auth.NewArgon2idHasherWithParams(1, 1024, 1), tokens, logging.Nop())
	srv := httptest.NewServer(httpapi.NewHTTPServer(":0", logging.Nop(), svc, tokens, prometheus.NewRegistry()).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRegisterLoginWhoami(t *testing.T) {
	url := startAPI(t)
	stubPassword(t, "pw1")

	out, err := execute(t, "", "register", "--addr", url, "--username", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(out))

	_, err = execute(t, "", "register", "--addr", url, "--username", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is taken")

	out, err = execute(t, "", "login", "--addr", url, "--username", "alice")
	require.NoError(t, err)
	token := strings.TrimSpace(out)

	out, err = execute(t, "", "whoami", "--addr", url, "--token", token)
	require.NoError(t, err)
	assert.Contains(t, out, "username: alice")

	stubPassword(t, "wrong")
	_, err = execute(t, "", "login", "--addr", url, "--username", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username and password do not match")
}

func TestAccountCmds_Validation(t *testing.T) {
	t.Setenv("ORGCHART_TOKEN", "")

	_, err := execute(t, "", "login", "--addr", "http://x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--username")

	_, err = execute(t, "", "whoami", "--addr", "http://x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is required")
}

type fakeManager struct {
	err   error
	calls int
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error {
	m.calls++
	return m.err
}

func (m *fakeManager) Accounts(dbx.DBTX) accounts.Repository { return nil }

func stubMigrate(t *testing.T, m *fakeManager) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	origOpen, origManager := openDB, newManager
	t.Cleanup(func() { openDB, newManager = origOpen, origManager })
	openDB = func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driver)
		assert.Equal(t, "postgres://db", dsn)
		return db, nil
	}
	newManager = func() repomanager.RepositoryManager { return m }
}

func TestMigrate(t *testing.T) {
	m := &fakeManager{}
	stubMigrate(t, m)

	_, err := execute(t, "", "migrate", "--dsn", "postgres://db")
	require.NoError(t, err)
	assert.Equal(t, 1, m.calls)
}

func TestMigrate_Failure(t *testing.T) {
	m := &fakeManager{err: errors.New("dirty schema")}
	stubMigrate(t, m)

	_, err := execute(t, "", "migrate", "--dsn", "postgres://db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty schema")
}

func TestMigrate_RequiresDSN(t *testing.T) {
	t.Setenv("ORGCHART_DATABASE_DSN", "")

	_, err := execute(t, "", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}
