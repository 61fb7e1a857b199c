package httpapi

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/orgchart/internal/common"
	"github.com/dmitrijs2005/orgchart/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc.def.ghi", "", false},
	}

	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, "header %q", tt.header)
		assert.Equal(t, tt.want, got, "header %q", tt.header)
	}
}

// gateHarness mounts a counting downstream handler behind the gate.
func gateHarness(t *testing.T, verify func(string) (auth.Subject, error)) (http.Handler, *int, *auth.Subject) {
	t.Helper()

	calls := 0
	var seen auth.Subject
	h := newStubServer(t, stubAccounts{}, stubTokens{verify: verify}, WithProtectedRoutes(func(rg *gin.RouterGroup) {
		rg.GET("/departments", func(c *gin.Context) {
			calls++
			seen, _ = SubjectFromContext(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"ok": "yes"})
		})
	}))
	return h, &calls, &seen
}

func TestGate_Outcomes(t *testing.T) {
	alice := auth.Subject{Username: "alice", UserID: "id-1"}

	tests := []struct {
		name       string
		header     http.Header
		verify     func(string) (auth.Subject, error)
		wantStatus int
		wantError  string
		wantCalls  int
	}{
		{
			name:       "no header",
			wantStatus: http.StatusBadRequest,
			wantError:  "missing Authorization header",
		},
		{
			name:       "wrong scheme",
			header:     http.Header{"Authorization": []string{"Token abc"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "missing Authorization header",
		},
		{
			name:       "malformed token",
			header:     bearer("garbage"),
			verify:     func(string) (auth.Subject, error) { return auth.Subject{}, common.ErrTokenMalformed },
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid token",
		},
		{
			name:       "bad signature",
			header:     bearer("a.b.c"),
			verify:     func(string) (auth.Subject, error) { return auth.Subject{}, common.ErrInvalidToken },
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid token",
		},
		{
			name:       "expired",
			header:     bearer("a.b.c"),
			verify:     func(string) (auth.Subject, error) { return auth.Subject{}, common.ErrTokenExpired },
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid token",
		},
		{
			name:       "verifier fault",
			header:     bearer("a.b.c"),
			verify:     func(string) (auth.Subject, error) { return auth.Subject{}, errors.New("hsm offline") },
			wantStatus: http.StatusInternalServerError,
			wantError:  "unexpected error",
		},
		{
			name:       "verifier panic",
			header:     bearer("a.b.c"),
			verify:     func(string) (auth.Subject, error) { panic("boom") },
			wantStatus: http.StatusInternalServerError,
			wantError:  "unexpected error",
		},
		{
			name:       "verified",
			header:     bearer("good"),
			verify:     func(string) (auth.Subject, error) { return alice, nil },
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verify := tt.verify
			if verify == nil {
				verify = func(string) (auth.Subject, error) {
					t.Fatalf("verifier must not be called")
					return auth.Subject{}, nil
				}
			}
			h, calls, seen := gateHarness(t, verify)

			rec := doJSON(t, h, http.MethodGet, "/api/departments", nil, tt.header)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCalls, *calls)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decode(t, rec)["error"])
			} else {
				assert.Equal(t, alice, *seen)
			}
		})
	}
}

func TestGate_RealTokens(t *testing.T) {
	calls := 0
	env := newTestEnv(t, WithProtectedRoutes(func(rg *gin.RouterGroup) {
		rg.GET("/jobs", func(c *gin.Context) {
			calls++
			c.Status(http.StatusNoContent)
		})
	}))

	token, err := env.tokens.Issue(auth.Subject{Username: "alice", UserID: "id-1"})
	require.NoError(t, err)

	rec := doJSON(t, env.handler, http.MethodGet, "/api/jobs", nil, bearer(token))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, calls)

	*env.clock = env.clock.Add(2 * time.Hour)
	rec = doJSON(t, env.handler, http.MethodGet, "/api/jobs", nil, bearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid token", decode(t, rec)["error"])
	assert.Equal(t, 1, calls)
}

func TestSubjectFromContext_Absent(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)

	_, ok := SubjectFromContext(req.Context())
	assert.False(t, ok)

	ctx := WithSubject(req.Context(), auth.Subject{Username: "bob"})
	sub, ok := SubjectFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "bob", sub.Username)
}
