package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestRegister_Success(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"username": "alice", "password": "pw1"}, body)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"username":"alice","token":"t1"}`))
	})

	s, err := c.Register(context.Background(), "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, &Session{Username: "alice", Token: "t1"}, s)
}

func TestLogin_Mismatch(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"username and password do not match"}`))
	})

	_, err := c.Login(context.Background(), "alice", "pw2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "username and password do not match", apiErr.Message)
}

func TestRegister_Rejected(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"username is taken"}`))
	})

	_, err := c.Register(context.Background(), "alice", "pw1")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "400: username is taken", err.Error())
}

func TestWhoami(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"username":"alice","user_id":"id-1"}`))
	})

	id, err := c.Whoami(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &Identity{Username: "alice", UserID: "id-1"}, id)
}

func TestServerErrorWithoutBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Whoami(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "Bad Gateway")
}

func TestBadResponseBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.Login(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Login(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrUnavailable)
}
