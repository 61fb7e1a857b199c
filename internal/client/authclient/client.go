// Package authclient is a small typed client for the orgchart auth API.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/orgchart/internal/common"
)

type Session struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type Identity struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Register(ctx context.Context, username, password string) (*Session, error) {
	s := &Session{}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", credentials(username, password), s); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	s := &Session{}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", credentials(username, password), s); err != nil {
		return nil, err
	}
	return s, nil
}

// Whoami asks the server which account token belongs to.
func (c *Client) Whoami(ctx context.Context, token string) (*Identity, error) {
	id := &Identity{}
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, id); err != nil {
		return nil, err
	}
	return id, nil
}

func credentials(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
