package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/orgchart/internal/common"
	"github.com/dmitrijs2005/orgchart/internal/server/auth"
	"github.com/gin-gonic/gin"
)

type ctxKey string

const subjectKey ctxKey = "subject"

// WithSubject returns a copy of ctx carrying the verified subject.
func WithSubject(ctx context.Context, subject auth.Subject) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromContext returns the subject the gate attached to the request.
func SubjectFromContext(ctx context.Context) (auth.Subject, bool) {
	subject, ok := ctx.Value(subjectKey).(auth.Subject)
	return subject, ok
}

// bearerToken extracts <token> from "Bearer <token>". The scheme is matched
// case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// requireToken is the request gate. For every request it either aborts with
// an error response or attaches the subject and calls the next handler once.
func (s *HTTPServer) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token, ok := bearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if !ok {
			s.reject(c, http.StatusBadRequest, msgMissingHeader, "no_header")
			return
		}

		subject, err := s.verify(token)
		if err != nil {
			if auth.IsRejection(err) {
				decision := "invalid"
				if errors.Is(err, common.ErrTokenExpired) {
					decision = "expired"
				}
				s.reject(c, http.StatusBadRequest, common.ErrInvalidToken.Error(), decision)
				return
			}
			s.logger.Error(ctx, "token verification failed", "path", c.Request.URL.Path, "error", err)
			s.reject(c, http.StatusInternalServerError, msgUnexpectedError, "error")
			return
		}

		s.metrics.GateDecisions.WithLabelValues("verified").Inc()
		c.Set(string(subjectKey), subject)
		c.Request = c.Request.WithContext(WithSubject(ctx, subject))
		c.Next()
	}
}

// verify turns a panicking verifier into an ordinary error.
func (s *HTTPServer) verify(token string) (subject auth.Subject, err error) {
	defer func() {
		if r := recover(); r != nil {
			subject, err = auth.Subject{}, fmt.Errorf("token verifier panicked: %v", r)
		}
	}()
	return s.tokens.Verify(token)
}

func (s *HTTPServer) reject(c *gin.Context, status int, msg, decision string) {
	s.metrics.GateDecisions.WithLabelValues(decision).Inc()
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// observe logs each request and records its latency.
func (s *HTTPServer) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		s.metrics.RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(elapsed.Seconds())

		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", elapsed,
		)
	}
}
