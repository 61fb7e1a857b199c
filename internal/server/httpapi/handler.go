package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/orgchart/internal/common"
	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type meResponse struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const (
	msgUnexpectedError = "unexpected error"
	msgMissingHeader   = "missing Authorization header"
	msgNotFound        = "resource not found"
)

// register handles POST /auth/register.
func (s *HTTPServer) register(c *gin.Context) {
	var req credentialsRequest
	// an unreadable body is reported the same way as an empty one
	_ = c.ShouldBindJSON(&req)

	sess, err := s.accounts.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.writeAccountError(c, "register", req.Username, err)
		return
	}

	s.metrics.AuthRequests.WithLabelValues("register", "success").Inc()
	c.JSON(http.StatusCreated, sessionResponse{Username: sess.Username, Token: sess.Token})
}

// login handles POST /auth/login.
func (s *HTTPServer) login(c *gin.Context) {
	var req credentialsRequest
	_ = c.ShouldBindJSON(&req)

	sess, err := s.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.writeAccountError(c, "login", req.Username, err)
		return
	}

	s.metrics.AuthRequests.WithLabelValues("login", "success").Inc()
	c.JSON(http.StatusOK, sessionResponse{Username: sess.Username, Token: sess.Token})
}

// me handles GET /auth/me. It only runs behind the gate.
func (s *HTTPServer) me(c *gin.Context) {
	subject, ok := SubjectFromContext(c.Request.Context())
	if !ok {
		s.logger.Error(c.Request.Context(), "no subject on gated request", "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, errorResponse{Error: common.ErrorInternal.Error()})
		return
	}

	c.JSON(http.StatusOK, meResponse{Username: subject.Username, UserID: subject.UserID})
}

func (s *HTTPServer) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *HTTPServer) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorResponse{Error: msgNotFound})
}

func (s *HTTPServer) writeAccountError(c *gin.Context, op, username string, err error) {
	ctx := c.Request.Context()

	var (
		status  int
		outcome string
		reason  error
	)
	switch {
	case errors.Is(err, common.ErrMissingFields):
		status, outcome, reason = http.StatusBadRequest, "missing_fields", common.ErrMissingFields
	case errors.Is(err, common.ErrUsernameTaken):
		status, outcome, reason = http.StatusBadRequest, "username_taken", common.ErrUsernameTaken
	case errors.Is(err, common.ErrUserNotFound):
		status, outcome, reason = http.StatusBadRequest, "user_not_found", common.ErrUserNotFound
	case errors.Is(err, common.ErrCredentialsMismatch):
		status, outcome, reason = http.StatusUnauthorized, "credentials_mismatch", common.ErrCredentialsMismatch
	default:
		s.metrics.AuthRequests.WithLabelValues(op, "error").Inc()
		s.logger.Error(ctx, op+" failed", "username", username, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: common.ErrorInternal.Error()})
		return
	}

	s.metrics.AuthRequests.WithLabelValues(op, outcome).Inc()
	if outcome != "missing_fields" {
		s.logger.Info(ctx, op+" rejected", "username", username, "reason", reason.Error())
	}
	c.JSON(status, errorResponse{Error: reason.Error()})
}
