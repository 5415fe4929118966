package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/api"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
)

func (s *RESTServer) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.StatusResponse{Message: "JWT Authentication API", Status: "running"})
}

func (s *RESTServer) health(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			s.logger.Error(r.Context(), "database ping failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, api.StatusResponse{Message: "Database connection failed", Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Message: "ok", Status: "running"})
}

func (s *RESTServer) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := validateRegister(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.logger.Info(ctx, "Registration request", "username", req.Username)

	user, err := s.users.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUser) {
			s.metrics.ObserveAuth(metrics.OperationRegister, metrics.OutcomeDuplicate)
			writeDetail(w, http.StatusBadRequest, common.DetailAlreadyRegistered)
			return
		}
		s.metrics.ObserveAuth(metrics.OperationRegister, metrics.OutcomeError)
		s.logger.Error(ctx, "registration failed", "username", req.Username, "error", err)
		writeDetail(w, http.StatusInternalServerError, common.DetailRegistrationFailed)
		return
	}

	s.metrics.ObserveAuth(metrics.OperationRegister, metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, user.Profile())
}

func (s *RESTServer) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form body")
		return
	}
	form := loginForm{Username: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
	if err := validateLogin(&form); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	token, err := s.users.Login(ctx, form.Username, form.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.metrics.ObserveAuth(metrics.OperationLogin, metrics.OutcomeRejected)
			writeUnauthorized(w, common.DetailIncorrectCredentials)
			return
		}
		s.metrics.ObserveAuth(metrics.OperationLogin, metrics.OutcomeError)
		s.logger.Error(ctx, "login failed", "username", form.Username, "error", err)
		writeDetail(w, http.StatusInternalServerError, common.DetailAuthenticationFailed)
		return
	}

	s.metrics.ObserveAuth(metrics.OperationLogin, metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: token, TokenType: common.BearerScheme})
}

func (s *RESTServer) me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, common.DetailInvalidToken)
		return
	}
	writeJSON(w, http.StatusOK, user.Profile())
}
