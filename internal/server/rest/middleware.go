package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type ctxKey string

const userKey ctxKey = "user"

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

func userFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}

// requestLogger tags each request with an id, logs its outcome and records
// the HTTP metrics under the matched route pattern.
func (s *RESTServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		if s.metrics != nil {
			s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		}

		s.logger.Info(r.Context(), "request",
			"request_id", requestID,
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
		)
	})
}

// bearerToken extracts the token from an "Authorization: Bearer <t>" header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.AuthorizationHeaderName)
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requireBearer resolves the bearer token to a user and stores it in the
// request context. A missing, invalid or expired token is a 401; a store
// failure is a 500.
func (s *RESTServer) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, ok := bearerToken(r)
		if !ok {
			s.metrics.ObserveAuth(metrics.OperationVerify, metrics.OutcomeRejected)
			writeUnauthorized(w, common.DetailNotAuthenticated)
			return
		}

		s.logger.Debug(ctx, "validating token", "token", logging.TokenPrefix(token))

		user, err := s.users.CurrentUser(ctx, token)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpiredOrInvalid) {
				s.metrics.ObserveAuth(metrics.OperationVerify, metrics.OutcomeInvalid)
				writeUnauthorized(w, common.DetailInvalidToken)
				return
			}
			s.metrics.ObserveAuth(metrics.OperationVerify, metrics.OutcomeError)
			s.logger.Error(ctx, "token validation failed", "error", err)
			writeDetail(w, http.StatusInternalServerError, common.DetailAuthenticationFailed)
			return
		}

		s.metrics.ObserveAuth(metrics.OperationVerify, metrics.OutcomeSuccess)
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey, user)))
	})
}
