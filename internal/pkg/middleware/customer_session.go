package middleware

import (
	"net/http"
	"strings"

	"github.com/tsel-ticketmaster/tm-booking/internal/pkg/jwt"
	"github.com/tsel-ticketmaster/tm-booking/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-booking/pkg/response"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

type CustomerSession struct {
	jsonWebToken *jwt.JSONWebToken
	store        session.Store
}

func NewCustomerSessionMiddleware(jsonWebToken *jwt.JSONWebToken, store session.Store) *CustomerSession {
	return &CustomerSession{
		jsonWebToken: jsonWebToken,
		store:        store,
	}
}

func (m *CustomerSession) Verify(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(authorization, "Bearer ")
		if !found || token == "" {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "authorization token is missing",
			})
			return
		}

		claims, err := m.jsonWebToken.Parse(token)
		if err != nil {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "invalid or expired token",
			})
			return
		}

		if claims.Role != "CUSTOMER" {
			response.JSON(w, http.StatusForbidden, response.RESTEnvelope{
				Status:  status.FORBIDDEN,
				Message: "account's role is not allowed to access this resource",
			})
			return
		}

		acc, err := m.store.Get(r.Context(), claims.SessionID)
		if err != nil {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "session is not found or has expired",
			})
			return
		}

		ctx := session.SetAccountToCtx(r.Context(), acc)
		next(w, r.WithContext(ctx))
	}
}
