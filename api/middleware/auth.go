package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/dishdash-backend/api/responses"
	pkgAuth "github.com/angelmondragon/dishdash-backend/pkg/auth"
	"github.com/angelmondragon/dishdash-backend/pkg/auth/session"
	"github.com/angelmondragon/dishdash-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
)

// streamTokenParam carries the access token for EventSource clients, which
// cannot set an Authorization header. It is honoured only on SSE requests.
const streamTokenParam = "access_token"

// Auth validates the access token, checks that its session is still live and
// seeds the request context with user id, role and access id.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			deny := func(err error) { responses.WriteError(ctx, logg, w, err) }

			token, ok := accessToken(r)
			if !ok {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			switch {
			case err != nil:
				deny(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			case claims.ID == "":
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			case !claims.Role.IsValid():
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown role"))
				return
			}

			if verifier != nil {
				live, err := verifier.HasSession(ctx, claims.ID)
				if err != nil {
					deny(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !live {
					deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked or expired"))
					return
				}
			}

			userID, role := claims.UserID.String(), string(claims.Role)
			ctx = WithAccessID(WithRole(WithUserID(ctx, userID), role), claims.ID)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accessToken reads "Authorization: Bearer <jwt>". Other schemes are
// rejected. SSE requests may pass the token as ?access_token= instead.
func accessToken(r *http.Request) (string, bool) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		token := strings.TrimSpace(r.URL.Query().Get(streamTokenParam))
		return token, token != ""
	}
	return "", false
}
