package httptransport

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"agentdeck-server/internal/domain/session"
	perrors "agentdeck-server/internal/platform/errors"
	"agentdeck-server/internal/platform/logging"
)

// ErrUnauthorized is reported when a request carries no usable credential.
var ErrUnauthorized = errors.New("unauthorized")

const claimContextKey = "agentdeck.session.claim"

// SessionAuth turns bearer credentials into session claims for handlers.
type SessionAuth struct {
	tokens   *session.TokenIssuer
	registry *session.Registry
	logger   *logging.Logger
}

func NewSessionAuth(tokens *session.TokenIssuer, registry *session.Registry, logger *logging.Logger) *SessionAuth {
	return &SessionAuth{tokens: tokens, registry: registry, logger: logger}
}

// ExtractToken reads the credential from the Authorization header, falling
// back to the token query parameter that browsers use for websockets.
func ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return strings.TrimSpace(header)
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Claim parses the request credential. It returns nil when there is none
// or it does not verify.
func (a *SessionAuth) Claim(r *http.Request) *session.Claim {
	raw := ExtractToken(r)
	if raw == "" {
		return nil
	}
	claim, err := a.tokens.Parse(raw)
	if err != nil {
		a.logger.DebugTag(logging.TagSession, "rejecting credential: %v", err)
		return nil
	}
	return &claim
}

// RequireSession only verifies the credential. A superseded credential is
// still accepted.
func (a *SessionAuth) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		claim := a.Claim(c.Request)
		if claim == nil {
			a.reject(c, "session.require", ErrUnauthorized.Error(), session.ReasonNoSession)
			return
		}
		c.Set(claimContextKey, *claim)
		c.Next()
	}
}

// RequireCurrentSession also rejects credentials that are no longer the
// user's recorded login.
func (a *SessionAuth) RequireCurrentSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		claim := a.Claim(c.Request)
		if claim == nil {
			a.reject(c, "session.require_current", ErrUnauthorized.Error(), session.ReasonNoSession)
			return
		}

		ok, reason, err := a.registry.IsValid(c.Request.Context(), *claim)
		if err != nil {
			a.logger.ErrorTag(logging.TagSession, "session check failed for user %d: %v", claim.UserID, err)
			AbortWithError(c, http.StatusInternalServerError, "session store unavailable", nil)
			return
		}
		if !ok {
			a.reject(c, "session.require_current", reason.Err().Error(), reason)
			return
		}
		c.Set(claimContextKey, *claim)
		c.Next()
	}
}

func (a *SessionAuth) reject(c *gin.Context, op, message string, reason session.Reason) {
	err := perrors.Wrap(perrors.KindAuth, op, message, reason.Err())
	a.logger.DebugTag(logging.TagSession, "%v", err)
	AbortWithError(c, err.Kind.HTTPStatus(), message, gin.H{"reason": reason})
}

// OptionalSession attaches the claim when a valid credential is present and
// never rejects.
func (a *SessionAuth) OptionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claim := a.Claim(c.Request); claim != nil {
			c.Set(claimContextKey, *claim)
		}
		c.Next()
	}
}

// ClaimFrom returns the claim a session middleware attached.
func ClaimFrom(c *gin.Context) (session.Claim, bool) {
	v, ok := c.Get(claimContextKey)
	if !ok {
		return session.Claim{}, false
	}
	claim, ok := v.(session.Claim)
	return claim, ok
}
