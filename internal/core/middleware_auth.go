package core

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"potager/internal/types"
)

// RequireToken guards the v1 API with the single gardener token.
//
//  1. Extracts the Bearer token from the Authorization header.
//  2. Verifies it against the bcrypt hash from configuration.
//  3. Returns 401 Unauthorized on failure with distinct error codes:
//     - auth_token_missing: no Authorization header or empty Bearer token.
//     - auth_token_invalid: token does not match the configured hash.
//
// If no token hash is configured (local development without auth), the
// middleware passes through. Health endpoints are mounted outside the v1
// subtree and never pass through this middleware.
func (s *Server) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash := s.Config.Security.APITokenHash.Unmask()
		if hash == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authorization header is required")
			return
		}

		token := extractBearerToken(authHeader)
		if token == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Bearer token is required")
			return
		}

		if !s.verifyToken(hash, token) {
			s.Logger.Warn("authentication failed: token invalid",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid API token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// verifyToken checks the presented token against the configured bcrypt hash.
// A bcrypt comparison costs on the order of 100ms, far too slow to pay on
// every request, so the SHA-256 digest of the first accepted token is cached
// and subsequent requests hit a constant-time digest comparison instead.
// The cache never stores the token itself.
func (s *Server) verifyToken(hash, token string) bool {
	digest := sha256.Sum256([]byte(token))

	s.tokenMu.RLock()
	if s.tokenSeen && subtle.ConstantTimeCompare(s.tokenDigest[:], digest[:]) == 1 {
		s.tokenMu.RUnlock()
		return true
	}
	s.tokenMu.RUnlock()

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return false
	}

	s.tokenMu.Lock()
	s.tokenDigest = digest
	s.tokenSeen = true
	s.tokenMu.Unlock()

	return true
}

// extractBearerToken parses the Authorization header value and returns
// the token string. It expects the format "Bearer <token>" (case-insensitive
// scheme per RFC 7235). Returns empty string if the format is invalid.
func extractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	token := authHeader[len(prefix):]
	return strings.TrimSpace(token)
}

// writeAuthError writes a 401 Unauthorized JSON response with the given error code.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	requestID := types.GetRequestID(r.Context())
	resp := APIErrorResponse{
		Error: ErrorDetail{
			Code:      string(code),
			Message:   message,
			RequestID: requestID,
		},
	}
	JSON(w, r, http.StatusUnauthorized, resp)
}
