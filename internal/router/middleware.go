package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/auth"
	"ejc.kiosk/go-api/pkg/global"
)

const (
	sessionCookie = "ejc_session"
	sessionKey    = "session_id"
	claimsKey     = "claims"
	tokenKey      = "token"
)

// ZapLogger logs one line per request.
func ZapLogger(logger *zap.Logger) gin.HandlerFunc {
	logger = global.OrNop(logger)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if session := c.GetString(sessionKey); session != "" {
			fields = append(fields, zap.String("session", session))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// SessionMiddleware resolves the kiosk session from its cookie, issuing a new
// one when the cookie is missing or malformed.
func SessionMiddleware(cfg *global.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(sessionCookie)
		if err != nil || uuid.Validate(sessionID) != nil {
			sessionID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, sessionID, int(cfg.CartTTL.Seconds()), "/", "", cfg.IsProduction(), true)
		}
		c.Set(sessionKey, sessionID)
		c.Next()
	}
}

// RequireAuth rejects requests without a valid, unrevoked bearer token.
// EventSource clients cannot set headers, so the token may also come in the
// access_token query parameter.
func RequireAuth(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		claims, err := svc.Parse(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, global.ErrorResponse("Authentication required", global.FieldError("authorization", "a valid session token is required", "unauthenticated")))
			return
		}
		c.Set(claimsKey, claims)
		c.Set(tokenKey, token)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("access_token")
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// performedBy names the signed-in admin for inventory logs.
func performedBy(c *gin.Context) string {
	if claims, ok := c.Get(claimsKey); ok {
		return claims.(*auth.Claims).Email
	}
	return "unknown"
}
