package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/plantlab/lessonhub/internal/auth"
	"github.com/plantlab/lessonhub/internal/logger"
)

const callerKey = "caller"

// Identity returns a middleware that resolves the request's bearer token to a
// caller identity. Resolution happens on every request so role changes take
// effect immediately; this middleware never rejects. The permission gate
// inside each service method decides the outcome, so the gate cannot be
// bypassed by skipping the HTTP layer.
func Identity(provider auth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := auth.Anonymous

		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			resolved, err := provider.Resolve(c.Request.Context(), token)
			if err != nil {
				// A failed lookup leaves the caller anonymous; the gate
				// fails closed downstream.
				logger.CtxWarn(c.Request.Context(), "Caller resolution failed: client_ip=%s, error=%v", c.ClientIP(), err)
			} else {
				caller = resolved
			}
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom extracts the resolved caller for this request. Requests that
// never passed the Identity middleware report Anonymous.
func CallerFrom(c *gin.Context) auth.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(auth.Caller); ok {
			return caller
		}
	}
	return auth.Anonymous
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(header)
}
