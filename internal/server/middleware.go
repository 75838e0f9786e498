package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pathshala-labs/pathshala/internal/authz"
	"github.com/pathshala-labs/pathshala/internal/ratelimit"
	"go.uber.org/zap"
)

const contextActorKey = "actor"

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	logger := log.Named("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// AuthRequired validates the bearer token and stores the caller as an Actor.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.parseToken(strings.TrimSpace(token))
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextActorKey, actor)
		c.Next()
	}
}

func (s *Server) parseToken(token string) (authz.Actor, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.AuthJWTSecret), nil
	})
	if err != nil {
		return authz.Actor{}, err
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return authz.Actor{}, err
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return authz.Actor{}, err
	}

	role := authz.RoleStudent
	if raw, ok := claims["role"].(string); ok {
		if parsed, valid := authz.ParseRole(raw); valid {
			role = parsed
		}
	}

	return authz.Actor{UserID: userID, Role: role}, nil
}

func actorFrom(c *gin.Context) (authz.Actor, bool) {
	v, ok := c.Get(contextActorKey)
	if !ok {
		return authz.Actor{}, false
	}
	actor, ok := v.(authz.Actor)
	return actor, ok
}

// requireAction resolves the actor and checks the capability in one step.
func (s *Server) requireAction(c *gin.Context, action authz.Action) (authz.Actor, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return authz.Actor{}, false
	}
	if decision := authz.Can(actor, action); !decision.Allowed {
		s.log.Warn("action denied",
			zap.Int64("user_id", actor.UserID),
			zap.String("action", string(action)),
			zap.String("reason", decision.Reason),
		)
		AbortWithError(c, ErrForbidden)
		return authz.Actor{}, false
	}
	return actor, true
}

func (s *Server) RateLimitByIP(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			s.log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds()+1)))
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
