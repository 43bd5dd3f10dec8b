// ABOUTME: Request logging, token and organization middleware for the stub API
// ABOUTME: Resolves the bearer token and org header into the signed-in user and role
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harperreed/leadopp/db"
)

const (
	ctxUser = "user"
	ctxOrg  = "org"
	ctxRole = "role"
)

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := db.UserForToken(s.db, c.GetHeader("Authorization"))
		if errors.Is(err, db.ErrNotFound) {
			respondError(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		if err != nil {
			s.internalError(c, err)
			return
		}
		c.Set(ctxUser, u)
		c.Next()
	}
}

func (s *Server) requireOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := c.GetHeader("org")
		if org == "" {
			respondError(c, http.StatusBadRequest, "Organization is missing")
			return
		}
		role, err := db.RoleIn(s.db, currentUser(c).ID, org)
		if errors.Is(err, db.ErrNotFound) {
			respondError(c, http.StatusForbidden, "User does not belong to this organization")
			return
		}
		if err != nil {
			s.internalError(c, err)
			return
		}
		c.Set(ctxOrg, org)
		c.Set(ctxRole, role)
		c.Next()
	}
}

func currentUser(c *gin.Context) *db.User {
	return c.MustGet(ctxUser).(*db.User)
}

func currentOrg(c *gin.Context) string {
	return c.GetString(ctxOrg)
}

func isAdmin(c *gin.Context) bool {
	return c.GetString(ctxRole) == "ADMIN"
}

// respondError writes the {"error": true, "message": ...} envelope.
func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": true, "message": msg})
}

// respondInvalid writes field errors in the {"error": true, "errors": {...}} shape.
func respondInvalid(c *gin.Context, fields map[string][]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": true, "errors": fields})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	respondError(c, http.StatusInternalServerError, "Internal server error")
}
