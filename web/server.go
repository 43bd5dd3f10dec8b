// ABOUTME: Local stub of the CRM REST API backed by SQLite
// ABOUTME: Serves auth, org, profile, record aggregate and file routes for offline use
package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harperreed/leadopp/models"
)

// APIPrefix is where every route is mounted.
const APIPrefix = "/api"

type Server struct {
	db     *sql.DB
	log    zerolog.Logger
	google GoogleVerifier
	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithGoogleVerifier replaces the verifier behind the Google sign-in route.
func WithGoogleVerifier(v GoogleVerifier) Option {
	return func(s *Server) { s.google = v }
}

func NewServer(database *sql.DB, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		db:     database,
		log:    logger.With().Str("component", "stub").Logger(),
		google: NewGoogleUserinfo(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	api := r.Group(APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login/", s.handleLogin)
	auth.POST("/register/", s.handleRegister)
	auth.POST("/google/", s.handleGoogle)
	auth.GET("/user-count/", s.handleUserCount)

	api.GET("/files/:id/:name", s.handleFile)

	signedIn := api.Group("", s.requireToken())
	signedIn.GET("/org/", s.handleOrgs)

	scoped := signedIn.Group("", s.requireOrg())
	scoped.GET("/profile/", s.handleProfile)
	scoped.PUT("/profile/:id/", s.handleProfileUpdate)

	// Each kind gets explicit routes so static and param segments never clash.
	for _, kind := range models.Kinds() {
		k := kind
		base := "/" + string(k)
		scoped.GET(base+"/", func(c *gin.Context) { s.handleList(c, k) })
		scoped.GET(base+"/:id/", func(c *gin.Context) { s.handleAggregate(c, k) })
		scoped.POST(base+"/:id/", func(c *gin.Context) { s.handleComment(c, k) })
		scoped.PUT(base+"/:id/", func(c *gin.Context) { s.handleUpdate(c, k) })
	}
	return r
}

// Start serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("stub API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("stub API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("stub API shutdown: %w", err)
	}
	s.log.Info().Msg("stub API stopped")
	return nil
}
