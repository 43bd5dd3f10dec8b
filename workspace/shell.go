// ABOUTME: Shell controller for the layout shared by every screen
// ABOUTME: Owns the drawer, derives the active section from routes and gates admin menu entries
package workspace

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/session"
)

// LoginRoute is where the shell sends a signed-out user.
const LoginRoute = "/login"

// DefaultSection is used when a route has no section segment.
const DefaultSection = "contacts"

var (
	navList      = []string{"deals", "dashboard", "contacts", "accounts", "companies", "cases"}
	adminNavList = []string{"admin", "users"}
)

// SessionState is the durable client-side session the shell reads and clears.
type SessionState interface {
	Role() string
	Authenticated() bool
	Get(key string) (string, error)
	Set(key, value string) error
	Clear() error
}

// MenuEntry is one sidebar item.
type MenuEntry struct {
	Section string
	Label   string
	Route   string
	Active  bool
	Admin   bool
}

// Shell is the only writer of the workspace layout state.
type Shell struct {
	session  SessionState
	fallback string
	log      zerolog.Logger

	mu        sync.Mutex
	layout    models.WorkspaceLayoutState
	signedOut bool
}

// NewShell restores the drawer state from the session.
func NewShell(state SessionState, fallback string, logger zerolog.Logger) *Shell {
	if fallback == "" {
		fallback = DefaultSection
	}
	s := &Shell{
		session:  state,
		fallback: fallback,
		log:      logger.With().Str("component", "shell").Logger(),
		layout:   models.WorkspaceLayoutState{ActiveSection: fallback},
	}
	if v, err := state.Get(session.KeyDrawer); err == nil && v == models.DrawerExpanded.String() {
		s.layout.Drawer = models.DrawerExpanded
	}
	return s
}

// Toggle flips the drawer between collapsed and expanded.
func (s *Shell) Toggle() models.DrawerWidth {
	s.mu.Lock()
	if s.layout.Drawer == models.DrawerExpanded {
		s.layout.Drawer = models.DrawerCollapsed
	} else {
		s.layout.Drawer = models.DrawerExpanded
	}
	d := s.layout.Drawer
	signedOut := s.signedOut
	s.mu.Unlock()

	if !signedOut {
		if err := s.session.Set(session.KeyDrawer, d.String()); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist drawer state")
		}
	}
	return d
}

// OnRoute recomputes the active section for a new route.
func (s *Shell) OnRoute(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout.ActiveSection = SectionFromRoute(route, s.fallback)
}

func (s *Shell) State() models.WorkspaceLayoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Menu lists the sidebar entries. The role is read on every call so a role
// change shows on the next render.
func (s *Shell) Menu() []MenuEntry {
	s.mu.Lock()
	active := s.layout.ActiveSection
	s.mu.Unlock()

	entries := make([]MenuEntry, 0, len(navList)+len(adminNavList))
	for _, sec := range navList {
		entries = append(entries, menuEntry(sec, active, false))
	}
	if s.session.Role() == session.RoleAdmin {
		for _, sec := range adminNavList {
			entries = append(entries, menuEntry(sec, active, true))
		}
	}
	return entries
}

func menuEntry(section, active string, admin bool) MenuEntry {
	return MenuEntry{
		Section: section,
		Label:   strings.ToUpper(section[:1]) + section[1:],
		Route:   "/app/" + section,
		Active:  section == active,
		Admin:   admin,
	}
}

// Authenticated is false once SignOut has started.
func (s *Shell) Authenticated() bool {
	s.mu.Lock()
	signedOut := s.signedOut
	s.mu.Unlock()
	return !signedOut && s.session.Authenticated()
}

// SignOut hides authenticated content first, then wipes the session and
// returns the login route. The shell stays signed out even if the wipe fails.
func (s *Shell) SignOut() (string, error) {
	s.mu.Lock()
	s.signedOut = true
	s.layout = models.WorkspaceLayoutState{ActiveSection: s.fallback}
	s.mu.Unlock()

	if err := s.session.Clear(); err != nil {
		s.log.Error().Err(err).Msg("failed to clear session")
		return LoginRoute, fmt.Errorf("failed to clear session: %w", err)
	}
	s.log.Info().Msg("signed out")
	return LoginRoute, nil
}

// SignedIn re-arms the shell after a fresh login.
func (s *Shell) SignedIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signedOut = false
}

// SectionFromRoute returns the second path segment of route, as in
// "/app/<section>/...", or fallback.
func SectionFromRoute(route, fallback string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	parts := strings.Split(route, "/")
	if len(parts) > 2 && parts[2] != "" {
		return parts[2]
	}
	return fallback
}
