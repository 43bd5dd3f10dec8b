// ABOUTME: Sign-in, sign-up, Google and organization routes of the stub API
// ABOUTME: The first account founds an org as ADMIN; later accounts join it as USER
package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harperreed/leadopp/db"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, err := db.Authenticate(s.db, req.Email, req.Password)
	if errors.Is(err, db.ErrInvalidCredentials) {
		respondError(c, http.StatusBadRequest, "Invalid email or password")
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	s.issueToken(c, u)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields := map[string][]string{}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = []string{"Enter a valid email address."}
	}
	if len(req.Password) < 4 {
		fields["password"] = []string{"Ensure this field has at least 4 characters."}
	}
	if len(fields) > 0 {
		respondInvalid(c, fields)
		return
	}

	u, err := s.createAccount(req.Email, req.Password)
	if errors.Is(err, db.ErrEmailTaken) {
		respondInvalid(c, map[string][]string{"email": {"User with this email already exists."}})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"email": u.Email, "user_id": u.ID})
}

func (s *Server) handleGoogle(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		respondError(c, http.StatusBadRequest, "Token is required")
		return
	}

	email, err := s.google.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		s.log.Warn().Err(err).Msg("google token rejected")
		respondError(c, http.StatusUnauthorized, "Invalid Google token")
		return
	}

	u, err := db.GetUserByEmail(s.db, email)
	if errors.Is(err, db.ErrNotFound) {
		u, err = s.createAccount(email, "")
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	s.issueToken(c, u)
}

func (s *Server) handleUserCount(c *gin.Context) {
	n, err := db.CountUsers(s.db)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_count": n})
}

func (s *Server) handleOrgs(c *gin.Context) {
	ms, err := db.Memberships(s.db, currentUser(c).ID)
	if err != nil {
		s.internalError(c, err)
		return
	}
	list := make([]gin.H, 0, len(ms))
	for _, m := range ms {
		list = append(list, gin.H{
			"role": m.Role,
			"org":  gin.H{"id": m.OrgID, "name": m.OrgName},
		})
	}
	c.JSON(http.StatusOK, gin.H{"profile_org_list": list})
}

// createAccount registers a user and places them in an org.
func (s *Server) createAccount(email, password string) (*db.User, error) {
	n, err := db.CountUsers(s.db)
	if err != nil {
		return nil, err
	}
	u, err := db.CreateUser(s.db, email, password)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		org, err := db.CreateOrg(s.db, "My Organization")
		if err != nil {
			return nil, err
		}
		if err := db.SeedLookups(s.db); err != nil {
			return nil, err
		}
		return u, db.AddMember(s.db, u.ID, org, "ADMIN")
	}

	org, err := db.FirstOrg(s.db)
	if errors.Is(err, db.ErrNotFound) {
		org, err = db.CreateOrg(s.db, "My Organization")
	}
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("email", u.Email).Msg("account created")
	return u, db.AddMember(s.db, u.ID, org, "USER")
}

func (s *Server) issueToken(c *gin.Context, u *db.User) {
	token, err := db.IssueToken(s.db, u.ID)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}
