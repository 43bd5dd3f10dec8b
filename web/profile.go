// ABOUTME: Profile read and update routes of the stub API
// ABOUTME: Reads nest user details and address; writes take the flat form
package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harperreed/leadopp/db"
	"github.com/harperreed/leadopp/models"
)

func (s *Server) handleProfile(c *gin.Context) {
	u := currentUser(c)

	var p models.UserProfile
	p.UserObj.ID = u.ID
	p.UserObj.Phone = u.Phone
	p.UserObj.Role = c.GetString(ctxRole)
	p.UserObj.UserDetails.ID = u.ID
	p.UserObj.UserDetails.Email = u.Email
	p.UserObj.UserDetails.FirstName = u.FirstName
	p.UserObj.UserDetails.LastName = u.LastName
	p.UserObj.UserDetails.JobTitle = u.JobTitle
	p.UserObj.Address.AddressLine = u.AddressLine
	p.UserObj.Address.Street = u.Street
	p.UserObj.Address.City = u.City
	p.UserObj.Address.State = u.State
	p.UserObj.Address.Postcode = u.Postcode
	p.UserObj.Address.Country = u.Country

	c.JSON(http.StatusOK, p)
}

func (s *Server) handleProfileUpdate(c *gin.Context) {
	u := currentUser(c)
	if c.Param("id") != u.ID {
		respondError(c, http.StatusForbidden, "Permission denied")
		return
	}

	var form models.ProfileForm
	if err := c.ShouldBindJSON(&form); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	fields := map[string][]string{}
	if !strings.Contains(form.Email, "@") {
		fields["email"] = []string{"Enter a valid email address."}
	}
	if strings.TrimSpace(form.FirstName) == "" {
		fields["first_name"] = []string{"This field is required."}
	}
	if len(fields) > 0 {
		respondInvalid(c, fields)
		return
	}

	updated := *u
	updated.Email = form.Email
	updated.FirstName = form.FirstName
	updated.LastName = form.LastName
	updated.JobTitle = form.JobTitle
	updated.Phone = form.MobileNumber
	updated.AddressLine = form.AddressLine
	updated.Street = form.Street
	updated.City = form.City
	updated.State = form.State
	updated.Postcode = form.Postcode
	updated.Country = form.Country

	if err := db.UpdateUser(s.db, &updated); err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false, "message": "Profile Updated Successfully"})
}
