// ABOUTME: Record list, aggregate, comment, update and file routes of the stub API
// ABOUTME: An aggregate bundles the entity with lookups, attachments and comments
package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harperreed/leadopp/db"
	"github.com/harperreed/leadopp/models"
)

func (s *Server) handleList(c *gin.Context, kind models.EntityKind) {
	var list []map[string]any
	if kind == models.KindUser {
		members, err := db.OrgMembers(s.db, currentOrg(c))
		if err != nil {
			s.internalError(c, err)
			return
		}
		for _, m := range members {
			list = append(list, userDoc(&m.User, m.Role))
		}
	} else {
		docs, err := db.ListRecords(s.db, currentOrg(c), string(kind))
		if err != nil {
			s.internalError(c, err)
			return
		}
		list = docs
	}
	if list == nil {
		list = []map[string]any{}
	}
	c.JSON(http.StatusOK, gin.H{string(kind): list})
}

func (s *Server) handleAggregate(c *gin.Context, kind models.EntityKind) {
	spec, _ := models.SpecFor(kind)
	id := c.Param("id")

	doc, err := s.entityDoc(c, kind, id)
	if errors.Is(err, db.ErrNotFound) {
		respondError(c, http.StatusNotFound, spec.Label+" not found")
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}

	body := gin.H{spec.ObjectKey: doc}
	for _, name := range []string{db.LookupStatus, db.LookupSource, db.LookupIndustries, db.LookupCountries, db.LookupTags, db.LookupTeams} {
		choices, err := db.Lookup(s.db, name)
		if err != nil {
			s.internalError(c, err)
			return
		}
		body[name] = choices
	}

	members, err := db.OrgMembers(s.db, currentOrg(c))
	if err != nil {
		s.internalError(c, err)
		return
	}
	users := make([]map[string]any, 0, len(members))
	for _, m := range members {
		users = append(users, userDoc(&m.User, m.Role))
	}
	body["users"] = users

	contacts, err := db.ListRecords(s.db, currentOrg(c), string(models.KindContact))
	if err != nil {
		s.internalError(c, err)
		return
	}
	contactList := make([]gin.H, 0, len(contacts))
	for _, ct := range contacts {
		contactList = append(contactList, gin.H{"id": ct["id"], "first_name": ct["first_name"], "last_name": ct["last_name"]})
	}
	body["contacts"] = contactList

	attachments := []gin.H{}
	comments := []gin.H{}
	if kind != models.KindUser {
		files, err := db.Attachments(s.db, id)
		if err != nil {
			s.internalError(c, err)
			return
		}
		for _, f := range files {
			attachments = append(attachments, gin.H{"id": f.ID, "attachment": f.URL, "file_name": f.FileName})
		}
		thread, err := db.Comments(s.db, id)
		if err != nil {
			s.internalError(c, err)
			return
		}
		for _, cm := range thread {
			comments = append(comments, gin.H{
				"id":           cm.ID,
				"comment":      cm.Body,
				"commented_by": cm.Author,
				"commented_on": cm.CreatedAt.UTC().Format(time.RFC3339Nano),
			})
		}
	}
	body["attachments"] = attachments
	body["comments"] = comments

	c.JSON(http.StatusOK, body)
}

type commentRequest struct {
	Comment        string   `json:"Comment"`
	AttachmentRefs []string `json:"attachment_refs"`
}

func (s *Server) handleComment(c *gin.Context, kind models.EntityKind) {
	if kind == models.KindUser {
		respondError(c, http.StatusBadRequest, "Comments are not supported on users")
		return
	}
	id := c.Param("id")

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Comment) == "" {
		respondInvalid(c, map[string][]string{"comment": {"This field is required."}})
		return
	}

	if _, err := db.GetRecord(s.db, currentOrg(c), string(kind), id); errors.Is(err, db.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Record not found")
		return
	} else if err != nil {
		s.internalError(c, err)
		return
	}

	var keep []string
	var added []db.NewFile
	for _, ref := range req.AttachmentRefs {
		if !strings.HasPrefix(ref, "data:") {
			keep = append(keep, ref)
			continue
		}
		f, err := parseDataURL(ref)
		if err != nil {
			respondInvalid(c, map[string][]string{"attachment_refs": {"Invalid attachment data."}})
			return
		}
		added = append(added, f)
	}

	u := currentUser(c)
	author := models.DisplayName(u.FirstName, u.LastName, u.Email)
	if _, err := db.AddComment(s.db, id, author, req.Comment); err != nil {
		s.internalError(c, err)
		return
	}
	if err := db.SyncAttachments(s.db, id, keep, added, fileURL(c)); err != nil {
		s.internalError(c, err)
		return
	}
	s.log.Info().Str("kind", string(kind)).Str("id", id).Int("added", len(added)).Msg("comment posted")
	c.JSON(http.StatusOK, gin.H{"error": false, "message": "Comment Submitted"})
}

func (s *Server) handleUpdate(c *gin.Context, kind models.EntityKind) {
	id := c.Param("id")
	var values map[string]any
	if err := c.ShouldBindJSON(&values); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if kind == models.KindUser {
		s.updateUser(c, id, values)
		return
	}

	err := db.UpdateRecord(s.db, currentOrg(c), string(kind), id, values)
	if errors.Is(err, db.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false, "message": "Updated Successfully"})
}

// updateUser applies an edit form to a member. Admins may edit anyone in the
// org and change roles; everyone else only themselves.
func (s *Server) updateUser(c *gin.Context, id string, values map[string]any) {
	if id != currentUser(c).ID && !isAdmin(c) {
		respondError(c, http.StatusForbidden, "Permission denied")
		return
	}
	if _, err := db.RoleIn(s.db, id, currentOrg(c)); errors.Is(err, db.ErrNotFound) {
		respondError(c, http.StatusNotFound, "User not found")
		return
	} else if err != nil {
		s.internalError(c, err)
		return
	}

	u, err := db.GetUser(s.db, id)
	if err != nil {
		s.internalError(c, err)
		return
	}
	str := func(key string, dst *string) {
		if v, ok := values[key].(string); ok {
			*dst = v
		}
	}
	str("email", &u.Email)
	str("first_name", &u.FirstName)
	str("last_name", &u.LastName)
	str("job_title", &u.JobTitle)
	str("phone", &u.Phone)
	str("mobile_number", &u.Phone)
	str("address_line", &u.AddressLine)
	str("street", &u.Street)
	str("city", &u.City)
	str("state", &u.State)
	str("postcode", &u.Postcode)
	str("country", &u.Country)

	if !strings.Contains(u.Email, "@") {
		respondInvalid(c, map[string][]string{"email": {"Enter a valid email address."}})
		return
	}
	if err := db.UpdateUser(s.db, u); err != nil {
		s.internalError(c, err)
		return
	}
	if role, ok := values["role"].(string); ok && isAdmin(c) {
		if role != "ADMIN" && role != "USER" {
			respondInvalid(c, map[string][]string{"role": {"Select a valid choice."}})
			return
		}
		if err := db.AddMember(s.db, id, currentOrg(c), role); err != nil {
			s.internalError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"error": false, "message": "User Updated Successfully"})
}

// handleFile serves stored attachment bytes. The route is unauthenticated so
// attachment URLs open directly; ids are unguessable.
func (s *Server) handleFile(c *gin.Context) {
	row, data, err := db.AttachmentFile(s.db, c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		respondError(c, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+strings.ReplaceAll(row.FileName, `"`, "")+`"`)
	c.Data(http.StatusOK, row.ContentType, data)
}

func (s *Server) entityDoc(c *gin.Context, kind models.EntityKind, id string) (map[string]any, error) {
	if kind != models.KindUser {
		return db.GetRecord(s.db, currentOrg(c), string(kind), id)
	}
	role, err := db.RoleIn(s.db, id, currentOrg(c))
	if err != nil {
		return nil, err
	}
	u, err := db.GetUser(s.db, id)
	if err != nil {
		return nil, err
	}
	return userDoc(u, role), nil
}

func userDoc(u *db.User, role string) map[string]any {
	return map[string]any{
		"id":    u.ID,
		"role":  role,
		"phone": u.Phone,
		"user_details": map[string]any{
			"id":         u.ID,
			"email":      u.Email,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"job_title":  u.JobTitle,
		},
		"address": map[string]any{
			"address_line": u.AddressLine,
			"street":       u.Street,
			"city":         u.City,
			"state":        u.State,
			"postcode":     u.Postcode,
			"country":      u.Country,
		},
	}
}

// fileURL builds absolute attachment URLs from the request's host.
func fileURL(c *gin.Context) func(id, name string) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	base := scheme + "://" + c.Request.Host + APIPrefix + "/files/"
	return func(id, name string) string {
		return base + id + "/" + url.PathEscape(name)
	}
}
