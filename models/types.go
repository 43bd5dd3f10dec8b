// ABOUTME: Data models for CRM workspace screens
// ABOUTME: Defines aggregate view-models, lookups, attachments, comments and layout state
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"
)

// Choice is one entry of a lookup collection. The server sends choices as
// [code, label] pairs, bare strings, or objects with id/name fields.
type Choice struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		c.Code, c.Label = s, s
		return nil

	case '[':
		var pair []any
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) == 0 {
			return fmt.Errorf("empty choice pair")
		}
		c.Code = scalarString(pair[0])
		c.Label = c.Code
		if len(pair) > 1 {
			c.Label = scalarString(pair[1])
		}
		return nil

	case '{':
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r := Record(obj)
		c.Code = firstNonEmpty(r.String("id"), r.String("value"), r.String("code"), r.String("name"))
		c.Label = firstNonEmpty(r.String("name"), r.String("label"), r.UserLabel(), c.Code)
		return nil
	}

	return fmt.Errorf("unsupported choice encoding: %s", string(data))
}

// MarshalJSON writes the choice in the [code, label] pair form.
func (c Choice) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{c.Code, c.Label})
}

// Lookups are the read-only reference collections returned alongside an entity.
type Lookups struct {
	Statuses   []Choice `json:"status"`
	Sources    []Choice `json:"source"`
	Industries []Choice `json:"industries"`
	Countries  []Choice `json:"countries"`
	Tags       []Choice `json:"tags"`
	Teams      []Choice `json:"teams"`
	Users      []Choice `json:"users"`
	Contacts   []Choice `json:"contacts"`
}

// CountryCode resolves a country display name (or code) to its lookup code.
func (l Lookups) CountryCode(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, c := range l.Countries {
		if c.Label == name || c.Code == name {
			return c.Code, true
		}
	}
	return "", false
}

// Clone returns a copy that shares no slices with l.
func (l Lookups) Clone() Lookups {
	return Lookups{
		Statuses:   cloneChoices(l.Statuses),
		Sources:    cloneChoices(l.Sources),
		Industries: cloneChoices(l.Industries),
		Countries:  cloneChoices(l.Countries),
		Tags:       cloneChoices(l.Tags),
		Teams:      cloneChoices(l.Teams),
		Users:      cloneChoices(l.Users),
		Contacts:   cloneChoices(l.Contacts),
	}
}

func cloneChoices(in []Choice) []Choice {
	if in == nil {
		return nil
	}
	out := make([]Choice, len(in))
	copy(out, in)
	return out
}

// Aggregate is one denormalized read: an entity plus every lookup its forms need.
type Aggregate struct {
	Kind        EntityKind
	ID          string
	Entity      Record
	Lookups     Lookups
	Attachments []AttachmentRef
	Comments    []Comment
}

// AttachmentRef is an attachment already persisted on the server.
type AttachmentRef struct {
	ID   string `json:"id,omitempty"`
	URL  string `json:"attachment"`
	Name string `json:"file_name,omitempty"`
}

func (a *AttachmentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		a.URL = s
		a.Name = attachmentName(s)
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r := Record(obj)
	a.ID = r.String("id")
	a.URL = firstNonEmpty(r.String("attachment"), r.String("file"), r.String("url"))
	a.Name = firstNonEmpty(r.String("file_name"), r.String("name"), attachmentName(a.URL))
	return nil
}

func attachmentName(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return "attachment"
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return path.Base(ref)
}

// StagedFile is a locally chosen file that has not been uploaded yet.
type StagedFile struct {
	ID          string
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// Comment is one entry of a record's note thread.
type Comment struct {
	ID        string    `json:"id,omitempty"`
	Author    string    `json:"commented_by"`
	Body      string    `json:"comment"`
	Timestamp time.Time `json:"commented_on"`
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r := Record(obj)
	c.ID = r.String("id")
	c.Body = r.String("comment")

	switch by := obj["commented_by"].(type) {
	case string:
		c.Author = by
	case map[string]any:
		c.Author = firstNonEmpty(Record(by).UserLabel(), Record(by).String("email"))
	}

	if on := r.String("commented_on"); on != "" {
		if ts, err := time.Parse(time.RFC3339Nano, on); err == nil {
			c.Timestamp = ts
		}
	}
	return nil
}

// CommentDraft is the unsaved note buffer. RichText wins when both are set.
type CommentDraft struct {
	Text     string
	RichText string
}

// Body returns the authoritative text for submission.
func (d CommentDraft) Body() string {
	if strings.TrimSpace(d.RichText) != "" {
		return d.RichText
	}
	if strings.TrimSpace(d.Text) != "" {
		return d.Text
	}
	return ""
}

func (d CommentDraft) Empty() bool {
	return d.Body() == ""
}

// DrawerWidth is the shell sidebar state.
type DrawerWidth int

const (
	DrawerCollapsed DrawerWidth = iota
	DrawerExpanded
)

func (d DrawerWidth) String() string {
	if d == DrawerExpanded {
		return "expanded"
	}
	return "collapsed"
}

// Columns is the rendered sidebar width in terminal cells.
func (d DrawerWidth) Columns() int {
	if d == DrawerExpanded {
		return 22
	}
	return 6
}

// WorkspaceLayoutState is shared by every screen for the session lifetime.
type WorkspaceLayoutState struct {
	Drawer        DrawerWidth `json:"drawer"`
	ActiveSection string      `json:"active_section"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
