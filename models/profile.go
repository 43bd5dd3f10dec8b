// ABOUTME: User profile wire shape and its flattened edit form
// ABOUTME: The profile read nests user and address fields that the form keeps flat
package models

import (
	"math"
	"strconv"
)

// UserProfile is the GET profile response body.
type UserProfile struct {
	UserObj struct {
		ID          string `json:"id"`
		Phone       string `json:"phone"`
		Role        string `json:"role"`
		UserDetails struct {
			ID        string `json:"id"`
			Email     string `json:"email"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			JobTitle  string `json:"job_title"`
		} `json:"user_details"`
		Address struct {
			AddressLine string `json:"address_line"`
			Street      string `json:"street"`
			City        string `json:"city"`
			State       string `json:"state"`
			Postcode    string `json:"postcode"`
			Country     string `json:"country"`
		} `json:"address"`
	} `json:"user_obj"`
}

// ProfileForm is the flat form buffer sent back on update.
type ProfileForm struct {
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	JobTitle     string `json:"job_title"`
	AddressLine  string `json:"address_line"`
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country"`
	MobileNumber string `json:"mobile_number"`
}

// ID is the profile id used for updates.
func (p UserProfile) ID() string {
	if p.UserObj.ID != "" {
		return p.UserObj.ID
	}
	return p.UserObj.UserDetails.ID
}

// Form flattens the nested profile.
func (p UserProfile) Form() ProfileForm {
	u := p.UserObj
	return ProfileForm{
		Email:        u.UserDetails.Email,
		FirstName:    u.UserDetails.FirstName,
		LastName:     u.UserDetails.LastName,
		JobTitle:     u.UserDetails.JobTitle,
		AddressLine:  u.Address.AddressLine,
		Street:       u.Address.Street,
		City:         u.Address.City,
		State:        u.Address.State,
		Postcode:     u.Address.Postcode,
		Country:      u.Address.Country,
		MobileNumber: u.Phone,
	}
}

// Fields lists form labels and pointers in display order.
func (f *ProfileForm) Fields() []FormField {
	return []FormField{
		{Key: "first_name", Label: "First Name", Value: &f.FirstName},
		{Key: "last_name", Label: "Last Name", Value: &f.LastName},
		{Key: "job_title", Label: "Job Title", Value: &f.JobTitle},
		{Key: "email", Label: "Email", Value: &f.Email},
		{Key: "mobile_number", Label: "Mobile", Value: &f.MobileNumber},
		{Key: "address_line", Label: "Address Line", Value: &f.AddressLine},
		{Key: "street", Label: "Street", Value: &f.Street},
		{Key: "city", Label: "City", Value: &f.City},
		{Key: "state", Label: "State", Value: &f.State},
		{Key: "postcode", Label: "Postcode", Value: &f.Postcode},
		{Key: "country", Label: "Country", Value: &f.Country},
	}
}

// FormField binds a wire key and label to a string in a form buffer.
type FormField struct {
	Key   string
	Label string
	Value *string
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatFileSize renders a byte count as "1.5 KB" style text.
func FormatFileSize(size int64) string {
	if size <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(size)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(size) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// Organization is one org the signed-in user belongs to, with their role in it.
type Organization struct {
	ID   string
	Name string
	Role string
}
