// ABOUTME: Entity kinds served by the CRM API and their routes
// ABOUTME: Maps each kind to its API path, response key, screens and form policy
package models

import "sort"

// EntityKind names a CRM resource collection.
type EntityKind string

const (
	KindLead        EntityKind = "leads"
	KindContact     EntityKind = "contacts"
	KindAccount     EntityKind = "accounts"
	KindCompany     EntityKind = "companies"
	KindCase        EntityKind = "cases"
	KindOpportunity EntityKind = "opportunities"
	KindUser        EntityKind = "users"
)

// KindSpec describes how a kind is fetched, routed and edited.
type KindSpec struct {
	Kind        EntityKind
	Label       string
	ObjectKey   string
	ListRoute   string
	DetailRoute string
	EditRoute   string

	// SingleValued fields hold a list on the server but a single value in
	// the edit form. Only the first element is carried over.
	SingleValued []string

	// CountryField holds a country display name that the edit form wants
	// as a lookup code.
	CountryField string

	// Promoted copies nested values to top-level form fields.
	Promoted map[string]string
}

var kindSpecs = map[EntityKind]KindSpec{
	KindLead: {
		Kind:         KindLead,
		Label:        "Lead",
		ObjectKey:    "lead_obj",
		ListRoute:    "/app/leads",
		DetailRoute:  "/app/leads/lead-details",
		EditRoute:    "/app/leads/edit-lead",
		SingleValued: []string{"contacts", "assigned_to"},
		CountryField: "country",
		Promoted: map[string]string{
			"first_name": "created_by.first_name",
			"last_name":  "created_by.last_name",
		},
	},
	KindContact: {
		Kind:         KindContact,
		Label:        "Contact",
		ObjectKey:    "contact_obj",
		ListRoute:    "/app/contacts",
		DetailRoute:  "/app/contacts/contact-details",
		EditRoute:    "/app/contacts/edit-contact",
		SingleValued: []string{"assigned_to"},
		CountryField: "country",
	},
	KindAccount: {
		Kind:         KindAccount,
		Label:        "Account",
		ObjectKey:    "account_obj",
		ListRoute:    "/app/accounts",
		DetailRoute:  "/app/accounts/account-details",
		EditRoute:    "/app/accounts/edit-account",
		SingleValued: []string{"contacts", "assigned_to"},
		CountryField: "billing_country",
	},
	KindCompany: {
		Kind:         KindCompany,
		Label:        "Company",
		ObjectKey:    "company_obj",
		ListRoute:    "/app/companies",
		DetailRoute:  "/app/companies/company-details",
		EditRoute:    "/app/companies/edit-company",
		CountryField: "country",
	},
	KindCase: {
		Kind:         KindCase,
		Label:        "Case",
		ObjectKey:    "cases_obj",
		ListRoute:    "/app/cases",
		DetailRoute:  "/app/cases/case-details",
		EditRoute:    "/app/cases/edit-case",
		SingleValued: []string{"contacts", "assigned_to"},
	},
	KindOpportunity: {
		Kind:         KindOpportunity,
		Label:        "Opportunity",
		ObjectKey:    "opportunity_obj",
		ListRoute:    "/app/opportunities",
		DetailRoute:  "/app/opportunities/opportunity-details",
		EditRoute:    "/app/opportunities/edit-opportunity",
		SingleValued: []string{"contacts", "assigned_to"},
	},
	KindUser: {
		Kind:         KindUser,
		Label:        "User",
		ObjectKey:    "user_obj",
		ListRoute:    "/app/users",
		DetailRoute:  "/app/users/user-details",
		EditRoute:    "/app/users/edit-user",
		CountryField: "country",
	},
}

// SpecFor returns the spec for kind.
func SpecFor(kind EntityKind) (KindSpec, bool) {
	s, ok := kindSpecs[kind]
	return s, ok
}

// Kinds lists every known kind in a stable order.
func Kinds() []EntityKind {
	out := make([]EntityKind, 0, len(kindSpecs))
	for k := range kindSpecs {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSingleValued reports whether field is flattened to one value on edit.
func (s KindSpec) IsSingleValued(field string) bool {
	for _, f := range s.SingleValued {
		if f == field {
			return true
		}
	}
	return false
}
