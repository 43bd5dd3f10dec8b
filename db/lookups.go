// ABOUTME: Lookup collections served with every aggregate
// ABOUTME: Status, source, industry, country, tag and team lists with default seeds
package db

import (
	"database/sql"

	"github.com/harperreed/leadopp/models"
)

// Lookup collection names as they appear in aggregate responses.
const (
	LookupStatus     = "status"
	LookupSource     = "source"
	LookupIndustries = "industries"
	LookupCountries  = "countries"
	LookupTags       = "tags"
	LookupTeams      = "teams"
)

// SetLookup replaces a collection.
func SetLookup(db *sql.DB, collection string, choices []models.Choice) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM lookups WHERE collection = ?`, collection); err != nil {
		return err
	}
	for i, c := range choices {
		if _, err := tx.Exec(`
			INSERT INTO lookups (collection, code, label, position) VALUES (?, ?, ?, ?)
		`, collection, c.Code, c.Label, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Lookup returns a collection in its stored order.
func Lookup(db *sql.DB, collection string) ([]models.Choice, error) {
	rows, err := db.Query(`
		SELECT code, label FROM lookups WHERE collection = ? ORDER BY position
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Choice{}
	for rows.Next() {
		var c models.Choice
		if err := rows.Scan(&c.Code, &c.Label); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var defaultLookups = map[string][]models.Choice{
	LookupStatus: {
		{Code: "assigned", Label: "Assigned"},
		{Code: "in process", Label: "In Process"},
		{Code: "converted", Label: "Converted"},
		{Code: "recycled", Label: "Recycled"},
		{Code: "closed", Label: "Closed"},
	},
	LookupSource: {
		{Code: "call", Label: "Call"},
		{Code: "email", Label: "Email"},
		{Code: "existing customer", Label: "Existing Customer"},
		{Code: "partner", Label: "Partner"},
		{Code: "public relations", Label: "Public Relations"},
		{Code: "campaign", Label: "Campaign"},
		{Code: "other", Label: "Other"},
	},
	LookupIndustries: {
		{Code: "ADVERTISING", Label: "ADVERTISING"},
		{Code: "AGRICULTURE", Label: "AGRICULTURE"},
		{Code: "BANKING", Label: "BANKING"},
		{Code: "EDUCATION", Label: "EDUCATION"},
		{Code: "HEALTHCARE", Label: "HEALTHCARE"},
		{Code: "TECHNOLOGY", Label: "TECHNOLOGY"},
	},
	LookupCountries: {
		{Code: "CA", Label: "Canada"},
		{Code: "DE", Label: "Germany"},
		{Code: "GB", Label: "United Kingdom"},
		{Code: "IN", Label: "India"},
		{Code: "US", Label: "United States"},
	},
	LookupTags:  {},
	LookupTeams: {},
}

// SeedLookups fills every empty collection with its defaults.
func SeedLookups(db *sql.DB) error {
	for _, name := range []string{LookupStatus, LookupSource, LookupIndustries, LookupCountries, LookupTags, LookupTeams} {
		existing, err := Lookup(db, name)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		if err := SetLookup(db, name, defaultLookups[name]); err != nil {
			return err
		}
	}
	return nil
}
