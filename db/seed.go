// ABOUTME: Demo data for a fresh stub database
// ABOUTME: Creates an admin account, an org and a few records of each kind
package db

import (
	"database/sql"
	"fmt"
)

// DemoAccount is the seeded admin login.
const (
	DemoEmail    = "admin@example.com"
	DemoPassword = "admin"
)

// SeedDemo populates an empty database and returns the org id. It does
// nothing when users already exist.
func SeedDemo(db *sql.DB) (string, error) {
	if err := SeedLookups(db); err != nil {
		return "", fmt.Errorf("seed lookups: %w", err)
	}
	n, err := CountUsers(db)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", nil
	}

	admin, err := CreateUser(db, DemoEmail, DemoPassword)
	if err != nil {
		return "", fmt.Errorf("seed admin: %w", err)
	}
	admin.FirstName, admin.LastName, admin.JobTitle = "Ada", "Admin", "Sales Lead"
	admin.City, admin.Country = "Springfield", "US"
	if err := UpdateUser(db, admin); err != nil {
		return "", err
	}

	orgID, err := CreateOrg(db, "Demo Org")
	if err != nil {
		return "", err
	}
	if err := AddMember(db, admin.ID, orgID, "ADMIN"); err != nil {
		return "", err
	}

	assignee := map[string]any{
		"id":           admin.ID,
		"user_details": map[string]any{"email": admin.Email, "first_name": admin.FirstName, "last_name": admin.LastName},
	}
	seeds := []struct {
		kind string
		data map[string]any
	}{
		{"contacts", map[string]any{"first_name": "Grace", "last_name": "Hopper", "primary_email": "grace@example.com", "country": "United States"}},
		{"leads", map[string]any{"title": "Navy compiler rollout", "status": "assigned", "source": "call", "tags": []any{"vip"}, "country": "United States",
			"assigned_to": []any{assignee}, "created_by": map[string]any{"first_name": "Ada", "last_name": "Admin"}}},
		{"accounts", map[string]any{"name": "Analytical Engines", "billing_country": "United Kingdom", "assigned_to": []any{assignee}}},
		{"companies", map[string]any{"name": "Difference Co", "industry": "TECHNOLOGY", "country": "Germany"}},
		{"cases", map[string]any{"name": "Punch card jam", "status": "New", "priority": "High"}},
		{"opportunities", map[string]any{"name": "Mainframe renewal", "stage": "PROSPECTING", "amount": 12000}},
	}
	for _, s := range seeds {
		if _, err := CreateRecord(db, orgID, s.kind, s.data); err != nil {
			return "", fmt.Errorf("seed %s: %w", s.kind, err)
		}
	}
	return orgID, nil
}
