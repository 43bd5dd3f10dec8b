// ABOUTME: User, organization and token operations for the stub API
// ABOUTME: Passwords are bcrypt hashed; tokens are opaque random ids
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is one account with its profile fields.
type User struct {
	ID          string
	Email       string
	FirstName   string
	LastName    string
	JobTitle    string
	Phone       string
	AddressLine string
	Street      string
	City        string
	State       string
	Postcode    string
	Country     string
	CreatedAt   time.Time
}

// Membership is a user's role in one org.
type Membership struct {
	OrgID   string
	OrgName string
	Role    string
}

const userColumns = `id, email, first_name, last_name, job_title, phone,
	address_line, street, city, state, postcode, country, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.JobTitle, &u.Phone,
		&u.AddressLine, &u.Street, &u.City, &u.State, &u.Postcode, &u.Country, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// CreateUser registers email. An empty password makes a Google-only account.
func CreateUser(db *sql.DB, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("email is required")
	}
	if _, err := GetUserByEmail(db, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var hash sql.NullString
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = sql.NullString{String: string(h), Valid: true}
	}

	u := &User{ID: uuid.New().String(), Email: email, CreatedAt: time.Now().UTC()}
	_, err := db.Exec(`
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Email, hash, u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func GetUser(db *sql.DB, id string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))))
}

// Authenticate checks a password login.
func Authenticate(db *sql.DB, email, password string) (*User, error) {
	var hash sql.NullString
	err := db.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))).Scan(&hash)
	if err == sql.ErrNoRows || (err == nil && !hash.Valid) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return GetUserByEmail(db, email)
}

// UpdateUser writes the profile fields of u.
func UpdateUser(db *sql.DB, u *User) error {
	res, err := db.Exec(`
		UPDATE users
		SET email = ?, first_name = ?, last_name = ?, job_title = ?, phone = ?,
			address_line = ?, street = ?, city = ?, state = ?, postcode = ?, country = ?
		WHERE id = ?
	`, strings.ToLower(strings.TrimSpace(u.Email)), u.FirstName, u.LastName, u.JobTitle, u.Phone,
		u.AddressLine, u.Street, u.City, u.State, u.Postcode, u.Country, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func CountUsers(db *sql.DB) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// ListUsers returns every user ordered by email.
func ListUsers(db *sql.DB) ([]User, error) {
	rows, err := db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// IssueToken creates a new access token for userID.
func IssueToken(db *sql.DB, userID string) (string, error) {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	_, err := db.Exec(`INSERT INTO tokens (token, user_id, created_at) VALUES (?, ?, ?)`, token, userID, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return token, nil
}

// UserForToken resolves an access token. A "Bearer " prefix is accepted.
func UserForToken(db *sql.DB, token string) (*User, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, ErrNotFound
	}
	var userID string
	err := db.QueryRow(`SELECT user_id FROM tokens WHERE token = ?`, token).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return GetUser(db, userID)
}

// CreateOrg adds an organization.
func CreateOrg(db *sql.DB, name string) (string, error) {
	id := uuid.New().String()
	_, err := db.Exec(`INSERT INTO orgs (id, name) VALUES (?, ?)`, id, name)
	return id, err
}

// AddMember sets userID's role in orgID.
func AddMember(db *sql.DB, userID, orgID, role string) error {
	_, err := db.Exec(`
		INSERT INTO memberships (user_id, org_id, role) VALUES (?, ?, ?)
		ON CONFLICT(user_id, org_id) DO UPDATE SET role = excluded.role
	`, userID, orgID, role)
	return err
}

// Memberships lists the orgs userID belongs to.
func Memberships(db *sql.DB, userID string) ([]Membership, error) {
	rows, err := db.Query(`
		SELECT o.id, o.name, m.role
		FROM memberships m JOIN orgs o ON o.id = m.org_id
		WHERE m.user_id = ?
		ORDER BY o.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.OrgID, &m.OrgName, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RoleIn returns userID's role in orgID, or ErrNotFound.
func RoleIn(db *sql.DB, userID, orgID string) (string, error) {
	var role string
	err := db.QueryRow(`SELECT role FROM memberships WHERE user_id = ? AND org_id = ?`, userID, orgID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return role, err
}

// FirstOrg returns the oldest organization, or ErrNotFound.
func FirstOrg(db *sql.DB) (string, error) {
	var id string
	err := db.QueryRow(`SELECT id FROM orgs ORDER BY rowid LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return id, err
}

// Member is a user together with their role in one org.
type Member struct {
	User
	Role string
}

// OrgMembers lists the users of orgID ordered by email.
func OrgMembers(db *sql.DB, orgID string) ([]Member, error) {
	rows, err := db.Query(`
		SELECT u.id, u.email, u.first_name, u.last_name, u.job_title, u.phone,
			u.address_line, u.street, u.city, u.state, u.postcode, u.country, u.created_at, m.role
		FROM users u JOIN memberships m ON m.user_id = u.id
		WHERE m.org_id = ?
		ORDER BY u.email
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		u := &m.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.JobTitle, &u.Phone,
			&u.AddressLine, &u.Street, &u.City, &u.State, &u.Postcode, &u.Country, &u.CreatedAt, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
