package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"networth/internal/models"
	"networth/internal/networth"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// ErrEmailTaken is returned when a signup collides with an existing email.
// The users.email UNIQUE constraint is the source of truth, so two
// concurrent signups cannot both succeed.
var ErrEmailTaken = errors.New("email already registered")

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS calculations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			assets TEXT NOT NULL,
			liabilities TEXT NOT NULL,
			total_assets REAL NOT NULL,
			total_liabilities REAL NOT NULL,
			net_worth REAL NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calculations_user_created
			ON calculations (user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateUser creates a new user with the given name, email and password hash.
func (db *DB) CreateUser(name, email, passwordHash string) (*models.User, error) {
	result, err := db.conn.Exec(
		"INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)",
		name, email, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(id)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email")
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id int64) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?",
		id,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email. Lookup is case-sensitive.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?",
		email,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateCalculation persists a net worth snapshot for owner. The creation
// timestamp is assigned here, and the stored totals are exactly the ones
// passed in.
func (db *DB) CreateCalculation(owner *models.User, assets, liabilities map[string]float64, res networth.Result) (*models.Calculation, error) {
	assetsJSON, err := json.Marshal(assets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode assets: %w", err)
	}
	liabilitiesJSON, err := json.Marshal(liabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to encode liabilities: %w", err)
	}

	createdAt := time.Now().UTC()
	result, err := db.conn.Exec(
		`INSERT INTO calculations
			(user_id, assets, liabilities, total_assets, total_liabilities, net_worth, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		owner.ID, string(assetsJSON), string(liabilitiesJSON),
		res.TotalAssets, res.TotalLiabilities, res.NetWorth, createdAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Calculation{
		ID:               id,
		UserID:           owner.ID,
		Assets:           assets,
		Liabilities:      liabilities,
		TotalAssets:      res.TotalAssets,
		TotalLiabilities: res.TotalLiabilities,
		NetWorth:         res.NetWorth,
		CreatedAt:        createdAt,
	}, nil
}

// ListCalculations retrieves owner's calculations, newest first. Equal
// timestamps keep insertion order. A user with no history gets an empty
// slice, not an error. Taking the owner record rather than a bare id keeps
// client input out of the history query.
func (db *DB) ListCalculations(owner *models.User) ([]models.Calculation, error) {
	rows, err := db.conn.Query(
		`SELECT id, user_id, assets, liabilities, total_assets, total_liabilities, net_worth, created_at
		FROM calculations WHERE user_id = ? ORDER BY created_at DESC, id ASC`,
		owner.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calculations := []models.Calculation{}
	for rows.Next() {
		var c models.Calculation
		var assetsJSON, liabilitiesJSON string
		if err := rows.Scan(&c.ID, &c.UserID, &assetsJSON, &liabilitiesJSON,
			&c.TotalAssets, &c.TotalLiabilities, &c.NetWorth, &c.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(assetsJSON), &c.Assets); err != nil {
			return nil, fmt.Errorf("failed to decode assets for calculation %d: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(liabilitiesJSON), &c.Liabilities); err != nil {
			return nil, fmt.Errorf("failed to decode liabilities for calculation %d: %w", c.ID, err)
		}
		calculations = append(calculations, c)
	}

	return calculations, rows.Err()
}
