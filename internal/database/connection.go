package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the shared database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. When DATABASE_URL points
// at a PostgreSQL instance it is used directly; otherwise a local SQLite
// file is created under the data directory.
func Connect() error {
	dsn := os.Getenv("DATABASE_URL")
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		db.SetMaxOpenConns(20)
		DB = db
		return initializeSchema()
	}

	dataDir := "data"
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "remindbot.db")
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	DB = db
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS reminders (
			user_id BIGINT PRIMARY KEY REFERENCES users(user_id),
			capsules INTEGER NOT NULL DEFAULT 1,
			time1 TEXT NOT NULL,
			time2 TEXT,
			timezone TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create reminders table: %w", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS user_analytics (
			user_id BIGINT PRIMARY KEY REFERENCES users(user_id),
			first_interaction TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_interaction TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			interaction_count INTEGER NOT NULL DEFAULT 0,
			reminder_setups INTEGER NOT NULL DEFAULT 0,
			reminder_changes INTEGER NOT NULL DEFAULT 0,
			timezone TEXT,
			preferred_capsules INTEGER,
			preferred_times TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create user_analytics table: %w", err)
	}

	return nil
}
