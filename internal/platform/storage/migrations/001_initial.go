package migrations

import (
	"gorm.io/gorm"
)

// Migration001Initial creates the users, login_records and activity_logs tables.
type Migration001Initial struct{}

func (m *Migration001Initial) Version() string {
	return "001_initial"
}

func (m *Migration001Initial) Description() string {
	return "Create users, login records and activity log tables"
}

func (m *Migration001Initial) Up(db *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email VARCHAR(255) NOT NULL UNIQUE,
			name VARCHAR(255),
			role VARCHAR(32) DEFAULT 'user',
			password_hash TEXT NOT NULL,
			status INTEGER DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS login_records (
			user_id INTEGER PRIMARY KEY,
			session_token VARCHAR(64) NOT NULL,
			login_time_ms INTEGER NOT NULL,
			updated_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS activity_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER,
			agent VARCHAR(128) NOT NULL,
			action VARCHAR(255) NOT NULL,
			details TEXT NOT NULL,
			level VARCHAR(16) NOT NULL DEFAULT 'info',
			metadata JSON,
			created_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_user_id ON activity_logs(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_agent ON activity_logs(agent)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_level ON activity_logs(level)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_created_at ON activity_logs(created_at)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration001Initial) Down(db *gorm.DB) error {
	for _, table := range []string{"activity_logs", "login_records", "users"} {
		if err := db.Exec(`DROP TABLE IF EXISTS ` + table).Error; err != nil {
			return err
		}
	}
	return nil
}
