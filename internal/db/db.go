// Package db opens the backing database and applies the schema. SQLite is
// the default engine; Postgres is supported for shared deployments.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open connects to the configured database and applies the schema.
// For SQLite the parent directory is created if missing.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := Init(conn, driver); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Init creates the tables if missing. Statements are written portably;
// only the id column type differs between engines.
func Init(conn *sql.DB, driver string) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == DriverPostgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS patients (
		id         %[1]s,
		name       TEXT NOT NULL,
		age        INTEGER NOT NULL DEFAULT 0,
		symptoms   TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS doctors (
		id            %[1]s,
		name          TEXT NOT NULL,
		specialty     TEXT NOT NULL DEFAULT '',
		max_patients  INTEGER NOT NULL DEFAULT 5,
		pushover_user TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id             %[1]s,
		patient_id     INTEGER NOT NULL REFERENCES patients(id),
		doctor_id      INTEGER REFERENCES doctors(id),
		status         TEXT NOT NULL DEFAULT 'created',
		urgency        TEXT NOT NULL DEFAULT 'normal',
		priority_score INTEGER NOT NULL DEFAULT 50,
		created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_doctor ON tickets(doctor_id);
	CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);

	CREATE TABLE IF NOT EXISTS agent_logs (
		id                %[1]s,
		ticket_id         INTEGER NOT NULL REFERENCES tickets(id),
		agent_name        TEXT NOT NULL DEFAULT '',
		stage             TEXT NOT NULL DEFAULT '',
		structured_output TEXT NOT NULL DEFAULT '',
		raw_message       TEXT NOT NULL DEFAULT '',
		created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_agent_logs_ticket ON agent_logs(ticket_id);
	`, pk)

	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
