package sqlite

import (
	"fmt"
	"net/url"
	"testing"
)

// setupTestDB creates a named shared in-memory database. The name comes from
// t.Name() so parallel tests stay isolated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", url.PathEscape(t.Name()))
	db, err := open(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertSettings(t *testing.T, db *DB, userID, serviceName, accessToken, expiresAt, integrations string) {
	t.Helper()
	const query = `INSERT INTO settings (user_id, service_name, access_token, expires_at, integrations) VALUES (?, ?, ?, ?, ?)`
	if _, err := db.Writer.Exec(query, userID, serviceName, accessToken, expiresAt, integrations); err != nil {
		t.Fatalf("insert settings: %v", err)
	}
}
