package testutil

import (
	"database/sql"
	"testing"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/database"
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The embedded migrations are applied, so the schema matches production.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}
