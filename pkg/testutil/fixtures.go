package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// ItemFixture represents a row seeded directly into the drugs table
type ItemFixture struct {
	Code     string
	Name     string
	Barcode  string
	Quantity int
	Expiry   *time.Time
	Category string
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

func (f *FixtureFactory) next() int {
	f.sequence++
	return f.sequence
}

// Item returns an ItemFixture with a unique code in the given category
func (f *FixtureFactory) Item(category string, quantity int) ItemFixture {
	n := f.next()
	return ItemFixture{
		Code:     fmt.Sprintf("ITEM-%04d", n),
		Name:     fmt.Sprintf("Test Item %d", n),
		Quantity: quantity,
		Category: category,
	}
}

// SeedItem inserts the fixture bypassing the ledger and returns the new id.
// Use it to set up read-side state; it writes no transaction rows.
func SeedItem(t *testing.T, ctx context.Context, db *sqlx.DB, item ItemFixture) int64 {
	t.Helper()

	var barcode sql.NullString
	if item.Barcode != "" {
		barcode = sql.NullString{String: item.Barcode, Valid: true}
	}

	var id int64
	err := db.QueryRowxContext(ctx,
		`INSERT INTO drugs (drug_code, drug_name, barcode, quantity, expiry_date, category)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		item.Code, item.Name, barcode, item.Quantity, item.Expiry, item.Category,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to seed item %s: %v", item.Code, err)
	}
	return id
}

// SeedPassword stores a bcrypt hash of password under the admin_password key.
func SeedPassword(t *testing.T, ctx context.Context, db *sqlx.DB, password string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ('admin_password', $1)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, string(hash))
	if err != nil {
		t.Fatalf("failed to seed password: %v", err)
	}
}

// Date returns a pointer to midnight UTC on the given day
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}
