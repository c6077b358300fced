package testutil

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/medflow/medstock/pkg/database"
	"github.com/medflow/medstock/pkg/logger"
)

var (
	// Global test container (shared across all integration tests in a package)
	globalContainer *PostgresContainer
	globalDB        *database.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL.
// The schema is created by the same goose migrations the server runs.
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
	Logger    *logger.Logger
}

// NewIntegrationSuite creates a new integration test suite.
// Call this in TestMain to set up shared test infrastructure.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    if testing.Short() {
//	        os.Exit(m.Run())
//	    }
//	    ctx := context.Background()
//	    var err error
//	    suite, err = testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    testutil.TerminateContainer(ctx)
//	    os.Exit(code)
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	log := logger.NewWithWriter("test", io.Discard)

	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = database.NewWithDSN(globalContainer.DSN, log)
		if containerErr != nil {
			return
		}
		containerErr = globalDB.Migrate(ctx)
	})
	if containerErr != nil {
		return nil, containerErr
	}

	return &IntegrationSuite{
		Container: globalContainer,
		DB:        globalDB,
		Logger:    log,
	}, nil
}

// Reset empties every table so each test starts from a blank store.
func (s *IntegrationSuite) Reset(t *testing.T) {
	t.Helper()

	_, err := s.DB.ExecContext(context.Background(),
		`TRUNCATE transactions, drugs, sessions, settings RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalDB != nil {
		globalDB.Close()
	}
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}

// RequireIntegration skips the test when integration infrastructure is unavailable.
func RequireIntegration(t *testing.T, s *IntegrationSuite) {
	t.Helper()
	SkipIfShort(t)
	if s == nil {
		t.Skip("integration suite not initialised")
	}
}
