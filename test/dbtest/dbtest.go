// Package dbtest provides a shared-container, per-test-schema Postgres
// harness for store integration tests, adapted from the teacher's
// test/util.SetupTestDatabase: same shared-testcontainer-once +
// unique-schema-per-test isolation strategy, retargeted from an
// ent-migrated database to golang-migrate's embedded SQL migrations
// behind *store.Postgres.
package dbtest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/swarmrouter/core/pkg/store"
)

var (
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// NewTestStore opens a *store.Postgres against a uniquely-schemaed
// connection to the shared test database, running this module's
// migrations in that schema, and cleaning the schema up on test
// completion.
func NewTestStore(t *testing.T) *store.Postgres {
	t.Helper()
	ctx := context.Background()

	connStr := getOrCreateSharedDatabase(t)
	schemaName := generateSchemaName(t)
	createSchema(t, connStr, schemaName)

	st, err := store.Open(ctx, addSearchPath(connStr, schemaName))
	require.NoError(t, err)

	t.Cleanup(func() {
		st.Close()
		dropSchema(t, connStr, schemaName)
	})

	return st
}

func getOrCreateSharedDatabase(t *testing.T) string {
	t.Helper()

	if ci := os.Getenv("CI_DATABASE_URL"); ci != "" {
		t.Log("using external PostgreSQL from CI_DATABASE_URL")
		return ci
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		t.Log("starting shared PostgreSQL testcontainer")

		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("starting postgres container: %w", err)
			return
		}

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = fmt.Errorf("getting connection string: %w", err)
			return
		}
		sharedConnStr = connStr
	})

	require.NoError(t, containerErr, "failed to set up shared test container")
	return sharedConnStr
}

// generateSchemaName mirrors the teacher's sanitize-name-plus-random-hex
// convention, keeping well under PostgreSQL's 63-char identifier limit.
func generateSchemaName(t *testing.T) string {
	t.Helper()
	name := strings.ToLower(t.Name())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}

	randomBytes := make([]byte, 4)
	_, err := rand.Read(randomBytes)
	require.NoError(t, err)

	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(randomBytes))
}

func addSearchPath(connStr, schema string) string {
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%ssearch_path=%s,public", connStr, sep, schema)
}

// createSchema issues CREATE SCHEMA on a short-lived admin connection before
// golang-migrate runs; migrations assume the schema named by search_path
// already exists.
func createSchema(t *testing.T, connStr, schema string) {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err, "dbtest: connecting to create schema %s", schema)
	defer pool.Close()

	_, err = pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	require.NoError(t, err, "dbtest: creating schema %s", schema)
}

func dropSchema(t *testing.T, connStr, schema string) {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Logf("dbtest: could not connect to drop schema %s: %v", schema, err)
		return
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema)); err != nil {
		t.Logf("dbtest: failed to drop schema %s: %v", schema, err)
	}
}
