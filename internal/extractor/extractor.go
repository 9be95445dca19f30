// Package extractor is the Object Extractor: given a target database
// connection descriptor, obtains the full catalog of user-authored
// programmable objects (SPEC_FULL.md §4.1). Grounded on the teacher's
// service/db_objects.go catalog queries and dbconn/manager.go dialing.
package extractor

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/snapshotengine/dbsync/internal/domain"
)

// Extractor is the per-dialect implementation of the Object Extractor
// operations.
type Extractor interface {
	TestConnection(ctx context.Context, conn domain.ConnectionDescriptor) (ok bool, message string, err error)
	ExtractAll(ctx context.Context, conn domain.ConnectionDescriptor) ([]domain.ProgrammableObject, error)
	ExtractSingle(ctx context.Context, conn domain.ConnectionDescriptor, schema, name string) (*domain.ProgrammableObject, error)
}

// New picks the dialect implementation for conn.Type; it opens no
// connection itself, each operation dials on its own. The extractor MUST
// NOT retry silently on a transport error: every call fails fast and lets
// the orchestrator decide (SPEC_FULL.md §4.1).
func New(conn domain.ConnectionDescriptor) (Extractor, error) {
	switch conn.Type {
	case "mysql":
		return &mysqlExtractor{}, nil
	case "postgres":
		return &postgresExtractor{}, nil
	default:
		return nil, fmt.Errorf("extractor: unsupported database type %q", conn.Type)
	}
}

func dialSQL(driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("extractor: open %s: %w", driverName, err)
	}
	return db, nil
}

func quoteIdentifier(dbType, name string) string {
	switch dbType {
	case "mysql":
		return "`" + name + "`"
	default:
		return `"` + name + `"`
	}
}
