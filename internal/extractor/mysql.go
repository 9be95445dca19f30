package extractor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/snapshotengine/dbsync/internal/domain"
)

type mysqlExtractor struct{}

func (e *mysqlExtractor) dsn(conn domain.ConnectionDescriptor) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		conn.Username, conn.Password, conn.Host, conn.Port, conn.Database)
}

func (e *mysqlExtractor) TestConnection(ctx context.Context, conn domain.ConnectionDescriptor) (bool, string, error) {
	db, err := dialSQL("mysql", e.dsn(conn))
	if err != nil {
		return false, "", err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return false, "", fmt.Errorf("extractor(mysql): ping %s: %w", conn.Database, err)
	}

	var version string
	_ = db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	return true, fmt.Sprintf("mysql server=%s database=%s", version, conn.Database), nil
}

func (e *mysqlExtractor) ExtractAll(ctx context.Context, conn domain.ConnectionDescriptor) ([]domain.ProgrammableObject, error) {
	db, err := dialSQL("mysql", e.dsn(conn))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var objects []domain.ProgrammableObject

	routines, err := e.extractRoutines(ctx, db, conn.Database)
	if err != nil {
		return nil, fmt.Errorf("extractor(mysql): routines: %w", err)
	}
	objects = append(objects, routines...)

	views, err := e.extractViews(ctx, db, conn.Database)
	if err != nil {
		return nil, fmt.Errorf("extractor(mysql): views: %w", err)
	}
	objects = append(objects, views...)

	return objects, nil
}

func (e *mysqlExtractor) ExtractSingle(ctx context.Context, conn domain.ConnectionDescriptor, schema, name string) (*domain.ProgrammableObject, error) {
	objects, err := e.ExtractAll(ctx, conn)
	if err != nil {
		return nil, err
	}
	for i := range objects {
		if strings.EqualFold(objects[i].Schema, schema) && strings.EqualFold(objects[i].Name, name) {
			return &objects[i], nil
		}
	}
	return nil, nil
}

func (e *mysqlExtractor) extractRoutines(ctx context.Context, db *sql.DB, dbName string) ([]domain.ProgrammableObject, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ROUTINE_NAME, ROUTINE_SCHEMA, ROUTINE_TYPE, LAST_ALTERED
		FROM information_schema.ROUTINES
		WHERE ROUTINE_SCHEMA = ?`, dbName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type routine struct {
		name, schema, kind string
		lastAltered        time.Time
	}
	var found []routine
	for rows.Next() {
		var r routine
		if err := rows.Scan(&r.name, &r.schema, &r.kind, &r.lastAltered); err != nil {
			continue
		}
		found = append(found, r)
	}

	objects := make([]domain.ProgrammableObject, 0, len(found))
	for _, r := range found {
		kind := domain.KindProcedure
		if strings.EqualFold(r.kind, "FUNCTION") {
			kind = domain.KindScalarFunction
		}
		def, err := e.showCreate(ctx, db, kind, r.name)
		if err != nil {
			// Extraction error for one object must not abort the whole
			// catalog read; the object still surfaces with an empty
			// definition, matching "objects without a textual definition
			// carry an empty string".
			def = ""
		}
		objects = append(objects, domain.ProgrammableObject{
			Schema:              r.schema,
			Name:                r.name,
			Kind:                kind,
			Definition:          def,
			ServerLastModified: r.lastAltered.Unix(),
		})
	}
	return objects, nil
}

func (e *mysqlExtractor) extractViews(ctx context.Context, db *sql.DB, dbName string) ([]domain.ProgrammableObject, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT TABLE_NAME, TABLE_SCHEMA
		FROM information_schema.VIEWS
		WHERE TABLE_SCHEMA = ?`, dbName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type view struct{ name, schema string }
	var found []view
	for rows.Next() {
		var v view
		if err := rows.Scan(&v.name, &v.schema); err != nil {
			continue
		}
		found = append(found, v)
	}

	objects := make([]domain.ProgrammableObject, 0, len(found))
	for _, v := range found {
		def, err := e.showCreateView(ctx, db, v.name)
		if err != nil {
			def = ""
		}
		objects = append(objects, domain.ProgrammableObject{
			Schema:     v.schema,
			Name:       v.name,
			Kind:       domain.KindView,
			Definition: def,
		})
	}
	return objects, nil
}

// showCreate runs SHOW CREATE PROCEDURE/FUNCTION and extracts the CREATE
// statement from MySQL's multi-column result, mirroring the teacher's
// parseMySQLShowCreate.
func (e *mysqlExtractor) showCreate(ctx context.Context, db *sql.DB, kind domain.ObjectKind, name string) (string, error) {
	objType := "PROCEDURE"
	if kind == domain.KindScalarFunction {
		objType = "FUNCTION"
	}
	query := fmt.Sprintf("SHOW CREATE %s %s", objType, quoteIdentifier("mysql", name))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	if !rows.Next() {
		return "", nil
	}
	values := make([]sql.RawBytes, len(cols))
	scanArgs := make([]interface{}, len(cols))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	if err := rows.Scan(scanArgs...); err != nil {
		return "", err
	}

	// "Create Procedure"/"Create Function" is always the 3rd column.
	for i, col := range cols {
		if strings.HasPrefix(strings.ToLower(col), "create "+strings.ToLower(objType)) {
			return string(values[i]), nil
		}
	}
	if len(values) >= 3 {
		return string(values[2]), nil
	}
	return "", nil
}

func (e *mysqlExtractor) showCreateView(ctx context.Context, db *sql.DB, name string) (string, error) {
	rows, err := db.QueryContext(ctx, "SHOW CREATE VIEW "+quoteIdentifier("mysql", name))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	if !rows.Next() {
		return "", nil
	}
	values := make([]sql.RawBytes, len(cols))
	scanArgs := make([]interface{}, len(cols))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	if err := rows.Scan(scanArgs...); err != nil {
		return "", err
	}
	if len(values) >= 2 {
		return string(values[1]), nil
	}
	return "", nil
}
