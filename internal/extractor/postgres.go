package extractor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/snapshotengine/dbsync/internal/domain"
)

type postgresExtractor struct{}

func (e *postgresExtractor) dsn(conn domain.ConnectionDescriptor) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		conn.Host, conn.Username, conn.Password, conn.Database, conn.Port)
}

func (e *postgresExtractor) TestConnection(ctx context.Context, conn domain.ConnectionDescriptor) (bool, string, error) {
	db, err := dialSQL("postgres", e.dsn(conn))
	if err != nil {
		return false, "", err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return false, "", fmt.Errorf("extractor(postgres): ping %s: %w", conn.Database, err)
	}

	var version string
	_ = db.QueryRowContext(ctx, "SELECT version()").Scan(&version)
	return true, fmt.Sprintf("postgres server=%s database=%s", version, conn.Database), nil
}

func (e *postgresExtractor) ExtractAll(ctx context.Context, conn domain.ConnectionDescriptor) ([]domain.ProgrammableObject, error) {
	db, err := dialSQL("postgres", e.dsn(conn))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var objects []domain.ProgrammableObject

	routines, err := e.extractRoutines(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("extractor(postgres): routines: %w", err)
	}
	objects = append(objects, routines...)

	views, err := e.extractViews(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("extractor(postgres): views: %w", err)
	}
	objects = append(objects, views...)

	return objects, nil
}

func (e *postgresExtractor) ExtractSingle(ctx context.Context, conn domain.ConnectionDescriptor, schema, name string) (*domain.ProgrammableObject, error) {
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

// extractRoutines reads pg_proc, classifying each entry into Procedure,
// ScalarFunction, TableFunction or InlineFunction. prokind distinguishes
// procedures from functions (PG11+); proretset distinguishes set-returning
// (table) functions from scalar ones. A set-returning SQL-language function
// whose body is a single SELECT is treated as an inline (view-like) table
// function rather than a general table function.
func (e *postgresExtractor) extractRoutines(ctx context.Context, db *sql.DB) ([]domain.ProgrammableObject, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT n.nspname, p.proname, p.prokind, p.proretset, l.lanname, p.prosrc
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		JOIN pg_language l ON l.oid = p.prolang
		WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objects []domain.ProgrammableObject
	for rows.Next() {
		var schema, name, prokind, lang, src string
		var retset bool
		if err := rows.Scan(&schema, &name, &prokind, &retset, &lang, &src); err != nil {
			continue
		}

		kind := domain.KindScalarFunction
		switch {
		case prokind == "p":
			kind = domain.KindProcedure
		case retset && strings.EqualFold(lang, "sql") && isSingleSelect(src):
			kind = domain.KindInlineFunction
		case retset:
			kind = domain.KindTableFunction
		}

		def, err := e.functionDefinition(ctx, db, schema, name)
		if err != nil {
			def = ""
		}
		objects = append(objects, domain.ProgrammableObject{
			Schema:     schema,
			Name:       name,
			Kind:       kind,
			Definition: def,
		})
	}
	return objects, nil
}

func (e *postgresExtractor) extractViews(ctx context.Context, db *sql.DB) ([]domain.ProgrammableObject, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT schemaname, viewname, definition
		FROM pg_views
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objects []domain.ProgrammableObject
	for rows.Next() {
		var schema, name, def string
		if err := rows.Scan(&schema, &name, &def); err != nil {
			continue
		}
		objects = append(objects, domain.ProgrammableObject{
			Schema:     schema,
			Name:       name,
			Kind:       domain.KindView,
			Definition: def,
		})
	}
	return objects, nil
}

func (e *postgresExtractor) functionDefinition(ctx context.Context, db *sql.DB, schema, name string) (string, error) {
	var def string
	err := db.QueryRowContext(ctx, `
		SELECT pg_get_functiondef(p.oid)
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = $1 AND p.proname = $2
		LIMIT 1`, schema, name).Scan(&def)
	if err != nil {
		return "", err
	}
	return def, nil
}

// isSingleSelect is a light heuristic, not a SQL parser: it treats a body
// as "inline" when it has exactly one top-level statement starting with
// SELECT. No component in this system needs a real SQL parser beyond this.
func isSingleSelect(src string) bool {
	trimmed := strings.TrimSpace(src)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if strings.Contains(trimmed, ";") {
		return false
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(trimmed)), "SELECT")
}
