package repository_test

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	txdb "github.com/DATA-DOG/go-txdb"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/snapshotengine/dbsync/internal/repository"
)

// Every test wraps a real Postgres connection in a go-txdb transaction that
// rolls back on Close, matching the Central Repository test doubles the
// rest of the pack uses instead of mocking GORM.
func openTestRepo(t *testing.T) repository.Repository {
	t.Helper()
	dsn := os.Getenv("SNAPSHOT_ENGINE_TEST_DSN")
	if dsn == "" {
		t.Skip("SNAPSHOT_ENGINE_TEST_DSN not set, skipping repository integration test")
	}

	driverName := fmt.Sprintf("txdb_repo_%s_%d", t.Name(), gofakeit.Number(1000, 999999))
	txdb.Register(driverName, "postgres", dsn)

	sqlDB, err := sql.Open(driverName, driverName)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	repo := repository.New(db)
	require.NoError(t, repo.EnsureSchema())
	return repo
}

func TestBulkInsertSnapshotsPairsDefinitionsByFullName(t *testing.T) {
	repo := openTestRepo(t)

	logID, err := repo.CreateScanLog(&repository.ScanLog{Status: "Running", Trigger: "Manual"})
	require.NoError(t, err)

	snapshots := []repository.Snapshot{
		{TenantID: 1, Environment: "Production", FullName: "dbo." + gofakeit.Word(), Schema: "dbo", Name: "a", Kind: "P", DefinitionHash: "h1"},
		{TenantID: 1, Environment: "Production", FullName: "dbo." + gofakeit.Word(), Schema: "dbo", Name: "b", Kind: "V", DefinitionHash: "h2"},
	}
	definitions := []string{"CREATE PROCEDURE a AS SELECT 1", "CREATE VIEW b AS SELECT 2"}

	require.NoError(t, repo.BulkInsertSnapshots(logID, snapshots, definitions))

	for i, s := range snapshots {
		def, ok, err := repo.GetSnapshotDefinition(s.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, definitions[i], def)
	}
}

func TestBulkInsertSnapshotsRejectsMismatchedCounts(t *testing.T) {
	repo := openTestRepo(t)
	logID, err := repo.CreateScanLog(&repository.ScanLog{Status: "Running", Trigger: "Manual"})
	require.NoError(t, err)

	err = repo.BulkInsertSnapshots(logID, []repository.Snapshot{{FullName: "dbo.a"}}, nil)
	require.ErrorIs(t, err, repository.ErrInvariantViolation)
}

func TestLatestSnapshotsReturnsMostRecentPerFullName(t *testing.T) {
	repo := openTestRepo(t)
	logID, err := repo.CreateScanLog(&repository.ScanLog{Status: "Running", Trigger: "Manual"})
	require.NoError(t, err)

	fullName := "dbo." + gofakeit.Word()
	now := time.Now()
	older := repository.Snapshot{TenantID: 7, Environment: "Staging", FullName: fullName, Schema: "dbo", Name: "x", Kind: "P", DefinitionHash: "old", SnapshotDate: now.Add(-time.Hour)}
	newer := repository.Snapshot{TenantID: 7, Environment: "Staging", FullName: fullName, Schema: "dbo", Name: "x", Kind: "P", DefinitionHash: "new", SnapshotDate: now}
	require.NoError(t, repo.BulkInsertSnapshots(logID, []repository.Snapshot{older}, []string{"old body"}))
	require.NoError(t, repo.BulkInsertSnapshots(logID, []repository.Snapshot{newer}, []string{"new body"}))

	latest, err := repo.LatestSnapshots(7, "Staging")
	require.NoError(t, err)
	require.Len(t, latest, 1)
	require.Equal(t, "new", latest[0].DefinitionHash)
}

func TestFreezeBaselineFromLatestExcludesCustomObjects(t *testing.T) {
	repo := openTestRepo(t)
	logID, err := repo.CreateScanLog(&repository.ScanLog{Status: "Running", Trigger: "Manual"})
	require.NoError(t, err)

	tracked := repository.Snapshot{TenantID: 9, Environment: "Production", FullName: "dbo.tracked", Schema: "dbo", Name: "tracked", Kind: "P", DefinitionHash: "h1", IsCustom: false}
	custom := repository.Snapshot{TenantID: 9, Environment: "Production", FullName: "dbo.custom", Schema: "dbo", Name: "custom", Kind: "P", DefinitionHash: "h2", IsCustom: true}
	require.NoError(t, repo.BulkInsertSnapshots(logID, []repository.Snapshot{tracked, custom}, []string{"body1", "body2"}))

	id, err := repo.CreateBaseline(&repository.Baseline{Name: gofakeit.UUID(), SourceTenantID: 9, SourceEnvironment: "Production"})
	require.NoError(t, err)

	count, err := repo.FreezeBaselineFromLatest(id, 9, "Production")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	objects, err := repo.ListBaselineObjects(id)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	require.Equal(t, "dbo.tracked", objects[0].FullName)
}

func TestDeleteBaselineCascades(t *testing.T) {
	repo := openTestRepo(t)
	logID, err := repo.CreateScanLog(&repository.ScanLog{Status: "Running", Trigger: "Manual"})
	require.NoError(t, err)

	snapshot := repository.Snapshot{TenantID: 3, Environment: "Development", FullName: "dbo.f", Schema: "dbo", Name: "f", Kind: "FN", DefinitionHash: "h1"}
	require.NoError(t, repo.BulkInsertSnapshots(logID, []repository.Snapshot{snapshot}, []string{"body"}))

	id, err := repo.CreateBaseline(&repository.Baseline{Name: gofakeit.UUID(), SourceTenantID: 3, SourceEnvironment: "Development"})
	require.NoError(t, err)
	_, err = repo.FreezeBaselineFromLatest(id, 3, "Development")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteBaseline(id))

	objects, err := repo.ListBaselineObjects(id)
	require.NoError(t, err)
	require.Empty(t, objects)
}
