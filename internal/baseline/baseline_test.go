package baseline

import (
	"errors"
	"testing"

	"github.com/snapshotengine/dbsync/internal/domain"
	"github.com/snapshotengine/dbsync/internal/repository"
)

// fakeRepo is a minimal in-memory stand-in for repository.Repository,
// exercising only the methods the Baseline Manager calls.
type fakeRepo struct {
	repository.Repository
	createErr error
	freezeN   int
	freezeErr error
	deleted   []uint
	created   *repository.Baseline

	baselineObjects []repository.BaselineObject
	liveSnapshots   []repository.Snapshot
}

func (f *fakeRepo) CreateBaseline(b *repository.Baseline) (uint, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	b.ID = 42
	f.created = b
	return 42, nil
}

func (f *fakeRepo) FreezeBaselineFromLatest(baselineID uint, tenantID uint, environment string) (int, error) {
	if f.freezeErr != nil {
		return 0, f.freezeErr
	}
	return f.freezeN, nil
}

func (f *fakeRepo) DeleteBaseline(id uint) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) LoadBaselineWithDefinitions(id uint) (*repository.Baseline, []repository.BaselineObject, map[uint64]string, error) {
	return &repository.Baseline{ID: id}, f.baselineObjects, nil, nil
}

func (f *fakeRepo) LatestSnapshots(tenantID uint, environment string) ([]repository.Snapshot, error) {
	return f.liveSnapshots, nil
}

func TestCreateRollsBackOnEmptySource(t *testing.T) {
	repo := &fakeRepo{freezeN: 0}
	mgr := New(repo)

	_, _, err := mgr.Create(Meta{Name: "v1"}, domain.Target{TenantID: 1, Environment: domain.EnvProduction})
	if !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != 42 {
		t.Errorf("expected rollback delete of baseline 42, got %v", repo.deleted)
	}
}

func TestCreateSucceedsWithObjects(t *testing.T) {
	repo := &fakeRepo{freezeN: 5}
	mgr := New(repo)

	id, count, err := mgr.Create(Meta{Name: "v1"}, domain.Target{TenantID: 1, Environment: domain.EnvProduction})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 || count != 5 {
		t.Errorf("got id=%d count=%d", id, count)
	}
	if len(repo.deleted) != 0 {
		t.Errorf("did not expect a rollback, got %v", repo.deleted)
	}
}

func TestCompareToLiveExcludesCustomObjectsFromLiveTarget(t *testing.T) {
	repo := &fakeRepo{
		baselineObjects: []repository.BaselineObject{
			{ID: 1, FullName: "dbo.A", Schema: "dbo", Name: "A", Kind: "P", DefinitionHash: "h1"},
		},
		liveSnapshots: []repository.Snapshot{
			{ID: 11, FullName: "dbo.A", Schema: "dbo", Name: "A", Kind: "P", DefinitionHash: "h1", IsCustom: false},
			{ID: 12, FullName: "dbo.CustomThing", Schema: "dbo", Name: "CustomThing", Kind: "P", DefinitionHash: "h2", IsCustom: true},
		},
	}
	mgr := New(repo)

	result, err := mgr.CompareToLive(1, domain.Target{TenantID: 1, Environment: domain.EnvProduction}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected the live custom object to be excluded entirely, got %+v", result.Items)
	}
	if result.Items[0].Status != domain.CompareEqual {
		t.Errorf("expected dbo.A to be Equal, got %s", result.Items[0].Status)
	}
	if result.Items[0].FullName == "dbo.CustomThing" {
		t.Errorf("custom object must never surface as OnlyInTarget")
	}
}
