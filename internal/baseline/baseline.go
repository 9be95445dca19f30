// Package baseline is the Baseline Manager: freezes the latest snapshots of
// a chosen target as an immutable named version and compares against it
// (SPEC_FULL.md §4.6).
package baseline

import (
	"fmt"
	"strings"

	"github.com/snapshotengine/dbsync/internal/comparator"
	"github.com/snapshotengine/dbsync/internal/domain"
	"github.com/snapshotengine/dbsync/internal/repository"
)

// ErrEmptySource is returned when a target has no snapshots to freeze yet.
var ErrEmptySource = fmt.Errorf("baseline: no snapshots for this target; run a scan first")

// Meta describes a baseline to create; CreatedAt is stamped by the
// repository.
type Meta struct {
	Name        string
	Description *string
	CreatedBy   *string
}

// Manager wraps the repository with the Baseline Manager's operations.
type Manager struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Manager {
	return &Manager{repo: repo}
}

// Create inserts the Baseline row, freezes the target's current non-custom
// latest snapshots into it, and updates totalObjects. If the freeze yields
// zero objects, the just-created Baseline is rolled back and ErrEmptySource
// is returned, per SPEC_FULL.md §4.6 step 2.
func (m *Manager) Create(meta Meta, target domain.Target) (uint, int, error) {
	b := &repository.Baseline{
		Name:              meta.Name,
		Description:       meta.Description,
		SourceTenantID:    target.TenantID,
		SourceTenantCode:  target.TenantCode,
		SourceEnvironment: string(target.Environment),
		CreatedBy:         meta.CreatedBy,
	}
	id, err := m.repo.CreateBaseline(b)
	if err != nil {
		return 0, 0, fmt.Errorf("baseline: create %q: %w", meta.Name, err)
	}

	count, err := m.repo.FreezeBaselineFromLatest(id, target.TenantID, string(target.Environment))
	if err != nil {
		return 0, 0, fmt.Errorf("baseline: freeze %q: %w", meta.Name, err)
	}
	if count == 0 {
		_ = m.repo.DeleteBaseline(id)
		return 0, 0, ErrEmptySource
	}

	return id, count, nil
}

func (m *Manager) List() ([]repository.Baseline, error) {
	return m.repo.ListBaselines()
}

func (m *Manager) Get(id uint) (*repository.Baseline, error) {
	return m.repo.GetBaseline(id)
}

// Delete cascades to BaselineObjects and BaselineObjectDefinitions. Content
// is never mutated in place after creation — the only mutating operation
// exposed on a baseline is whole-object deletion.
func (m *Manager) Delete(id uint) error {
	return m.repo.DeleteBaseline(id)
}

func (m *Manager) Objects(id uint) ([]repository.BaselineObject, error) {
	return m.repo.ListBaselineObjects(id)
}

// CompareToLive compares a frozen baseline against a target's current
// latest snapshots via Comparator.CompareDictionaries, so the comparison
// algorithm itself never forks between "two live targets" and
// "baseline vs live".
func (m *Manager) CompareToLive(baselineID uint, target domain.Target, kindFilter string) (comparator.Result, error) {
	_, objects, _, err := m.repo.LoadBaselineWithDefinitions(baselineID)
	if err != nil {
		return comparator.Result{}, fmt.Errorf("baseline: load %d: %w", baselineID, err)
	}
	sourceMap := make(map[string]comparator.DictEntry, len(objects))
	for _, o := range objects {
		sourceMap[domain.NormalizeKey(o.FullName)] = comparator.DictEntry{
			FullName:       o.FullName,
			Kind:           o.Kind,
			DefinitionHash: o.DefinitionHash,
			ID:             o.ID,
		}
	}

	live, err := m.repo.LatestSnapshots(target.TenantID, string(target.Environment))
	if err != nil {
		return comparator.Result{}, fmt.Errorf("baseline: load live snapshots: %w", err)
	}
	targetMap := make(map[string]comparator.DictEntry, len(live))
	customSet := make(map[string]bool)
	for _, s := range live {
		key := domain.NormalizeKey(s.FullName)
		if s.IsCustom {
			customSet[key] = true
			continue
		}
		targetMap[key] = comparator.DictEntry{
			FullName:       s.FullName,
			Kind:           s.Kind,
			DefinitionHash: s.DefinitionHash,
			ID:             s.ID,
		}
	}

	return comparator.CompareDictionaries(sourceMap, targetMap, customSet, strings.TrimSpace(kindFilter)), nil
}
