// Package detector implements the Change Detector: a pure function over two
// snapshot sets for one target that produces the created/modified/deleted
// set between them (SPEC_FULL.md §4.3).
package detector

import (
	"sort"
	"time"

	"github.com/snapshotengine/dbsync/internal/domain"
	"github.com/snapshotengine/dbsync/internal/repository"
)

// Change is one detected difference, ready to be persisted as a
// repository.DetectedChange once the caller fills in scan-log context.
type Change struct {
	FullName     string
	Kind         string
	ChangeType   domain.ChangeType
	PreviousHash *string
	CurrentHash  *string
}

// Detect compares previous and current snapshot sets keyed by fullName
// (case-insensitive) and returns the Created/Modified/Deleted set.
//
// If previous is empty, Detect returns no changes: a baseline scan
// establishes history, it never emits changes (SPEC_FULL.md §4.3 rule 1).
// Only non-custom snapshots should be passed in — custom objects are
// tracked for visibility but excluded from change notifications; callers
// filter IsCustom out before calling Detect.
func Detect(previous, current []repository.Snapshot) []Change {
	if len(previous) == 0 {
		return nil
	}

	prevByKey := make(map[string]repository.Snapshot, len(previous))
	for _, s := range previous {
		prevByKey[domain.NormalizeKey(s.FullName)] = s
	}
	currByKey := make(map[string]repository.Snapshot, len(current))
	for _, s := range current {
		currByKey[domain.NormalizeKey(s.FullName)] = s
	}

	var changes []Change

	for key, curr := range currByKey {
		prev, existed := prevByKey[key]
		if !existed {
			hash := curr.DefinitionHash
			changes = append(changes, Change{
				FullName:    curr.FullName,
				Kind:        curr.Kind,
				ChangeType:  domain.ChangeCreated,
				CurrentHash: &hash,
			})
			continue
		}
		if prev.DefinitionHash != curr.DefinitionHash {
			prevHash, currHash := prev.DefinitionHash, curr.DefinitionHash
			// Tie-break on case: preserve the first-seen (previous) case.
			changes = append(changes, Change{
				FullName:     prev.FullName,
				Kind:         curr.Kind,
				ChangeType:   domain.ChangeModified,
				PreviousHash: &prevHash,
				CurrentHash:  &currHash,
			})
		}
	}

	for key, prev := range prevByKey {
		if _, stillExists := currByKey[key]; stillExists {
			continue
		}
		hash := prev.DefinitionHash
		changes = append(changes, Change{
			FullName:     prev.FullName,
			Kind:         prev.Kind,
			ChangeType:   domain.ChangeDeleted,
			PreviousHash: &hash,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		return domain.NormalizeKey(changes[i].FullName) < domain.NormalizeKey(changes[j].FullName)
	})

	return changes
}

// ToDetectedChanges stamps scan-log context onto detector output, ready for
// Repository.BulkInsertChanges.
func ToDetectedChanges(scanLogID uint, target domain.Target, changes []Change, now time.Time) []repository.DetectedChange {
	rows := make([]repository.DetectedChange, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, repository.DetectedChange{
			ScanLogID:    scanLogID,
			TenantID:     target.TenantID,
			TenantCode:   target.TenantCode,
			Environment:  string(target.Environment),
			FullName:     c.FullName,
			Kind:         c.Kind,
			ChangeType:   string(c.ChangeType),
			PreviousHash: c.PreviousHash,
			CurrentHash:  c.CurrentHash,
			DetectedAt:   now,
		})
	}
	return rows
}
