// Package repository is the Central Repository: durable storage and
// retrieval for ScanLogs, Snapshots, Changes and Baselines. It is the sole
// owner of the persisted analytical schema described in SPEC_FULL.md §6.1.
package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/snapshotengine/dbsync/internal/domain"
	"gorm.io/gorm"
)

// ErrInvariantViolation is returned when a caller breaks a documented
// contract (e.g. mismatched snapshot/definition counts) rather than a
// transient storage failure.
var ErrInvariantViolation = errors.New("repository: invariant violation")

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("repository: not found")

// Repository is the Central Repository's API surface, grounded on
// SPEC_FULL.md §4.2.
type Repository interface {
	EnsureSchema() error

	CreateScanLog(log *ScanLog) (uint, error)
	UpdateScanLog(log *ScanLog) error
	GetScanLog(id uint) (*ScanLog, error)
	ListRecentScanLogs(limit int) ([]ScanLog, error)

	CreateScanEntry(entry *ScanEntry) (uint64, error)
	UpdateScanEntry(entry *ScanEntry) error
	ListScanEntries(scanLogID uint) ([]ScanEntry, error)

	BulkInsertSnapshots(scanLogID uint, snapshots []Snapshot, definitions []string) error
	LatestSnapshots(tenantID uint, environment string) ([]Snapshot, error)
	GetSnapshotDefinition(snapshotID uint64) (string, bool, error)

	BulkInsertChanges(changes []DetectedChange) error
	PendingNotifications() ([]DetectedChange, error)
	MarkNotificationSent(ids []uint64) error

	CreateBaseline(b *Baseline) (uint, error)
	FreezeBaselineFromLatest(baselineID uint, tenantID uint, environment string) (int, error)
	ListBaselines() ([]Baseline, error)
	GetBaseline(id uint) (*Baseline, error)
	DeleteBaseline(id uint) error
	ListBaselineObjects(baselineID uint) ([]BaselineObject, error)
	GetBaselineObjectDefinition(objectID uint64) (string, bool, error)
	LoadBaselineWithDefinitions(id uint) (*Baseline, []BaselineObject, map[uint64]string, error)
}

// gormRepository is the GORM-backed implementation, following the teacher's
// database.InitDatabase / AutoMigrate pattern but against the analytical
// schema instead of the tenancy schema.
type gormRepository struct {
	db *gorm.DB
}

// New wraps an already-opened *gorm.DB as a Repository.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) EnsureSchema() error {
	return r.db.AutoMigrate(AllModels()...)
}

func (r *gormRepository) CreateScanLog(log *ScanLog) (uint, error) {
	if err := r.db.Create(log).Error; err != nil {
		return 0, fmt.Errorf("create scan log: %w", err)
	}
	return log.ID, nil
}

func (r *gormRepository) UpdateScanLog(log *ScanLog) error {
	if err := r.db.Save(log).Error; err != nil {
		return fmt.Errorf("update scan log %d: %w", log.ID, err)
	}
	return nil
}

func (r *gormRepository) GetScanLog(id uint) (*ScanLog, error) {
	var log ScanLog
	if err := r.db.First(&log, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get scan log %d: %w", id, err)
	}
	return &log, nil
}

func (r *gormRepository) ListRecentScanLogs(limit int) ([]ScanLog, error) {
	var logs []ScanLog
	if err := r.db.Order("started_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list recent scan logs: %w", err)
	}
	return logs, nil
}

func (r *gormRepository) CreateScanEntry(entry *ScanEntry) (uint64, error) {
	if err := r.db.Create(entry).Error; err != nil {
		return 0, fmt.Errorf("create scan entry: %w", err)
	}
	return entry.ID, nil
}

func (r *gormRepository) UpdateScanEntry(entry *ScanEntry) error {
	if err := r.db.Save(entry).Error; err != nil {
		return fmt.Errorf("update scan entry %d: %w", entry.ID, err)
	}
	return nil
}

func (r *gormRepository) ListScanEntries(scanLogID uint) ([]ScanEntry, error) {
	var entries []ScanEntry
	if err := r.db.Where("scan_log_id = ?", scanLogID).Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list scan entries for scan log %d: %w", scanLogID, err)
	}
	return entries, nil
}

// BulkInsertSnapshots inserts the snapshot rows in batches inside one
// transaction, then pairs each definition with the id GORM filled into its
// snapshot (matched by fullName); it does not re-query the table. Counts
// must agree: a mismatch is an invariant violation, not a retryable storage
// error.
func (r *gormRepository) BulkInsertSnapshots(scanLogID uint, snapshots []Snapshot, definitions []string) error {
	if len(snapshots) != len(definitions) {
		return fmt.Errorf("%w: %d snapshots but %d definitions", ErrInvariantViolation, len(snapshots), len(definitions))
	}
	if len(snapshots) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range snapshots {
			snapshots[i].ScanLogID = scanLogID
		}
		if err := tx.CreateInBatches(&snapshots, 200).Error; err != nil {
			return fmt.Errorf("bulk insert snapshots: %w", err)
		}

		// Pair by fullName (case-insensitive): every snapshot we just
		// inserted carries its own ID after CreateInBatches fills
		// auto-increment fields in place, so no re-query is needed on
		// GORM backends that report generated keys in insertion order.
		defByKey := make(map[string]string, len(snapshots))
		for i, s := range snapshots {
			defByKey[domain.NormalizeKey(s.FullName)] = definitions[i]
		}

		defRows := make([]SnapshotDefinition, 0, len(snapshots))
		for _, s := range snapshots {
			def, ok := defByKey[domain.NormalizeKey(s.FullName)]
			if !ok {
				// Orphan: fullName not found post-insert. The scanner
				// always calls this inside one target's atomic window,
				// so this should be unreachable; skip rather than fail
				// the whole batch.
				continue
			}
			defRows = append(defRows, SnapshotDefinition{SnapshotID: s.ID, Definition: def})
		}
		if len(defRows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&defRows, 200).Error; err != nil {
			return fmt.Errorf("bulk insert snapshot definitions: %w", err)
		}
		return nil
	})
}

// LatestSnapshots returns, for each fullName, the Snapshot with the greatest
// snapshotDate — the "LatestSnapshots" derived view of SPEC_FULL.md §6.1,
// realized as a query helper rather than a scan of the whole table.
func (r *gormRepository) LatestSnapshots(tenantID uint, environment string) ([]Snapshot, error) {
	var snapshots []Snapshot
	err := r.db.Raw(`
		SELECT s.* FROM object_snapshots s
		INNER JOIN (
			SELECT LOWER(full_name) AS lower_name, MAX(snapshot_date) AS max_date
			FROM object_snapshots
			WHERE tenant_id = ? AND environment = ?
			GROUP BY LOWER(full_name)
		) latest ON LOWER(s.full_name) = latest.lower_name AND s.snapshot_date = latest.max_date
		WHERE s.tenant_id = ? AND s.environment = ?
	`, tenantID, environment, tenantID, environment).Scan(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("latest snapshots for tenant %d/%s: %w", tenantID, environment, err)
	}
	return snapshots, nil
}

func (r *gormRepository) GetSnapshotDefinition(snapshotID uint64) (string, bool, error) {
	var def SnapshotDefinition
	err := r.db.Where("snapshot_id = ?", snapshotID).First(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get snapshot definition %d: %w", snapshotID, err)
	}
	return def.Definition, true, nil
}

func (r *gormRepository) BulkInsertChanges(changes []DetectedChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(&changes, 200).Error; err != nil {
		return fmt.Errorf("bulk insert detected changes: %w", err)
	}
	return nil
}

func (r *gormRepository) PendingNotifications() ([]DetectedChange, error) {
	var changes []DetectedChange
	if err := r.db.Where("notification_sent = ?", false).Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return changes, nil
}

// MarkNotificationSent batches updates in groups of at most 1000 ids, per
// SPEC_FULL.md §4.2.
func (r *gormRepository) MarkNotificationSent(ids []uint64) error {
	const batchSize = 1000
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		if err := r.db.Model(&DetectedChange{}).Where("id IN ?", batch).
			Update("notification_sent", true).Error; err != nil {
			return fmt.Errorf("mark notification sent (batch of %d): %w", len(batch), err)
		}
	}
	return nil
}

func (r *gormRepository) CreateBaseline(b *Baseline) (uint, error) {
	b.CreatedAt = time.Now()
	if err := r.db.Create(b).Error; err != nil {
		return 0, fmt.Errorf("create baseline %q: %w", b.Name, err)
	}
	return b.ID, nil
}

// FreezeBaselineFromLatest clones the non-custom subset of the target's
// latest snapshots into BaselineObjects/BaselineObjectDefinitions and
// updates totalObjects. It does not delete the Baseline on a zero count;
// that policy lives in the Baseline Manager, which owns the "no snapshots;
// run a scan first" rollback per SPEC_FULL.md §4.6.
func (r *gormRepository) FreezeBaselineFromLatest(baselineID uint, tenantID uint, environment string) (int, error) {
	latest, err := r.LatestSnapshots(tenantID, environment)
	if err != nil {
		return 0, err
	}

	objects := make([]BaselineObject, 0, len(latest))
	defsBySnapshot := make(map[uint64]Snapshot, len(latest))
	for _, s := range latest {
		if s.IsCustom {
			continue
		}
		objects = append(objects, BaselineObject{
			BaselineID:       baselineID,
			FullName:         s.FullName,
			Schema:           s.Schema,
			Name:             s.Name,
			Kind:             s.Kind,
			DefinitionHash:   s.DefinitionHash,
			SourceSnapshotID: s.ID,
		})
		defsBySnapshot[s.ID] = s
	}
	if len(objects) == 0 {
		return 0, nil
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&objects, 200).Error; err != nil {
			return fmt.Errorf("insert baseline objects: %w", err)
		}
		defRows := make([]BaselineObjectDefinition, 0, len(objects))
		for _, obj := range objects {
			def, ok, err := r.GetSnapshotDefinition(obj.SourceSnapshotID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			defRows = append(defRows, BaselineObjectDefinition{BaselineObjectID: obj.ID, Definition: def})
		}
		if len(defRows) > 0 {
			if err := tx.CreateInBatches(&defRows, 200).Error; err != nil {
				return fmt.Errorf("insert baseline object definitions: %w", err)
			}
		}
		if err := tx.Model(&Baseline{}).Where("id = ?", baselineID).
			Update("total_objects", len(objects)).Error; err != nil {
			return fmt.Errorf("update baseline total_objects: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(objects), nil
}

func (r *gormRepository) ListBaselines() ([]Baseline, error) {
	var baselines []Baseline
	if err := r.db.Order("created_at DESC").Find(&baselines).Error; err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	return baselines, nil
}

func (r *gormRepository) GetBaseline(id uint) (*Baseline, error) {
	var b Baseline
	if err := r.db.First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get baseline %d: %w", id, err)
	}
	return &b, nil
}

// DeleteBaseline cascades to BaselineObjects and BaselineObjectDefinitions,
// mirroring the ownership rule of SPEC_FULL.md §3.
func (r *gormRepository) DeleteBaseline(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var objectIDs []uint64
		if err := tx.Model(&BaselineObject{}).Where("baseline_id = ?", id).
			Pluck("id", &objectIDs).Error; err != nil {
			return fmt.Errorf("collect baseline object ids: %w", err)
		}
		if len(objectIDs) > 0 {
			if err := tx.Where("baseline_object_id IN ?", objectIDs).
				Delete(&BaselineObjectDefinition{}).Error; err != nil {
				return fmt.Errorf("delete baseline object definitions: %w", err)
			}
		}
		if err := tx.Where("baseline_id = ?", id).Delete(&BaselineObject{}).Error; err != nil {
			return fmt.Errorf("delete baseline objects: %w", err)
		}
		if err := tx.Delete(&Baseline{}, id).Error; err != nil {
			return fmt.Errorf("delete baseline %d: %w", id, err)
		}
		return nil
	})
}

func (r *gormRepository) ListBaselineObjects(baselineID uint) ([]BaselineObject, error) {
	var objects []BaselineObject
	if err := r.db.Where("baseline_id = ?", baselineID).Find(&objects).Error; err != nil {
		return nil, fmt.Errorf("list baseline objects for baseline %d: %w", baselineID, err)
	}
	return objects, nil
}

func (r *gormRepository) GetBaselineObjectDefinition(objectID uint64) (string, bool, error) {
	var def BaselineObjectDefinition
	err := r.db.Where("baseline_object_id = ?", objectID).First(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get baseline object definition %d: %w", objectID, err)
	}
	return def.Definition, true, nil
}

func (r *gormRepository) LoadBaselineWithDefinitions(id uint) (*Baseline, []BaselineObject, map[uint64]string, error) {
	b, err := r.GetBaseline(id)
	if err != nil {
		return nil, nil, nil, err
	}
	objects, err := r.ListBaselineObjects(id)
	if err != nil {
		return nil, nil, nil, err
	}
	defs := make(map[uint64]string, len(objects))
	for _, obj := range objects {
		def, ok, err := r.GetBaselineObjectDefinition(obj.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		if ok {
			defs[obj.ID] = def
		}
	}
	return b, objects, defs, nil
}
