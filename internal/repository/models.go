package repository

import "time"

// ScanLog is one execution of the orchestrator over a set of targets.
type ScanLog struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	StartedAt           time.Time  `json:"started_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	Status              string     `gorm:"type:varchar(50);not null;index:idx_scanlogs_started,priority:2" json:"status"`
	Trigger             string     `gorm:"type:varchar(50);not null" json:"trigger"`
	TriggeredBy         *string    `gorm:"type:varchar(255)" json:"triggered_by,omitempty"`
	TotalTenants        int        `json:"total_tenants"`
	TotalEnvironments   int        `json:"total_environments"`
	TotalObjectsScanned int        `json:"total_objects_scanned"`
	TotalChangesDetected int       `json:"total_changes_detected"`
	TotalErrors         int        `json:"total_errors"`
	ErrorSummary        *string    `gorm:"type:text" json:"error_summary,omitempty"`
}

func (ScanLog) TableName() string { return "scan_logs" }

// ScanEntry is one (ScanLog, Target) row.
type ScanEntry struct {
	ID              uint64     `gorm:"primaryKey" json:"id"`
	ScanLogID       uint       `gorm:"not null;index" json:"scan_log_id"`
	TenantID        uint       `gorm:"not null;index" json:"tenant_id"`
	TenantCode      string     `gorm:"type:varchar(100);not null" json:"tenant_code"`
	Environment     string     `gorm:"type:varchar(50);not null" json:"environment"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Success         bool       `json:"success"`
	ObjectsFound    int        `json:"objects_found"`
	ObjectsNew      int        `json:"objects_new"`
	ObjectsModified int        `json:"objects_modified"`
	ObjectsDeleted  int        `json:"objects_deleted"`
	ErrorMessage    *string    `gorm:"type:text" json:"error_message,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
}

func (ScanEntry) TableName() string { return "scan_entries" }

// Snapshot is the metadata row capturing one programmable object's state at
// a scan instant.
type Snapshot struct {
	ID                 uint64    `gorm:"primaryKey" json:"id"`
	ScanLogID          uint      `gorm:"not null;index" json:"scan_log_id"`
	TenantID           uint      `gorm:"not null;index:idx_snap_latest,priority:1" json:"tenant_id"`
	TenantName         string    `gorm:"type:varchar(255)" json:"tenant_name"`
	TenantCode         string    `gorm:"type:varchar(100)" json:"tenant_code"`
	Environment        string    `gorm:"type:varchar(50);not null;index:idx_snap_latest,priority:2" json:"environment"`
	FullName           string    `gorm:"type:varchar(600);not null;index:idx_snap_fullname,priority:1" json:"full_name"`
	Schema             string    `gorm:"type:varchar(255);not null" json:"schema"`
	Name               string    `gorm:"type:varchar(255);not null" json:"name"`
	Kind               string    `gorm:"type:varchar(10);not null" json:"kind"`
	DefinitionHash     string    `gorm:"type:varchar(64);not null;index" json:"definition_hash"`
	ObjectLastModified time.Time `json:"object_last_modified"`
	SnapshotDate       time.Time `gorm:"not null;index:idx_snap_latest,priority:3" json:"snapshot_date"`
	IsCustom           bool      `gorm:"not null;default:false" json:"is_custom"`
}

func (Snapshot) TableName() string { return "object_snapshots" }

// SnapshotDefinition owns the large text, kept off the hot bulk-insert path.
type SnapshotDefinition struct {
	ID         uint64 `gorm:"primaryKey" json:"id"`
	SnapshotID uint64 `gorm:"not null;uniqueIndex" json:"snapshot_id"`
	Definition string `gorm:"type:text" json:"definition"`
}

func (SnapshotDefinition) TableName() string { return "object_snapshot_definitions" }

// DetectedChange is one created/modified/deleted object found between two
// scans of the same target.
type DetectedChange struct {
	ID               uint64    `gorm:"primaryKey" json:"id"`
	ScanLogID        uint      `gorm:"not null;index" json:"scan_log_id"`
	TenantID         uint      `gorm:"not null" json:"tenant_id"`
	TenantCode       string    `gorm:"type:varchar(100)" json:"tenant_code"`
	Environment      string    `gorm:"type:varchar(50);not null" json:"environment"`
	FullName         string    `gorm:"type:varchar(600);not null" json:"full_name"`
	Kind             string    `gorm:"type:varchar(10);not null" json:"kind"`
	ChangeType       string    `gorm:"type:varchar(20);not null" json:"change_type"`
	PreviousHash     *string   `gorm:"type:varchar(64)" json:"previous_hash,omitempty"`
	CurrentHash      *string   `gorm:"type:varchar(64)" json:"current_hash,omitempty"`
	DetectedAt       time.Time `json:"detected_at"`
	NotificationSent bool      `gorm:"not null;default:false;index" json:"notification_sent"`
}

func (DetectedChange) TableName() string { return "detected_changes" }

// Baseline is a named, immutable frozen version of one target's latest
// non-custom snapshots.
type Baseline struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Description        *string   `gorm:"type:text" json:"description,omitempty"`
	SourceTenantID     uint      `gorm:"not null" json:"source_tenant_id"`
	SourceTenantName   string    `gorm:"type:varchar(255)" json:"source_tenant_name"`
	SourceTenantCode   string    `gorm:"type:varchar(100)" json:"source_tenant_code"`
	SourceEnvironment  string    `gorm:"type:varchar(50);not null" json:"source_environment"`
	TotalObjects       int       `json:"total_objects"`
	CreatedAt          time.Time `json:"created_at"`
	CreatedBy          *string   `gorm:"type:varchar(255)" json:"created_by,omitempty"`
}

func (Baseline) TableName() string { return "baselines" }

// BaselineObject is one frozen object inside a Baseline.
type BaselineObject struct {
	ID               uint64 `gorm:"primaryKey" json:"id"`
	BaselineID       uint   `gorm:"not null;index" json:"baseline_id"`
	FullName         string `gorm:"type:varchar(600);not null" json:"full_name"`
	Schema           string `gorm:"type:varchar(255);not null" json:"schema"`
	Name             string `gorm:"type:varchar(255);not null" json:"name"`
	Kind             string `gorm:"type:varchar(10);not null" json:"kind"`
	DefinitionHash   string `gorm:"type:varchar(64);not null" json:"definition_hash"`
	SourceSnapshotID uint64 `json:"source_snapshot_id"`
}

func (BaselineObject) TableName() string { return "baseline_objects" }

// BaselineObjectDefinition is the one-to-one text holder for a BaselineObject.
type BaselineObjectDefinition struct {
	ID               uint64 `gorm:"primaryKey" json:"id"`
	BaselineObjectID uint64 `gorm:"not null;uniqueIndex" json:"baseline_object_id"`
	Definition       string `gorm:"type:text" json:"definition"`
}

func (BaselineObjectDefinition) TableName() string { return "baseline_object_definitions" }

// AllModels lists every model EnsureSchema must migrate; kept in one place
// so callers (tests included) never drift from the real schema.
func AllModels() []interface{} {
	return []interface{}{
		&ScanLog{},
		&ScanEntry{},
		&Snapshot{},
		&SnapshotDefinition{},
		&DetectedChange{},
		&Baseline{},
		&BaselineObject{},
		&BaselineObjectDefinition{},
	}
}
