// Package orchestrator is the Scanner/Orchestrator: drives full and
// partial scans across (tenant x environment) with bounded concurrency,
// per-target timeouts and partial-failure accounting (SPEC_FULL.md §4.4,
// §5).
package orchestrator

import (
	"context"
	"fmt"
	stdlog "log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snapshotengine/dbsync/internal/detector"
	"github.com/snapshotengine/dbsync/internal/domain"
	"github.com/snapshotengine/dbsync/internal/extractor"
	"github.com/snapshotengine/dbsync/internal/repository"
	"github.com/snapshotengine/dbsync/internal/tenancy"
)

// perTargetDeadline is the fixed 90-second hard cap over connect + extract
// + repository writes for one target (spec.md §4.4 step 3, §5).
const perTargetDeadline = 90 * time.Second

// maxErrorSummaryLines bounds ScanLog.ErrorSummary at 20 lines (spec.md
// §4.4 "Terminal status policy").
const maxErrorSummaryLines = 20

// Decrypt resolves an opaque password into plaintext. The engine treats
// the opaque value as an external collaborator's concern (SPEC_FULL.md
// §6.2).
type Decrypt func(opaque string) (string, error)

// Notify is invoked once per scan after terminal status. The core never
// retries a failed Notify call.
type Notify func(log repository.ScanLog, entries []repository.ScanEntry, pending []repository.DetectedChange) error

// NewExtractor builds an Extractor for a connection descriptor; exposed as
// a field so tests can substitute a fake extractor without dialing a real
// database.
type NewExtractor func(conn domain.ConnectionDescriptor) (extractor.Extractor, error)

// Scanner is the Orchestrator. It holds no per-scan state between calls;
// every RunFullScan/RunSingleScan call is independent, matching the
// "fresh short-lived resolution scope per request" design note for the
// Scan Queue that feeds it.
type Scanner struct {
	Repo            repository.Repository
	Registry        *tenancy.Registry
	Decrypt         Decrypt
	Notify          Notify
	NewExtractor    NewExtractor
	ByConvention    bool // customDetection.byConvention
	BaseFilter      map[string]bool // global registry of tracked base objects; nil/empty = scan everything
}

// now is a package variable so tests can freeze time without touching the
// call sites — every timestamp the Scanner stamps goes through it rather
// than calling time.Now() directly.
var now = time.Now

// RunFullScan scans every configured tenant's every environment with up to
// maxParallelTenants tenants running concurrently; within one tenant its
// environments run sequentially (spec.md §4.4, §5).
func (s *Scanner) RunFullScan(ctx context.Context, trigger domain.ScanTrigger, triggeredBy string, maxParallelTenants int, scanAll bool) (*repository.ScanLog, error) {
	tenants := s.Registry.All()
	return s.runScan(ctx, trigger, triggeredBy, maxParallelTenants, scanAll, tenants, nil)
}

// RunSingleScan scans one tenant, either one environment (if environment is
// non-empty) or all of that tenant's configured environments.
func (s *Scanner) RunSingleScan(ctx context.Context, tenantID uint, environment domain.Environment, trigger domain.ScanTrigger, triggeredBy string, scanAll bool) (*repository.ScanLog, error) {
	tenant, ok := s.Registry.ByID(tenantID)
	if !ok {
		return nil, fmt.Errorf("orchestrator: unknown tenant %d", tenantID)
	}
	var envFilter []domain.Environment
	if environment != "" {
		envFilter = []domain.Environment{environment}
	}
	return s.runScan(ctx, trigger, triggeredBy, 1, scanAll, []tenancy.Tenant{tenant}, envFilter)
}

type errorAccumulator struct {
	mu    sync.Mutex
	lines []string
}

func (a *errorAccumulator) add(line string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.lines) < maxErrorSummaryLines {
		a.lines = append(a.lines, line)
	}
}

func (a *errorAccumulator) summary() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Join(a.lines, "\n")
}

func (s *Scanner) runScan(ctx context.Context, trigger domain.ScanTrigger, triggeredBy string, maxParallelTenants int, scanAll bool, tenants []tenancy.Tenant, envFilter []domain.Environment) (*repository.ScanLog, error) {
	startedAt := now()
	triggeredByPtr := &triggeredBy
	if triggeredBy == "" {
		triggeredByPtr = nil
	}
	log := &repository.ScanLog{
		StartedAt:   startedAt,
		Status:      string(domain.StatusRunning),
		Trigger:     string(trigger),
		TriggeredBy: triggeredByPtr,
	}
	logID, err := s.Repo.CreateScanLog(log)
	if err != nil {
		// Fatal for this scan: the ScanLog could not even be created.
		return nil, fmt.Errorf("orchestrator: create scan log: %w", err)
	}
	log.ID = logID

	var totalObjects, totalChanges, totalErrors int64
	var totalTargets int64
	errs := &errorAccumulator{}

	baseFilter := s.BaseFilter
	if scanAll || len(baseFilter) == 0 {
		baseFilter = nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(1, maxParallelTenants))

	for _, tenant := range tenants {
		tenant := tenant
		group.Go(func() error {
			envs := envFilter
			if len(envs) == 0 {
				for env := range tenant.Environments {
					envs = append(envs, env)
				}
			}
			// Per-tenant, environments run sequentially.
			for _, env := range envs {
				conn, ok := tenant.Environments[env]
				if !ok {
					continue
				}
				target := domain.Target{TenantID: tenant.ID, TenantCode: tenant.Code, Environment: env}
				atomic.AddInt64(&totalTargets, 1)

				result, err := s.scanTarget(groupCtx, logID, tenant, target, conn, baseFilter)
				if err != nil {
					atomic.AddInt64(&totalErrors, 1)
					errs.add(fmt.Sprintf("%s/%s: %v", tenant.Code, env, err))
					continue
				}
				atomic.AddInt64(&totalObjects, int64(result.found))
				atomic.AddInt64(&totalChanges, int64(result.created+result.modified+result.deleted))
				if !result.success {
					atomic.AddInt64(&totalErrors, 1)
				}
			}
			return nil
		})
	}

	waitErr := group.Wait()
	completedAt := now()
	log.CompletedAt = &completedAt
	log.TotalTenants = len(tenants)
	log.TotalEnvironments = int(totalTargets)
	log.TotalObjectsScanned = int(totalObjects)
	log.TotalChangesDetected = int(totalChanges)
	log.TotalErrors = int(totalErrors)

	switch {
	case ctx.Err() == context.Canceled:
		log.Status = string(domain.StatusFailed)
		cancelled := "Cancelled"
		log.ErrorSummary = &cancelled
	case waitErr != nil:
		log.Status = string(domain.StatusFailed)
		msg := oneLine(waitErr.Error())
		log.ErrorSummary = &msg
	case totalErrors == 0:
		log.Status = string(domain.StatusCompleted)
	case totalErrors > 0 && totalErrors < totalTargets:
		log.Status = string(domain.StatusCompletedWithErrors)
		summary := errs.summary()
		log.ErrorSummary = &summary
	case totalErrors > 0:
		log.Status = string(domain.StatusCompletedWithErrors)
		summary := errs.summary()
		log.ErrorSummary = &summary
	}

	// Even if persisting the final update fails, the in-memory ScanLog
	// still reflects the final state (spec.md §7 "User-visible behavior").
	_ = s.Repo.UpdateScanLog(log)

	if s.Notify != nil {
		entries, _ := s.Repo.ListScanEntries(logID)
		pending, _ := s.Repo.PendingNotifications()
		if err := s.Notify(*log, entries, pending); err != nil {
			// Notification errors are logged and swallowed; they must
			// never fail a scan.
			stdlog.Printf("orchestrator: scan %d: notify: %v", logID, err)
		}
	}

	return log, nil
}

type targetResult struct {
	success                  bool
	found, created, modified, deleted int
}

// scanTarget is the single per-target procedure shared by full and single
// scans (spec.md §4.4). Ordering within this function is load-bearing: the
// previous-latest read happens-before the bulk insert, which
// happens-before change detection (spec.md §5).
func (s *Scanner) scanTarget(ctx context.Context, scanLogID uint, tenant tenancy.Tenant, target domain.Target, connCfg domain.ConnectionDescriptor, baseFilter map[string]bool) (targetResult, error) {
	ctx, cancel := context.WithTimeout(ctx, perTargetDeadline)
	defer cancel()

	entry := &repository.ScanEntry{
		ScanLogID:   scanLogID,
		TenantID:    target.TenantID,
		TenantCode:  target.TenantCode,
		Environment: string(target.Environment),
		StartedAt:   now(),
	}
	entryID, err := s.Repo.CreateScanEntry(entry)
	if err != nil {
		return targetResult{}, fmt.Errorf("create scan entry: %w", err)
	}
	entry.ID = entryID

	finish := func(success bool, found, created, modified, deleted int, errMsg string) (targetResult, error) {
		completed := now()
		entry.CompletedAt = &completed
		entry.Success = success
		entry.ObjectsFound = found
		entry.ObjectsNew = created
		entry.ObjectsModified = modified
		entry.ObjectsDeleted = deleted
		entry.DurationSeconds = completed.Sub(entry.StartedAt).Seconds()
		if errMsg != "" {
			entry.ErrorMessage = &errMsg
		}
		_ = s.Repo.UpdateScanEntry(entry)
		if !success {
			return targetResult{success: false}, fmt.Errorf("%s", errMsg)
		}
		return targetResult{success: true, found: found, created: created, modified: modified, deleted: deleted}, nil
	}

	conn := connCfg
	plainPassword, err := s.Decrypt(conn.Password)
	if err != nil {
		return finish(false, 0, 0, 0, 0, fmt.Sprintf("decrypt credentials: %v", err))
	}
	conn.Password = plainPassword

	ext, err := s.NewExtractor(conn)
	if err != nil {
		return finish(false, 0, 0, 0, 0, fmt.Sprintf("build extractor: %v", err))
	}

	if ctx.Err() == context.DeadlineExceeded {
		return finish(false, 0, 0, 0, 0, "Timeout")
	}
	ok, _, err := ext.TestConnection(ctx, conn)
	if err != nil || !ok {
		if ctx.Err() == context.DeadlineExceeded {
			return finish(false, 0, 0, 0, 0, "Timeout")
		}
		return finish(false, 0, 0, 0, 0, fmt.Sprintf("connect failed: %v", err))
	}

	objects, err := ext.ExtractAll(ctx, conn)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return finish(false, 0, 0, 0, 0, "Timeout")
		}
		return finish(false, 0, 0, 0, 0, fmt.Sprintf("extract failed: %v", err))
	}

	included := make([]domain.ProgrammableObject, 0, len(objects))
	for _, obj := range objects {
		isCustom := s.isCustom(tenant, obj)
		if baseFilter == nil || baseFilter[domain.NormalizeKey(obj.FullName())] || isCustom {
			included = append(included, obj)
		}
	}

	// 1) previous-latest read happens-before 2) bulk insert.
	previous, err := s.Repo.LatestSnapshots(target.TenantID, string(target.Environment))
	if err != nil {
		return finish(false, 0, 0, 0, 0, fmt.Sprintf("load previous snapshots: %v", err))
	}

	snapshotDate := now()
	snapshots := make([]repository.Snapshot, 0, len(included))
	definitions := make([]string, 0, len(included))
	for _, obj := range included {
		hash := domain.DefinitionHash(obj.Definition)
		snapshots = append(snapshots, repository.Snapshot{
			TenantID:           target.TenantID,
			TenantName:         tenant.Name,
			TenantCode:         target.TenantCode,
			Environment:        string(target.Environment),
			FullName:           obj.FullName(),
			Schema:             obj.Schema,
			Name:               obj.Name,
			Kind:               obj.Kind.ShortCode(),
			DefinitionHash:     hash,
			ObjectLastModified: time.Unix(obj.ServerLastModified, 0).UTC(),
			SnapshotDate:       snapshotDate,
			IsCustom:           s.isCustom(tenant, obj),
		})
		definitions = append(definitions, obj.Definition)
	}

	if err := s.Repo.BulkInsertSnapshots(scanLogID, snapshots, definitions); err != nil {
		return finish(false, len(included), 0, 0, 0, fmt.Sprintf("bulk insert snapshots: %v", err))
	}

	// 2) bulk insert happens-before 3) change detection — only over the
	// non-custom subset.
	previousNonCustom := filterNonCustom(previous)
	currentNonCustom := filterNonCustomSnapshots(snapshots)
	changes := detector.Detect(previousNonCustom, currentNonCustom)

	if len(changes) > 0 {
		rows := detector.ToDetectedChanges(scanLogID, target, changes, now())
		if err := s.Repo.BulkInsertChanges(rows); err != nil {
			return finish(false, len(included), 0, 0, 0, fmt.Sprintf("bulk insert changes: %v", err))
		}
	}

	var created, modified, deleted int
	for _, c := range changes {
		switch c.ChangeType {
		case domain.ChangeCreated:
			created++
		case domain.ChangeModified:
			modified++
		case domain.ChangeDeleted:
			deleted++
		}
	}

	return finish(true, len(included), created, modified, deleted, "")
}

func (s *Scanner) isCustom(tenant tenancy.Tenant, obj domain.ProgrammableObject) bool {
	if tenant.CustomObjects[domain.NormalizeKey(obj.FullName())] {
		return true
	}
	if s.ByConvention && tenancy.IsCustomByConvention(tenant.Code, obj.Name) {
		return true
	}
	return false
}

func filterNonCustom(snapshots []repository.Snapshot) []repository.Snapshot {
	out := make([]repository.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if !s.IsCustom {
			out = append(out, s)
		}
	}
	return out
}

func filterNonCustomSnapshots(snapshots []repository.Snapshot) []repository.Snapshot {
	return filterNonCustom(snapshots)
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
