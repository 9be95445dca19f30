package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/snapshotengine/dbsync/internal/baseline"
	"github.com/snapshotengine/dbsync/internal/comparator"
	"github.com/snapshotengine/dbsync/internal/domain"
	"github.com/snapshotengine/dbsync/internal/queue"
	"github.com/snapshotengine/dbsync/internal/repository"
)

// ScanHandler exposes scan submission and scan history (SPEC_FULL.md §6.4).
type ScanHandler struct {
	Queue *queue.Queue
	Repo  repository.Repository
}

type createScanRequest struct {
	Trigger     string `json:"trigger"`
	TriggeredBy string `json:"triggered_by"`
	ScanAll     bool   `json:"scan_all"`
	TenantID    uint   `json:"tenant_id"`
	Environment string `json:"environment"`
}

// CreateScan enqueues a scan and waits for it to complete before replying,
// matching the CLI's synchronous expectations; a long-running scan is the
// caller's problem to time out on, not this handler's to fake-async.
func (h *ScanHandler) CreateScan(c *gin.Context) {
	var req createScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Trigger == "" {
		req.Trigger = string(domain.TriggerManual)
	}

	var qreq queue.Request
	if req.TenantID == 0 {
		qreq = queue.FullScanRequest(domain.ScanTrigger(req.Trigger), req.TriggeredBy)
	} else {
		qreq = queue.SingleScanRequest(req.TenantID, domain.Environment(req.Environment), domain.ScanTrigger(req.Trigger), req.TriggeredBy)
	}
	qreq.Include = req.ScanAll

	log, err := h.Queue.EnqueueAndWait(c.Request.Context(), qreq)
	if err != nil {
		if err == queue.ErrQueueFull {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan queue is full"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, log)
}

func (h *ScanHandler) ListScans(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	logs, err := h.Repo.ListRecentScanLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *ScanHandler) GetScan(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	log, err := h.Repo.GetScanLog(uint(id))
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, log)
}

func (h *ScanHandler) ListEntries(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	entries, err := h.Repo.ListScanEntries(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// CompareHandler exposes cross-target and diff comparisons.
type CompareHandler struct {
	Comparator *comparator.Comparator
}

func (h *CompareHandler) Compare(c *gin.Context) {
	tenantA, errA := strconv.ParseUint(c.Query("tenantA"), 10, 64)
	tenantB, errB := strconv.ParseUint(c.Query("tenantB"), 10, 64)
	if errA != nil || errB != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenantA and tenantB are required"})
		return
	}
	result, err := h.Comparator.Compare(uint(tenantA), c.Query("envA"), uint(tenantB), c.Query("envB"), c.Query("kind"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CompareHandler) Diff(c *gin.Context) {
	a, errA := strconv.ParseUint(c.Query("snapshotA"), 10, 64)
	b, errB := strconv.ParseUint(c.Query("snapshotB"), 10, 64)
	if errA != nil || errB != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "snapshotA and snapshotB are required"})
		return
	}
	result, err := h.Comparator.Diff(c.Request.Context(), a, b)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// BaselineHandler exposes baseline CRUD and baseline-vs-live comparison.
type BaselineHandler struct {
	Manager *baseline.Manager
}

type createBaselineRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	TenantID    uint    `json:"tenant_id" binding:"required"`
	Environment string  `json:"environment" binding:"required"`
}

func (h *BaselineHandler) Create(c *gin.Context) {
	var req createBaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target := domain.Target{TenantID: req.TenantID, Environment: domain.Environment(req.Environment)}
	id, count, err := h.Manager.Create(baseline.Meta{Name: req.Name, Description: req.Description}, target)
	if err != nil {
		if err == baseline.ErrEmptySource {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "total_objects": count})
}

func (h *BaselineHandler) List(c *gin.Context) {
	baselines, err := h.Manager.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, baselines)
}

func (h *BaselineHandler) Get(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	b, err := h.Manager.Get(uint(id))
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "baseline not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BaselineHandler) Delete(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.Manager.Delete(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BaselineHandler) CompareToLive(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, err := strconv.ParseUint(c.Query("tenantId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenantId is required"})
		return
	}
	target := domain.Target{TenantID: uint(tenantID), Environment: domain.Environment(c.Query("env"))}
	result, err := h.Manager.CompareToLive(uint(id), target, c.Query("kind"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseUintParam(c *gin.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// Health is the liveness endpoint, matching the teacher's health route.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "snapshot-engine"})
}
