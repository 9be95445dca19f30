package api

import (
	"github.com/gin-gonic/gin"

	"github.com/snapshotengine/dbsync/internal/baseline"
	"github.com/snapshotengine/dbsync/internal/comparator"
	"github.com/snapshotengine/dbsync/internal/queue"
	"github.com/snapshotengine/dbsync/internal/repository"
)

// SetupRoutes wires the §6.4 HTTP API surface onto r, following the
// teacher's routes.SetupRoutes grouping (public health check, an
// authenticated group for everything else).
func SetupRoutes(r *gin.Engine, repo repository.Repository, q *queue.Queue, cmp *comparator.Comparator, bm *baseline.Manager, authSecret []byte) {
	r.Use(CORSMiddleware())

	r.GET("/api/v1/health", Health)

	auth := r.Group("/api/v1")
	if len(authSecret) > 0 {
		auth.Use(AuthMiddleware(authSecret))
	}
	{
		scans := &ScanHandler{Queue: q, Repo: repo}
		auth.POST("/scans", scans.CreateScan)
		auth.GET("/scans", scans.ListScans)
		auth.GET("/scans/:id", scans.GetScan)
		auth.GET("/scans/:id/entries", scans.ListEntries)

		compare := &CompareHandler{Comparator: cmp}
		auth.GET("/compare", compare.Compare)
		auth.GET("/compare/diff", compare.Diff)

		baselines := &BaselineHandler{Manager: bm}
		auth.POST("/baselines", baselines.Create)
		auth.GET("/baselines", baselines.List)
		auth.GET("/baselines/:id", baselines.Get)
		auth.DELETE("/baselines/:id", baselines.Delete)
		auth.GET("/baselines/:id/compare", baselines.CompareToLive)
	}
}
