package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/snapshotengine/dbsync/internal/api"
	"github.com/snapshotengine/dbsync/internal/baseline"
	"github.com/snapshotengine/dbsync/internal/comparator"
	"github.com/snapshotengine/dbsync/internal/config"
	"github.com/snapshotengine/dbsync/internal/extractor"
	"github.com/snapshotengine/dbsync/internal/notify"
	"github.com/snapshotengine/dbsync/internal/orchestrator"
	"github.com/snapshotengine/dbsync/internal/queue"
	"github.com/snapshotengine/dbsync/internal/repository"
	"github.com/snapshotengine/dbsync/internal/scheduler"
	"github.com/snapshotengine/dbsync/internal/secure"
	"github.com/snapshotengine/dbsync/internal/tenancy"
)

func main() {
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := openRepositoryDB(cfg.Repository)
	if err != nil {
		log.Fatalf("open repository database: %v", err)
	}
	repo := repository.New(db)
	if err := repo.EnsureSchema(); err != nil {
		log.Fatalf("migrate repository schema: %v", err)
	}

	registry := tenancy.FromConfig(cfg)
	decryptor := secure.NewDecryptor([]byte(cfg.EncryptionKey))
	notifier := notify.New(cfg.Email, cfg.Email.From)

	scanner := &orchestrator.Scanner{
		Repo:         repo,
		Registry:     registry,
		Decrypt:      decryptor.Decrypt,
		Notify:       notifier.Notify,
		NewExtractor: extractor.New,
		ByConvention: cfg.CustomDetection.ByConvention,
	}

	q := queue.New(cfg.Queue.Capacity, scanner, cfg.Scheduler.MaxParallelTenants)
	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)

	sched, err := scheduler.New(cfg.Scheduler.IntervalMinutes, cfg.Scheduler.RunOnStartup, q)
	if err != nil {
		log.Fatalf("build scheduler: %v", err)
	}
	sched.Start()

	cmp := comparator.New(repo)
	bm := baseline.New(repo)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	api.SetupRoutes(r, repo, q, cmp, bm, []byte(cfg.EncryptionKey))

	go func() {
		port := cfg.Server.Port
		if port == "" {
			port = "8080"
		}
		log.Printf("snapshot engine listening on :%s", port)
		if err := r.Run(":" + port); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	cancel()
	sched.Stop(context.Background())
}

func openRepositoryDB(cfg config.RepositoryConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		dialector = mysql.Open(dsn)
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port)
		dialector = postgres.Open(dsn)
	}
	return gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Info)})
}
