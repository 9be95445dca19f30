// Command scanctl is the operator CLI for the snapshot engine: trigger
// scans, freeze baselines and compare targets against a running scansvc
// instance's database directly (SPEC_FULL.md §6.5).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/snapshotengine/dbsync/internal/config"
	"github.com/snapshotengine/dbsync/internal/repository"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "scanctl",
	Short: "Operate the programmable object snapshot engine",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "path to config.json")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openRepo() (repository.Repository, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var dialector gorm.Dialector
	switch cfg.Repository.Type {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.Repository.User, cfg.Repository.Password, cfg.Repository.Host, cfg.Repository.Port, cfg.Repository.DBName)
		dialector = mysql.Open(dsn)
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.Repository.Host, cfg.Repository.User, cfg.Repository.Password, cfg.Repository.DBName, cfg.Repository.Port)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open repository database: %w", err)
	}
	return repository.New(db), nil
}
