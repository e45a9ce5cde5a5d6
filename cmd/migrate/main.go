package main

import (
	"flag"

	"github.com/daya/backend/internal/config"
	"github.com/daya/backend/internal/database"
	"github.com/daya/backend/internal/database/migrations"
	"github.com/daya/backend/internal/logger"
	"go.uber.org/zap"
)

func main() {
	rollback := flag.Bool("rollback", false, "roll back the most recent migration")
	to := flag.String("to", "", "roll back to the given migration id")
	flag.Parse()

	cfg := config.LoadConfig()

	log, err := logger.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.InitDB(cfg.Database, log, cfg.Environment)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	switch {
	case *to != "":
		err = migrations.RollbackTo(db, *to)
	case *rollback:
		err = migrations.RollbackLast(db)
	default:
		err = migrations.RunMigrations(db)
	}
	if err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	log.Info("migrations finished")
}
