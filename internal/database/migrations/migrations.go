package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// migrationsList holds all migrations in file order
var migrationsList []*gormigrate.Migration

func newMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrationsList)
}

// RunMigrations applies every pending migration
func RunMigrations(db *gorm.DB) error {
	if err := newMigrator(db).Migrate(); err != nil {
		zap.L().Error("could not migrate", zap.Error(err))
		return err
	}
	zap.L().Info("migrations ran successfully", zap.Int("count", len(migrationsList)))
	return nil
}

// RollbackLast reverts the most recently applied migration
func RollbackLast(db *gorm.DB) error {
	if err := newMigrator(db).RollbackLast(); err != nil {
		zap.L().Error("could not roll back", zap.Error(err))
		return err
	}
	zap.L().Info("rolled back last migration")
	return nil
}

// RollbackTo reverts migrations until the one with the given ID is the latest applied
func RollbackTo(db *gorm.DB, migrationID string) error {
	if err := newMigrator(db).RollbackTo(migrationID); err != nil {
		zap.L().Error("could not roll back", zap.String("target", migrationID), zap.Error(err))
		return err
	}
	zap.L().Info("rolled back migrations", zap.String("target", migrationID))
	return nil
}
