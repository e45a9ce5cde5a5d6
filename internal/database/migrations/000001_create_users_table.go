package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createUsersTableMigration creates the user directory and referral tables this
// service reads
func createUsersTableMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_users_table",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					email VARCHAR(255) NOT NULL UNIQUE,
					name VARCHAR(255),
					role VARCHAR(20) NOT NULL,
					business_name VARCHAR(255),
					account_type VARCHAR(100),
					profile JSONB NOT NULL DEFAULT '{}',
					country_code VARCHAR(2),
					country_name VARCHAR(100),
					is_active BOOLEAN DEFAULT TRUE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
				CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);
				CREATE INDEX IF NOT EXISTS idx_users_deleted_at ON users(deleted_at);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS referrals (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					referrer_id UUID NOT NULL REFERENCES users(id),
					referred_id UUID NOT NULL REFERENCES users(id),
					type VARCHAR(30) NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX IF NOT EXISTS idx_referrals_referred_type ON referrals(referred_id, type);
				CREATE INDEX IF NOT EXISTS idx_referrals_referrer_id ON referrals(referrer_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS referrals;
				DROP TABLE IF EXISTS users;
			`).Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createUsersTableMigration())
}
