package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createScansAndEarningsTablesMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_scans_and_earnings_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS scans (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					dcd_id UUID NOT NULL REFERENCES users(id),
					campaign_id UUID REFERENCES campaigns(id),
					scanned_at TIMESTAMP WITH TIME ZONE NOT NULL,
					device_fingerprint VARCHAR(255),
					ip_address VARCHAR(64),
					geo JSONB NOT NULL DEFAULT '{}',
					earnings DECIMAL(20,2),
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX IF NOT EXISTS idx_scans_dcd_id ON scans(dcd_id);
				CREATE INDEX IF NOT EXISTS idx_scans_campaign_fingerprint ON scans(campaign_id, device_fingerprint, created_at);
				CREATE INDEX IF NOT EXISTS idx_scans_campaign_ip ON scans(campaign_id, ip_address, created_at);
				CREATE INDEX IF NOT EXISTS idx_scans_deleted_at ON scans(deleted_at);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS earnings (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					user_id UUID NOT NULL REFERENCES users(id),
					campaign_id UUID REFERENCES campaigns(id),
					scan_id UUID REFERENCES scans(id),
					type VARCHAR(30) NOT NULL,
					recipient_role VARCHAR(20),
					amount DECIMAL(20,2) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					description TEXT,
					month VARCHAR(7),
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_earnings_scan_recipient ON earnings(type, scan_id, recipient_role);
				CREATE INDEX IF NOT EXISTS idx_earnings_user_id ON earnings(user_id);
				CREATE INDEX IF NOT EXISTS idx_earnings_campaign_id ON earnings(campaign_id);
				CREATE INDEX IF NOT EXISTS idx_earnings_month ON earnings(month);
				CREATE INDEX IF NOT EXISTS idx_earnings_deleted_at ON earnings(deleted_at);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS earnings;
				DROP TABLE IF EXISTS scans;
			`).Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createScansAndEarningsTablesMigration())
}
