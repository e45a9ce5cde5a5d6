package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/daya/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlatformAccounts holds the platform-owned users that take a share of
// every scan. Company is nil when no company account exists, in which case
// the company share is not recorded.
type PlatformAccounts struct {
	Company *models.User
}

// ResolvePlatformAccounts loads the company account once at startup. When
// email is set the account must have that address, otherwise the oldest
// company user is used.
func ResolvePlatformAccounts(ctx context.Context, db *gorm.DB, email string) (*PlatformAccounts, error) {
	query := db.WithContext(ctx).Where("role = ?", models.RoleCompany)
	if email != "" {
		query = query.Where("email = ?", email)
	}

	var company models.User
	err := query.Order("created_at asc").First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		zap.L().Warn("no company account found, company share of scans will not be recorded",
			zap.String("email", email))
		return &PlatformAccounts{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve company account: %w", err)
	}

	zap.L().Info("resolved company account", zap.String("user_id", company.ID.String()))
	return &PlatformAccounts{Company: &company}, nil
}
