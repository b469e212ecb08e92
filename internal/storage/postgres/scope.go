package postgres

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantScope returns a GORM scope that filters by org_id.
// Must be applied to every query in every repository method for multi-tenancy.
func TenantScope(orgID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("org_id = ?", orgID)
	}
}

// fuzzyMatch returns a GORM scope doing a case-insensitive substring match on
// the given column. LOWER + LIKE keeps it portable across both backends.
func fuzzyMatch(column, query string) func(*gorm.DB) *gorm.DB {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER("+column+") LIKE ?", pattern)
	}
}
