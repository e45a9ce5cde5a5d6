package models

import (
	"strings"

	"gorm.io/datatypes"
)

// UserRole identifies which side of the platform a user is on
type UserRole string

const (
	RoleClient  UserRole = "client"
	RoleDCD     UserRole = "dcd"
	RoleDA      UserRole = "da"
	RoleAdmin   UserRole = "admin"
	RoleCompany UserRole = "company"
)

// UserProfile holds the targeting preferences a user registered with.
// Missing keys decode as empty lists.
type UserProfile struct {
	CampaignTypes []string `json:"campaign_types,omitempty"`
	MusicGenres   []string `json:"music_genres,omitempty"`
	BusinessTypes []string `json:"business_types,omitempty"`
}

// User is owned by the user directory; this service only reads it
type User struct {
	Base
	Email        string                          `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string                          `gorm:"type:varchar(255)" json:"name"`
	Role         UserRole                        `gorm:"type:varchar(20);index;not null" json:"role"`
	BusinessName string                          `gorm:"type:varchar(255)" json:"business_name"`
	AccountType  string                          `gorm:"type:varchar(100)" json:"account_type"`
	Profile      datatypes.JSONType[UserProfile] `gorm:"column:profile" json:"profile"`
	CountryCode  string                          `gorm:"type:varchar(2)" json:"country_code"`
	CountryName  string                          `gorm:"type:varchar(100)" json:"country_name"`
	IsActive     bool                            `gorm:"default:true" json:"is_active"`
}

// IsDCD reports whether the user is a digital content distributor
func (u *User) IsDCD() bool {
	return u != nil && u.Role == RoleDCD
}

// IsNigerian reports whether the user is registered in Nigeria
func (u *User) IsNigerian() bool {
	if u == nil {
		return false
	}
	return strings.EqualFold(u.CountryCode, "NG") || strings.EqualFold(strings.TrimSpace(u.CountryName), "nigeria")
}

// InCountry matches a target country given either as ISO code or name
func (u *User) InCountry(country string) bool {
	country = strings.TrimSpace(country)
	if u == nil || country == "" {
		return false
	}
	return strings.EqualFold(u.CountryCode, country) || strings.EqualFold(u.CountryName, country)
}
