package model

import (
	"time"

	"github.com/google/uuid"
)

// CashRegister is catalog reference data: a physical till bound to a
// warehouse. This service only reads it.
type CashRegister struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code string    `gorm:"type:varchar(40);uniqueIndex;not null"`
	Name string    `gorm:"not null"`

	WarehouseCode string `gorm:"type:varchar(40);not null"`
	// AllowWarehouseOverride lets invoicing pick a different warehouse
	// manually; irrelevant to the session core but part of the snapshot.
	AllowWarehouseOverride bool    `gorm:"not null;default:false"`
	DefaultCustomer        *string `gorm:"type:varchar(120)"`
	Active                 bool    `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegisterAssignment binds an admin user to a register they may operate.
// Many-to-many: one admin can work several tills, one till several admins.
type RegisterAssignment struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AdminUserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_admin_register"`
	CashRegisterID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_admin_register"`
	IsDefault      bool      `gorm:"not null;default:false"`

	CashRegister CashRegister `gorm:"foreignKey:CashRegisterID"`

	CreatedAt time.Time
}
