package database

import (
	"time"

	"github.com/lib/pq"
)

type Model struct {
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// RangeGroup is a registration group of the active range table.
type RangeGroup struct {
	Model

	Prefix   string `json:"prefix" gorm:"primaryKey"`
	EAN      string `json:"ean" gorm:"index:idx_range_group_ean"`
	Position int    `json:"position" gorm:"index:idx_range_group_position"`
	Agency   string `json:"agency" gorm:"index:idx_range_group_agency,type:gin,expression:agency gin_trgm_ops"`

	Rules []RangeRule `json:"rules" gorm:"foreignKey:Group;references:Prefix;constraint:OnDelete:CASCADE"`
}

// RangeRule is one registrant rule of a group; Position keeps declaration order.
type RangeRule struct {
	Model

	Group    string `json:"-" gorm:"primaryKey"`
	Position int    `json:"position" gorm:"primaryKey"`
	Low      int    `json:"low"`
	High     int    `json:"high"`
	Length   int    `json:"length"`
}

type Synchronization struct {
	Date        time.Time      `json:"date" gorm:"primaryKey;type:timestamptz"`
	Source      string         `json:"source"`
	Serial      string         `json:"serial" gorm:"index:idx_synchronization_serial"` // MessageSerialNumber of the range message
	MessageDate time.Time      `json:"messageDate" gorm:"type:timestamptz"`
	Groups      int            `json:"groups"`
	Rules       int            `json:"rules"`
	Warnings    pq.StringArray `json:"warnings" gorm:"type:text[]"`
	Complete    bool           `json:"complete"`
}
