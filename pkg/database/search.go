package database

import (
	"strings"

	"gorm.io/gorm"
)

// SearchGroups finds registration groups by agency name (case-insensitive)
// and EAN prefix, in table order.
func SearchGroups(agency, ean string, limit, offset int) ([]RangeGroup, int64, error) {
	q := DB.Model(&RangeGroup{})

	if a := strings.TrimSpace(agency); a != "" {
		q = q.Where("agency ILIKE ?", "%"+a+"%")
	}
	if e := strings.TrimSpace(ean); e != "" {
		q = q.Where("ean = ?", e)
	}

	var total int64
	q.Count(&total)

	var groups []RangeGroup
	if err := q.
		Preload("Rules", orderByPosition).
		Order("position ASC").
		Limit(limit).
		Offset(offset).
		Find(&groups).Error; err != nil {
		return nil, 0, err
	}

	return groups, total, nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
