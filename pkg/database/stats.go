package database

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
)

// TypeCount represents a count by type
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// CachedStats holds the cached database statistics
type CachedStats struct {
	LastSync string      `json:"lastSync"`
	Source   string      `json:"source"`
	Serial   string      `json:"serial"`
	Groups   int         `json:"groups"`
	Rules    int         `json:"rules"`
	Prefixes []TypeCount `json:"prefixes"`
}

// statsCache holds the singleton instance
type statsCache struct {
	mu    sync.RWMutex
	stats *CachedStats
}

var cache = &statsCache{}

// GetCachedStats returns the cached stats if available, nil otherwise
func GetCachedStats() *CachedStats {
	if !cache.mu.TryRLock() {
		return nil
	}
	defer cache.mu.RUnlock()

	return cache.stats
}

// ComputeAndCacheStats computes the stats from the database and stores them in cache
func ComputeAndCacheStats(force bool) *CachedStats {
	if force {
		cache.mu.Lock()
	} else {
		if !cache.mu.TryLock() {
			// Another computation is in progress, return nil to indicate stats are not available
			return nil
		}
	}
	defer cache.mu.Unlock()

	stats := &CachedStats{}

	var lastSync Synchronization
	err := DB.Where("complete = ?", true).Order("date DESC").First(&lastSync).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// never synchronized, cannot compute stats
		return nil
	}
	if err == nil {
		stats.LastSync = lastSync.Date.Format(time.RFC3339)
		stats.Source = lastSync.Source
		stats.Serial = lastSync.Serial
	}

	var groupCount, ruleCount int64
	DB.Model(&RangeGroup{}).Count(&groupCount)
	DB.Model(&RangeRule{}).Count(&ruleCount)
	stats.Groups = int(groupCount)
	stats.Rules = int(ruleCount)

	// Count groups by EAN prefix
	DB.Model(&RangeGroup{}).
		Select("ean as type, COUNT(*) as count").
		Group("ean").
		Order("ean").
		Scan(&stats.Prefixes)

	cache.stats = stats
	return cache.stats
}
