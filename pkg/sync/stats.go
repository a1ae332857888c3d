package sync

import (
	"sync"
	"time"
)

// Stage is the step a running synchronization is at.
type Stage string

const (
	StageIdle     Stage = ""
	StageFetching Stage = "FETCHING"
	StageStoring  Stage = "STORING"
)

// SyncStats holds the current sync progress information
type SyncStats struct {
	IsRunning  bool      `json:"isRunning"`
	URL        string    `json:"url"`
	Stage      Stage     `json:"stage"`
	StartedAt  time.Time `json:"startedAt,omitzero"`
	LastSerial string    `json:"lastSerial"`
	LastError  string    `json:"lastError,omitempty"`
	Groups     int       `json:"groups"`
	Rules      int       `json:"rules"`
}

var (
	statsMu sync.RWMutex
	stats   SyncStats
)

// GetStats returns a copy of current sync stats
func GetStats() SyncStats {
	statsMu.RLock()
	defer statsMu.RUnlock()

	return stats
}

func startSync(url string) {
	statsMu.Lock()
	defer statsMu.Unlock()

	stats.IsRunning = true
	stats.URL = url
	stats.Stage = StageFetching
	stats.StartedAt = time.Now()
	stats.LastError = ""
}

func setStage(stage Stage) {
	statsMu.Lock()
	defer statsMu.Unlock()

	stats.Stage = stage
}

// endSync marks the sync as completed, err may be nil
func endSync(serial string, groups, rules int, err error) {
	statsMu.Lock()
	defer statsMu.Unlock()

	stats.IsRunning = false
	stats.Stage = StageIdle
	if err != nil {
		stats.LastError = err.Error()
		return
	}
	stats.LastSerial = serial
	stats.Groups = groups
	stats.Rules = rules
}
