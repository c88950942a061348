package status

import "time"

// SyncPhase is the phase of the last regulation sync
type SyncPhase string

const (
	// SyncPhaseSyncing means a sync is in progress or was interrupted
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the last sync succeeded
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the last sync exhausted its attempts
	SyncPhaseFailed SyncPhase = "Failed"
)

// SyncStatus records the outcome of syncing one regulation namespace
type SyncStatus struct {
	Phase SyncPhase `json:"phase"`

	// Message carries the last error, or a short summary on success
	Message string `json:"message,omitempty"`

	// ErrorKind is the classification of the last failure
	ErrorKind string `json:"errorKind,omitempty"`

	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of attempts made by the last sync
	AttemptCount int `json:"attemptCount,omitempty"`

	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`

	// LastVersion and LastDigest describe the last successfully synced package
	LastVersion string `json:"lastVersion,omitempty"`
	LastDigest  string `json:"lastDigest,omitempty"`

	// Offline is set when the last sync was served from the cache
	Offline bool `json:"offline,omitempty"`

	// RunID identifies the multi-regulation sync that wrote this status
	RunID string `json:"runId,omitempty"`
}
