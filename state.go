package dezoomify

import "sync"

// DownloadState accumulates tile counts across the batches a ZoomLevelIter
// produces, grounded on original_source/src/download_state.rs::DownloadState.
type DownloadState struct {
	mu              sync.Mutex
	totalTiles      uint64
	successfulTiles uint64
}

// AddBatch folds one batch's tile counts into the running totals.
func (s *DownloadState) AddBatch(count, successes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalTiles += count
	s.successfulTiles += successes
}

// Snapshot returns the current totals.
func (s *DownloadState) Snapshot() (total, successful uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalTiles, s.successfulTiles
}

// HasPartialFailure reports whether any tile in any batch so far failed.
func (s *DownloadState) HasPartialFailure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successfulTiles < s.totalTiles
}

// IsSuccessful reports whether at least one tile has succeeded.
func (s *DownloadState) IsSuccessful() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successfulTiles > 0
}
