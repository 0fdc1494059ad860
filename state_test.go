package dezoomify

import "testing"

func TestDownloadStateAccumulatesAcrossBatches(t *testing.T) {
	s := &DownloadState{}
	s.AddBatch(4, 4)
	s.AddBatch(3, 1)

	total, successful := s.Snapshot()
	if total != 7 || successful != 5 {
		t.Fatalf("unexpected totals: total=%d successful=%d", total, successful)
	}
	if !s.HasPartialFailure() {
		t.Fatal("expected partial failure once any batch under-reports successes")
	}
	if !s.IsSuccessful() {
		t.Fatal("at least one tile succeeded, IsSuccessful should be true")
	}
}

func TestDownloadStateNoTilesIsNotSuccessful(t *testing.T) {
	s := &DownloadState{}
	if s.IsSuccessful() {
		t.Fatal("a state with no batches should not report success")
	}
	if s.HasPartialFailure() {
		t.Fatal("a state with no batches has nothing to report as a partial failure")
	}
}

func TestDownloadStateAllTilesSucceeded(t *testing.T) {
	s := &DownloadState{}
	s.AddBatch(5, 5)
	if s.HasPartialFailure() {
		t.Fatal("every tile succeeded, there should be no partial failure")
	}
	if !s.IsSuccessful() {
		t.Fatal("expected IsSuccessful once tiles have succeeded")
	}
}
