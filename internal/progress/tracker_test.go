package progress

import (
	"strings"
	"testing"
)

func TestStart_InitialSnapshot(t *testing.T) {
	tr := New()
	id := tr.Start([]int64{1, 2, 3})

	if !strings.HasPrefix(id, "batch_") {
		t.Errorf("batch id %q missing prefix", id)
	}
	snap, ok := tr.Get(id)
	if !ok {
		t.Fatal("snapshot missing after Start")
	}
	if snap.Status != StatusStarting {
		t.Errorf("status = %q, want %q", snap.Status, StatusStarting)
	}
	if snap.TotalDocuments != 3 || snap.ProcessedDocuments != 0 {
		t.Errorf("unexpected counts: %+v", snap)
	}
}

func TestStart_UniqueIDs(t *testing.T) {
	tr := New()
	a := tr.Start([]int64{1})
	b := tr.Start([]int64{2})
	if a == b {
		t.Errorf("batch ids collided: %q", a)
	}
}

func TestIncrementProcessed_PageWeighted(t *testing.T) {
	tr := New()
	id := tr.Start([]int64{1, 2})
	tr.SetTotalPages(id, 10)

	tr.IncrementProcessed(id, 3)
	snap, _ := tr.Get(id)
	if snap.ProgressPercentage != 30 {
		t.Errorf("percentage = %d, want 30", snap.ProgressPercentage)
	}
	if snap.ProcessedDocuments != 1 || snap.ProcessedPages != 3 {
		t.Errorf("unexpected counts: %+v", snap)
	}

	tr.IncrementProcessed(id, 7)
	snap, _ = tr.Get(id)
	if snap.ProgressPercentage != 100 {
		t.Errorf("percentage = %d, want 100", snap.ProgressPercentage)
	}
}

func TestIncrementProcessed_DocumentWeightedFallback(t *testing.T) {
	tr := New()
	id := tr.Start([]int64{1, 2, 3, 4})

	tr.IncrementProcessed(id, 0)
	snap, _ := tr.Get(id)
	if snap.ProgressPercentage != 25 {
		t.Errorf("percentage = %d, want 25", snap.ProgressPercentage)
	}
}

func TestComplete_FinalState(t *testing.T) {
	tr := New()
	id := tr.Start([]int64{7})

	tr.Complete(id, []DocumentResult{{ExtractionID: 7, DocID: "d7", Success: true, Pages: 2}})
	snap, ok := tr.Get(id)
	if !ok {
		t.Fatal("snapshot gone immediately after Complete")
	}
	if snap.Status != StatusCompleted || snap.ProgressPercentage != 100 {
		t.Errorf("unexpected final snapshot: %+v", snap)
	}
	if len(snap.Results) != 1 || snap.Results[0].DocID != "d7" {
		t.Errorf("results not recorded: %+v", snap.Results)
	}
	if snap.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
}

func TestFail_RetainsSnapshot(t *testing.T) {
	tr := New()
	id := tr.Start([]int64{1})

	tr.Fail(id, "No documents found in queue")
	snap, ok := tr.Get(id)
	if !ok {
		t.Fatal("failed snapshot must stay queryable")
	}
	if snap.Status != StatusFailed {
		t.Errorf("status = %q, want %q", snap.Status, StatusFailed)
	}
	if len(snap.Errors) != 1 || snap.Errors[0] != "No documents found in queue" {
		t.Errorf("errors = %v", snap.Errors)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	tr := New()
	id := tr.Start([]int64{1})

	snap, _ := tr.Get(id)
	snap.Status = "mutated"
	snap.QueueIDs[0] = 99

	fresh, _ := tr.Get(id)
	if fresh.Status == "mutated" || fresh.QueueIDs[0] == 99 {
		t.Error("Get must return a deep copy")
	}
}

func TestGet_UnknownBatch(t *testing.T) {
	tr := New()
	if _, ok := tr.Get("batch_0_0"); ok {
		t.Error("unknown batch id must not resolve")
	}
}

func TestRegister_AdoptsCallerID(t *testing.T) {
	tr := New()
	tr.Register("client-batch", []int64{1, 2})

	snap, ok := tr.Get("client-batch")
	if !ok || snap.TotalDocuments != 2 {
		t.Fatalf("registered batch missing or wrong: %+v", snap)
	}

	// Re-registering must not reset progress.
	tr.IncrementProcessed("client-batch", 4)
	tr.Register("client-batch", []int64{1, 2})
	snap, _ = tr.Get("client-batch")
	if snap.ProcessedDocuments != 1 {
		t.Errorf("re-register reset progress: %+v", snap)
	}
}

func TestUpdate_RecomputesPercentage(t *testing.T) {
	tr := New()
	id := tr.Start([]int64{1, 2})

	tr.Update(id, func(s *Snapshot) {
		s.Status = StatusProcessing
		s.ProcessedDocuments = 1
	})
	snap, _ := tr.Get(id)
	if snap.Status != StatusProcessing {
		t.Errorf("status = %q", snap.Status)
	}
	if snap.ProgressPercentage != 50 {
		t.Errorf("percentage = %d, want 50", snap.ProgressPercentage)
	}
}
