package intake

import (
	"strings"
	"testing"

	"github.com/folio-dashboard/importer/internal/models"
	"github.com/folio-dashboard/importer/internal/notify"
	"github.com/folio-dashboard/importer/internal/testutil"
)

const testMaxSize = 10 * 1024 * 1024

func TestIntakeAccepted(t *testing.T) {
	rec := testutil.NewNotifyRecorder()
	v := NewValidator(testMaxSize, rec)

	res := v.Intake([]Candidate{
		{Name: "account-statement_2024.csv", Size: 1024},
		{Name: "koinly-export.csv", Size: 2048},
	})

	if len(res.Accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d", len(res.Accepted))
	}
	if res.Accepted[0].Classification != models.ClassMetals {
		t.Errorf("expected metals classification, got %v", res.Accepted[0].Classification)
	}
	if res.Accepted[1].Classification != models.ClassCrypto {
		t.Errorf("expected crypto classification, got %v", res.Accepted[1].Classification)
	}
	for _, f := range res.Accepted {
		if f.Status != models.StatusPending {
			t.Errorf("%s: expected pending status, got %v", f.Name, f.Status)
		}
		if f.ID == "" {
			t.Errorf("%s: expected a generated ID", f.Name)
		}
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("expected no notifications for a clean selection, got %d", len(rec.Calls()))
	}
}

func TestIntakeRejectsNonCSV(t *testing.T) {
	rec := testutil.NewNotifyRecorder()
	v := NewValidator(testMaxSize, rec)

	res := v.Intake([]Candidate{
		{Name: "report.pdf", Size: 100},
		{Name: "koinly.csv", Size: 100},
		{Name: "notes.txt", Size: 100},
	})

	if len(res.Accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %d", len(res.Accepted))
	}
	if len(res.RejectedNonCSV) != 2 {
		t.Fatalf("expected 2 rejected, got %d", len(res.RejectedNonCSV))
	}

	// One aggregate notification naming both rejected files.
	errs := rec.ByLevel(notify.LevelError)
	if len(errs) != 1 {
		t.Fatalf("expected 1 aggregate error notification, got %d", len(errs))
	}
	if !strings.Contains(errs[0].Detail, "report.pdf") || !strings.Contains(errs[0].Detail, "notes.txt") {
		t.Errorf("aggregate notification should name both files, got %q", errs[0].Detail)
	}
}

func TestIntakeCaseInsensitiveExtension(t *testing.T) {
	rec := testutil.NewNotifyRecorder()
	v := NewValidator(testMaxSize, rec)

	res := v.Intake([]Candidate{{Name: "KOINLY-EXPORT.CSV", Size: 100}})
	if len(res.Accepted) != 1 {
		t.Fatalf("expected uppercase .CSV to be accepted, got %d accepted", len(res.Accepted))
	}
}

func TestIntakeOversized(t *testing.T) {
	rec := testutil.NewNotifyRecorder()
	v := NewValidator(testMaxSize, rec)

	res := v.Intake([]Candidate{
		{Name: "koinly-big.csv", Size: testMaxSize + 1},
		{Name: "koinly-exact.csv", Size: testMaxSize},
	})

	if len(res.Oversized) != 1 || res.Oversized[0] != "koinly-big.csv" {
		t.Fatalf("expected only the over-limit file dropped, got %v", res.Oversized)
	}
	// A file exactly at the limit is accepted.
	if len(res.Accepted) != 1 || res.Accepted[0].Name != "koinly-exact.csv" {
		t.Fatalf("expected the at-limit file accepted, got %v", res.Accepted)
	}

	errs := rec.ByLevel(notify.LevelError)
	if len(errs) != 1 {
		t.Fatalf("expected 1 per-file error notification, got %d", len(errs))
	}
	if !strings.Contains(errs[0].Detail, "koinly-big.csv") {
		t.Errorf("notification should name the file, got %q", errs[0].Detail)
	}
}

func TestIntakeUnknownFormatAcceptedWithWarning(t *testing.T) {
	rec := testutil.NewNotifyRecorder()
	v := NewValidator(testMaxSize, rec)

	res := v.Intake([]Candidate{{Name: "mystery.csv", Size: 100}})

	if len(res.Accepted) != 1 {
		t.Fatalf("expected the unknown file to be accepted, got %d", len(res.Accepted))
	}
	if res.Accepted[0].Classification != models.ClassUnknown {
		t.Errorf("expected unknown classification, got %v", res.Accepted[0].Classification)
	}
	warnings := rec.ByLevel(notify.LevelWarning)
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning in the result, got %d", len(res.Warnings))
	}
}

func TestIntakePreservesOrder(t *testing.T) {
	rec := testutil.NewNotifyRecorder()
	v := NewValidator(testMaxSize, rec)

	res := v.Intake([]Candidate{
		{Name: "a-koinly.csv", Size: 1},
		{Name: "skip.pdf", Size: 1},
		{Name: "b-koinly.csv", Size: 1},
		{Name: "c-koinly.csv", Size: 1},
	})

	want := []string{"a-koinly.csv", "b-koinly.csv", "c-koinly.csv"}
	wantIdx := []int{0, 2, 3}
	if len(res.Accepted) != len(want) {
		t.Fatalf("expected %d accepted, got %d", len(want), len(res.Accepted))
	}
	for i, name := range want {
		if res.Accepted[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, res.Accepted[i].Name)
		}
		if res.Accepted[i].SelectionIndex != wantIdx[i] {
			t.Errorf("position %d: expected selection index %d, got %d", i, wantIdx[i], res.Accepted[i].SelectionIndex)
		}
	}
}

func TestIntakeIndexWithDuplicateNames(t *testing.T) {
	rec := testutil.NewNotifyRecorder()
	v := NewValidator(testMaxSize, rec)

	// Same name twice: the first copy is oversized and dropped, the second
	// is fine. The accepted entry must point at the second slot.
	res := v.Intake([]Candidate{
		{Name: "koinly.csv", Size: testMaxSize + 1},
		{Name: "koinly.csv", Size: 25},
	})

	if len(res.Oversized) != 1 {
		t.Fatalf("expected 1 oversized, got %d", len(res.Oversized))
	}
	if len(res.Accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %d", len(res.Accepted))
	}
	if res.Accepted[0].SelectionIndex != 1 {
		t.Errorf("expected selection index 1, got %d", res.Accepted[0].SelectionIndex)
	}
	if res.Accepted[0].Size != 25 {
		t.Errorf("expected the small copy accepted, got size %d", res.Accepted[0].Size)
	}
}

func TestIntakeEmptySelection(t *testing.T) {
	rec := testutil.NewNotifyRecorder()
	v := NewValidator(testMaxSize, rec)

	res := v.Intake(nil)
	if len(res.Accepted) != 0 || len(res.RejectedNonCSV) != 0 || len(res.Oversized) != 0 {
		t.Fatalf("expected an empty result, got %+v", res)
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("expected no notifications, got %d", len(rec.Calls()))
	}
}
