package domain

import (
	"errors"
	"testing"
	"time"
)

func TestGrowthStageOrdering(t *testing.T) {
	order := []GrowthStage{StageSeed, StageSprout, StageGrowing, StageAdult}
	for i, stage := range order {
		if !stage.IsValid() {
			t.Fatalf("stage %v should be valid", stage)
		}
		next, ok := stage.Next()
		if i == len(order)-1 {
			if ok {
				t.Fatalf("terminal stage should not advance")
			}
			if !stage.IsTerminal() {
				t.Fatalf("adult should be terminal")
			}
			continue
		}
		if !ok || next != order[i+1] {
			t.Fatalf("stage %v.Next() = %v, want %v", stage, next, order[i+1])
		}
	}
	if GrowthStage(9).IsValid() {
		t.Fatalf("out-of-range stage should be invalid")
	}
	if got := GrowthStage(9).String(); got != "unknown" {
		t.Fatalf("out-of-range stage name %q", got)
	}
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		quantity uint64
		want     DonationTier
	}{
		{1, TierSeedling},
		{3, TierSeedling},
		{4, TierSeedling},
		{5, TierGrower},
		{8, TierGrower},
		{9, TierGrower},
		{10, TierPatron},
		{12, TierPatron},
		{15, TierPatron},
	}
	for _, c := range cases {
		if got := TierFor(c.quantity); got != c.want {
			t.Fatalf("TierFor(%d) = %d, want %d", c.quantity, got, c.want)
		}
	}
}

func TestPlantDwellElapsed(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	plant := Plant{LastStageAt: base}
	if plant.DwellElapsed(base.Add(StageDwell - time.Second)) {
		t.Fatalf("dwell should not have elapsed one second early")
	}
	if !plant.DwellElapsed(base.Add(StageDwell)) {
		t.Fatalf("dwell should elapse exactly at the boundary")
	}
}

func TestPlotNeglect(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	plot := Plot{PlantedAt: base, LastWateredAt: base}
	if plot.NeglectLapsed(base.Add(PlotNeglectWindow)) {
		t.Fatalf("neglect window boundary should still be alive")
	}
	if !plot.NeglectLapsed(base.Add(PlotNeglectWindow + time.Second)) {
		t.Fatalf("past the neglect window the plot should be dead")
	}
	if got := plot.Age(base.Add(time.Hour)); got != time.Hour {
		t.Fatalf("age = %v, want 1h", got)
	}
}

func TestNotFoundErrorMessages(t *testing.T) {
	err := NotFoundError{Entity: EntityPlant, Key: "7"}
	if got, want := err.Error(), "plant 7 not found"; got != want {
		t.Fatalf("message %q, want %q", got, want)
	}
	err = NotFoundError{Entity: EntityPlot, Key: "alice"}
	if got, want := err.Error(), "no plot for owner alice"; got != want {
		t.Fatalf("message %q, want %q", got, want)
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound should match NotFoundError")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatalf("IsNotFound should not match arbitrary errors")
	}
}

func TestResultMergeAndBlocking(t *testing.T) {
	var r Result
	r.Merge(Result{Events: []Event{{Kind: EventPlantSeeded}}})
	r.Merge(Result{Violations: []Violation{{Rule: "x", Severity: SeverityWarn}}})
	if len(r.Events) != 1 || len(r.Violations) != 1 {
		t.Fatalf("merge lost entries: %+v", r)
	}
	if r.HasBlocking() {
		t.Fatalf("warn severity should not block")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "y", Severity: SeverityBlock}}})
	if !r.HasBlocking() {
		t.Fatalf("block severity should block")
	}
}
