package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOptionalZeroIsAbsent(t *testing.T) {
	var o Optional[float64]
	if o.IsSet() {
		t.Error("expected zero Optional to be absent")
	}
	if _, ok := o.Get(); ok {
		t.Error("expected Get to report absence")
	}
	if got := o.OrElse(-1); got != -1 {
		t.Errorf("OrElse = %v, want -1", got)
	}
}

func TestOptionalJSON(t *testing.T) {
	type summary struct {
		Avg    Optional[float64] `json:"avg"`
		Merged Optional[int]     `json:"merged"`
	}

	b, err := json.Marshal(summary{Merged: Some(0)})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"avg":null,"merged":0}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	var back summary
	if err := json.Unmarshal([]byte(`{"avg":48.5,"merged":null}`), &back); err != nil {
		t.Fatal(err)
	}
	if v, ok := back.Avg.Get(); !ok || v != 48.5 {
		t.Errorf("Avg = %v,%v, want 48.5,true", v, ok)
	}
	if back.Merged.IsSet() {
		t.Error("expected Merged to be absent")
	}
}

func TestPullRequestMerged(t *testing.T) {
	pr := PullRequest{CreatedAt: time.Now()}
	if pr.Merged() {
		t.Error("expected unmerged pull request")
	}
	pr.MergedAt = Some(time.Now())
	if !pr.Merged() {
		t.Error("expected merged pull request")
	}
}
