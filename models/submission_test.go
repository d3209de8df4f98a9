package models

import (
	"testing"
	"time"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name          string
		stage         ValidationStage
		final         ValidationStage
		decision      Decision
		want          SubmissionStatus
		wantFinalized bool
		wantOK        bool
	}{
		{"first approve", StageAdvertiserFirst, StageAdvertiserSecond, DecisionApprove, StatusAdvertiserFirstApproved, false, true},
		{"admin approve", StageAdmin, StageAdvertiserSecond, DecisionApprove, StatusAdminApproved, false, true},
		{"second approve finalizes", StageAdvertiserSecond, StageAdvertiserSecond, DecisionApprove, StatusFinalizedApproved, true, true},
		{"admin approve when admin is final", StageAdmin, StageAdmin, DecisionApprove, StatusFinalizedApproved, true, true},
		{"first reject", StageAdvertiserFirst, StageAdvertiserSecond, DecisionReject, StatusRejectedAdvertiserFirst, false, true},
		{"admin reject", StageAdmin, StageAdvertiserSecond, DecisionReject, StatusRejectedAdmin, false, true},
		{"second reject", StageAdvertiserSecond, StageAdvertiserSecond, DecisionReject, StatusRejectedAdvertiserSecond, false, true},
		{"stage beyond final", StageAdvertiserSecond, StageAdmin, DecisionApprove, "", false, false},
		{"unknown stage", ValidationStage("legal"), StageAdvertiserSecond, DecisionApprove, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, finalized, ok := NextStatus(tt.stage, tt.final, tt.decision)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("status = %q, want %q", got, tt.want)
			}
			if finalized != tt.wantFinalized {
				t.Fatalf("finalized = %v, want %v", finalized, tt.wantFinalized)
			}
		})
	}
}

func TestRejectedStatusesAreTerminal(t *testing.T) {
	for _, stage := range Stages {
		st := stage.RejectedStatus()
		if !st.IsTerminal() || !st.IsRejected() {
			t.Fatalf("%s should be a terminal rejection", st)
		}
	}
	if !StatusFinalizedApproved.IsTerminal() {
		t.Fatal("finalized_approved should be terminal")
	}
	for _, st := range []SubmissionStatus{StatusPendingApproval, StatusAdvertiserFirstApproved, StatusAdminApproved} {
		if st.IsTerminal() {
			t.Fatalf("%s should not be terminal", st)
		}
	}
}

func TestAwaitingStatusChain(t *testing.T) {
	// each stage waits on the status the previous stage's approval produces
	for i := 1; i < len(Stages); i++ {
		if Stages[i].AwaitingStatus() != Stages[i-1].ApprovedStatus() {
			t.Fatalf("stage %s awaits %s, previous approval yields %s",
				Stages[i], Stages[i].AwaitingStatus(), Stages[i-1].ApprovedStatus())
		}
	}
}

func TestFoldSearchText(t *testing.T) {
	if got := FoldSearchText("  Missão Café  "); got != "missao cafe" {
		t.Fatalf("got %q", got)
	}
}

func TestRaffleArithmetic(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	r := Raffle{TicketCostRifas: 50, DrawAt: now.Add(90 * time.Minute), Status: RaffleStatusOpen}

	if got := r.TicketsFor(175); got != 3 {
		t.Fatalf("tickets for 175 rifas = %d, want 3", got)
	}
	if got := r.TicketsFor(-5); got != 0 {
		t.Fatalf("tickets for negative rifas = %d, want 0", got)
	}
	if got := r.TimeUntilDraw(now); got != 90*time.Minute {
		t.Fatalf("countdown = %s", got)
	}
	if got := r.TimeUntilDraw(now.Add(2 * time.Hour)); got != 0 {
		t.Fatalf("countdown after draw = %s, want 0", got)
	}
	if !r.AcceptsEntries(now) {
		t.Fatal("open raffle before draw should accept entries")
	}
	if r.AcceptsEntries(r.DrawAt) {
		t.Fatal("raffle should close at draw time")
	}
	r.Status = RaffleStatusDrawn
	if r.AcceptsEntries(now) {
		t.Fatal("drawn raffle should not accept entries")
	}
}
