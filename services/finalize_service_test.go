package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"mission-rewards-system/models"

	"gorm.io/gorm"
)

const (
	advertiser = "adv-1"
	adminUser  = "admin-1"
	consumer   = "user-1"
)

func approve(t *testing.T, f *FinalizeService, subID, approver string, stage models.ValidationStage) *FinalizationResult {
	t.Helper()
	res, err := f.FinalizeSubmission(context.Background(), FinalizeParams{
		SubmissionID: subID,
		ApproverID:   approver,
		Decision:     models.DecisionApprove,
		Stage:        stage,
	})
	if err != nil {
		t.Fatalf("approve at %s: %v", stage, err)
	}
	return res
}

func TestFinalizeFullPipelineCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	f := NewFinalizeService(db)
	badge := seedBadge(t, db, "first-mission")
	m := seedMission(t, db, advertiser, withBadge(badge.ID))
	sub := seedSubmission(t, db, m.ID, consumer)

	res := approve(t, f, sub.ID, advertiser, models.StageAdvertiserFirst)
	if res.Status != models.StatusAdvertiserFirstApproved || res.RifasCredited != 0 {
		t.Fatalf("after first stage: %+v", res)
	}
	res = approve(t, f, sub.ID, adminUser, models.StageAdmin)
	if res.Status != models.StatusAdminApproved {
		t.Fatalf("after admin: %+v", res)
	}
	if b := balanceOf(t, db, consumer); b.Rifas != 0 {
		t.Fatalf("credited before final stage: %+v", b)
	}

	res = approve(t, f, sub.ID, advertiser, models.StageAdvertiserSecond)
	if res.Status != models.StatusFinalizedApproved {
		t.Fatalf("status = %s", res.Status)
	}
	if res.RifasCredited != 10 || res.CashbackCredited != 2.5 {
		t.Fatalf("credited %d rifas / %.2f cashback", res.RifasCredited, res.CashbackCredited)
	}
	if !res.BadgeEarned || res.BadgeCode != "first-mission" {
		t.Fatalf("badge: earned=%t code=%q", res.BadgeEarned, res.BadgeCode)
	}
	if !strings.Contains(res.Summary, "+10 rifas") {
		t.Fatalf("summary = %q", res.Summary)
	}

	b := balanceOf(t, db, consumer)
	if b.Rifas != 10 || b.TotalApprovedSubmissions != 1 || b.TotalRifasEarned != 10 {
		t.Fatalf("balance = %+v", b)
	}

	var decisions int64
	db.Model(&models.SubmissionDecision{}).Where("submission_id = ?", sub.ID).Count(&decisions)
	if decisions != 3 {
		t.Fatalf("decisions = %d, want 3", decisions)
	}
	var grants int64
	db.Model(&models.RewardGrant{}).Where("user_id = ?", consumer).Count(&grants)
	if grants != 2 {
		t.Fatalf("ledger rows = %d, want mission + badge", grants)
	}

	// a second final approval is refused and pays nothing
	_, err := f.FinalizeSubmission(context.Background(), FinalizeParams{
		SubmissionID: sub.ID, ApproverID: advertiser,
		Decision: models.DecisionApprove, Stage: models.StageAdvertiserSecond,
	})
	if !errors.Is(err, ErrSubmissionTerminal) {
		t.Fatalf("repeat final approval err = %v", err)
	}
	if b := balanceOf(t, db, consumer); b.Rifas != 10 {
		t.Fatalf("balance changed on repeat: %+v", b)
	}
}

func TestFinalizeRejectIsTerminal(t *testing.T) {
	db := newTestDB(t)
	f := NewFinalizeService(db)
	m := seedMission(t, db, advertiser)
	sub := seedSubmission(t, db, m.ID, consumer)

	approve(t, f, sub.ID, advertiser, models.StageAdvertiserFirst)
	res, err := f.FinalizeSubmission(context.Background(), FinalizeParams{
		SubmissionID: sub.ID, ApproverID: adminUser,
		Decision: models.DecisionReject, Stage: models.StageAdmin,
		Feedback: "foto ilegível",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.StatusRejectedAdmin {
		t.Fatalf("status = %s", res.Status)
	}

	var d models.SubmissionDecision
	if err := db.Where("submission_id = ? AND stage = ?", sub.ID, models.StageAdmin).First(&d).Error; err != nil {
		t.Fatal(err)
	}
	if d.Feedback != "foto ilegível" || d.FromStatus != models.StatusAdvertiserFirstApproved {
		t.Fatalf("audit row = %+v", d)
	}

	for _, stage := range []models.ValidationStage{models.StageAdmin, models.StageAdvertiserSecond} {
		_, err := f.FinalizeSubmission(context.Background(), FinalizeParams{
			SubmissionID: sub.ID, ApproverID: advertiser,
			Decision: models.DecisionApprove, Stage: stage,
		})
		if !errors.Is(err, ErrSubmissionTerminal) {
			t.Fatalf("approve at %s after reject: err = %v", stage, err)
		}
	}
	if b := balanceOf(t, db, consumer); b.Rifas != 0 {
		t.Fatalf("rejected submission credited: %+v", b)
	}
}

func TestFinalizeRejections(t *testing.T) {
	db := newTestDB(t)
	f := NewFinalizeService(db)
	m := seedMission(t, db, advertiser)
	sub := seedSubmission(t, db, m.ID, consumer)

	tests := []struct {
		name string
		p    FinalizeParams
		want error
	}{
		{
			name: "unknown decision",
			p:    FinalizeParams{SubmissionID: sub.ID, ApproverID: advertiser, Decision: "maybe", Stage: models.StageAdvertiserFirst},
			want: ErrInvalidDecision,
		},
		{
			name: "unknown stage",
			p:    FinalizeParams{SubmissionID: sub.ID, ApproverID: advertiser, Decision: models.DecisionApprove, Stage: "qa"},
			want: ErrInvalidStage,
		},
		{
			name: "missing submission",
			p:    FinalizeParams{SubmissionID: "00000000-0000-0000-0000-000000000000", ApproverID: advertiser, Decision: models.DecisionApprove, Stage: models.StageAdvertiserFirst},
			want: ErrSubmissionNotFound,
		},
		{
			name: "stage out of order",
			p:    FinalizeParams{SubmissionID: sub.ID, ApproverID: adminUser, Decision: models.DecisionApprove, Stage: models.StageAdmin},
			want: ErrStageMismatch,
		},
		{
			name: "advertiser of another mission",
			p:    FinalizeParams{SubmissionID: sub.ID, ApproverID: "adv-2", Decision: models.DecisionApprove, Stage: models.StageAdvertiserFirst},
			want: ErrUnauthorizedApprover,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.FinalizeSubmission(context.Background(), tt.p)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !IsBusinessRuleError(err) {
				t.Fatalf("%v should be a business-rule error", err)
			}
		})
	}

	if got := reloadSubmission(t, db, sub.ID).Status; got != models.StatusPendingApproval {
		t.Fatalf("status moved to %s", got)
	}
}

func TestFinalizeShortPipeline(t *testing.T) {
	db := newTestDB(t)
	f := NewFinalizeService(db)
	m := seedMission(t, db, advertiser, withFinalStage(models.StageAdmin))
	sub := seedSubmission(t, db, m.ID, consumer)

	approve(t, f, sub.ID, advertiser, models.StageAdvertiserFirst)
	res := approve(t, f, sub.ID, adminUser, models.StageAdmin)
	if res.Status != models.StatusFinalizedApproved || res.RifasCredited != 10 {
		t.Fatalf("admin as final stage: %+v", res)
	}

	_, err := f.FinalizeSubmission(context.Background(), FinalizeParams{
		SubmissionID: sub.ID, ApproverID: advertiser,
		Decision: models.DecisionApprove, Stage: models.StageAdvertiserSecond,
	})
	if !errors.Is(err, ErrStageNotConfigured) {
		t.Fatalf("stage past final: err = %v", err)
	}
}

func TestFinalizeBadgeOwnedOnce(t *testing.T) {
	db := newTestDB(t)
	f := NewFinalizeService(db)
	badge := seedBadge(t, db, "brand-ambassador")
	m1 := seedMission(t, db, advertiser, withBadge(badge.ID), withFinalStage(models.StageAdvertiserFirst))
	m2 := seedMission(t, db, advertiser, withBadge(badge.ID), withFinalStage(models.StageAdvertiserFirst))

	first := approve(t, f, seedSubmission(t, db, m1.ID, consumer).ID, advertiser, models.StageAdvertiserFirst)
	second := approve(t, f, seedSubmission(t, db, m2.ID, consumer).ID, advertiser, models.StageAdvertiserFirst)

	if !first.BadgeEarned || second.BadgeEarned {
		t.Fatalf("badge earned first=%t second=%t", first.BadgeEarned, second.BadgeEarned)
	}
	if second.RifasCredited != 10 {
		t.Fatalf("second mission still pays: %+v", second)
	}
	var owned int64
	db.Model(&models.UserBadge{}).Where("external_user_id = ?", consumer).Count(&owned)
	if owned != 1 {
		t.Fatalf("user badges = %d", owned)
	}
}

func TestRetroactivelyAwardBadges(t *testing.T) {
	db := newTestDB(t)
	f := NewFinalizeService(db)
	m := seedMission(t, db, advertiser, withFinalStage(models.StageAdvertiserFirst))
	approve(t, f, seedSubmission(t, db, m.ID, consumer).ID, advertiser, models.StageAdvertiserFirst)
	approve(t, f, seedSubmission(t, db, m.ID, "user-2").ID, advertiser, models.StageAdvertiserFirst)
	seedSubmission(t, db, m.ID, "user-3") // still pending

	badge := seedBadge(t, db, "checkin-explorer")
	if err := db.Model(&models.Mission{}).Where("id = ?", m.ID).Update("badge_type_id", badge.ID).Error; err != nil {
		t.Fatal(err)
	}

	res, err := f.RetroactivelyAwardBadges(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Awarded != 2 {
		t.Fatalf("awarded = %d, want 2", res.Awarded)
	}

	res, err = f.RetroactivelyAwardBadges(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Scanned != 0 || res.Awarded != 0 {
		t.Fatalf("second run = %+v, want nothing to do", res)
	}
}

func TestFinalizeConcurrentDecisionsCreditOnce(t *testing.T) {
	db := newTestDB(t)
	f := NewFinalizeService(db)
	m := seedMission(t, db, advertiser, withFinalStage(models.StageAdvertiserFirst))
	sub := seedSubmission(t, db, m.ID, consumer)

	const racers = 4
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.FinalizeSubmission(context.Background(), FinalizeParams{
				SubmissionID: sub.ID,
				ApproverID:   advertiser,
				Decision:     models.DecisionApprove,
				Stage:        models.StageAdvertiserFirst,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !IsBusinessRuleError(err):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d decisions succeeded, want 1 (errs=%v)", succeeded, errs)
	}

	var decisions int64
	db.Model(&models.SubmissionDecision{}).Where("submission_id = ?", sub.ID).Count(&decisions)
	if decisions != 1 {
		t.Fatalf("decisions = %d, want 1", decisions)
	}
	if b := balanceOf(t, db, consumer); b.Rifas != 10 || b.TotalApprovedSubmissions != 1 {
		t.Fatalf("balance = %+v", b)
	}
}

// A status change landing between the locked read and the update must abort the decision.
func TestFinalizeStatusChangedBeforeUpdate(t *testing.T) {
	db := newTestDB(t)
	f := NewFinalizeService(db)
	m := seedMission(t, db, advertiser)
	sub := seedSubmission(t, db, m.ID, consumer)

	interfere := true
	err := db.Callback().Update().Before("gorm:update").Register("test:interfere", func(tx *gorm.DB) {
		if !interfere || tx.Statement.Table != "submissions" {
			return
		}
		interfere = false
		// same connection as the running transaction
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE submissions SET status = ? WHERE id = ?", models.StatusRejectedAdvertiserFirst, sub.ID)
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.FinalizeSubmission(context.Background(), FinalizeParams{
		SubmissionID: sub.ID,
		ApproverID:   advertiser,
		Decision:     models.DecisionApprove,
		Stage:        models.StageAdvertiserFirst,
	})
	if !errors.Is(err, ErrStageMismatch) || !strings.Contains(err.Error(), "concurrently") {
		t.Fatalf("err = %v, want concurrent stage mismatch", err)
	}

	// the whole transaction rolled back, the interfering write included
	if got := reloadSubmission(t, db, sub.ID); got.Status != models.StatusPendingApproval {
		t.Fatalf("status = %s, want %s", got.Status, models.StatusPendingApproval)
	}
	var decisions int64
	db.Model(&models.SubmissionDecision{}).Where("submission_id = ?", sub.ID).Count(&decisions)
	if decisions != 0 {
		t.Fatalf("decisions = %d, want 0", decisions)
	}

	res := approve(t, f, sub.ID, advertiser, models.StageAdvertiserFirst)
	if res.Status != models.StatusAdvertiserFirstApproved {
		t.Fatalf("retry status = %s", res.Status)
	}
}
