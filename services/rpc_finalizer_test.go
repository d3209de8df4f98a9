package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mission-rewards-system/models"
)

func TestRPCFinalizerSendsParams(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(FinalizationResult{
			SubmissionID:  "s1",
			Status:        models.StatusFinalizedApproved,
			BadgeEarned:   true,
			RifasCredited: 5,
		})
	}))
	defer srv.Close()

	f := NewRPCFinalizer(srv.URL+"/", "anon-key", srv.Client())
	res, err := f.FinalizeSubmission(context.Background(), FinalizeParams{
		SubmissionID: "s1",
		ApproverID:   "adv-1",
		Decision:     models.DecisionApprove,
		Stage:        models.StageAdvertiserSecond,
		Feedback:     "ok",
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/rpc/finalize_submission" || gotKey != "anon-key" {
		t.Fatalf("path=%q apikey=%q", gotPath, gotKey)
	}
	want := map[string]string{
		"p_submission_id": "s1",
		"p_approver_id":   "adv-1",
		"p_decision":      "approve",
		"p_stage":         "advertiser_second",
		"p_feedback":      "ok",
	}
	for k, v := range want {
		if gotBody[k] != v {
			t.Fatalf("%s = %q, want %q", k, gotBody[k], v)
		}
	}
	if !res.BadgeEarned || res.RifasCredited != 5 || res.Status != models.StatusFinalizedApproved {
		t.Fatalf("result = %+v", res)
	}
}

func TestRPCFinalizerRemoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusBadRequest, `{"message":"Submission is not awaiting this stage"}`, "Submission is not awaiting this stage"},
		{"error field", http.StatusForbidden, `{"error":"permission denied"}`, "permission denied"},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down"},
		{"empty body", http.StatusInternalServerError, "", "finalize_submission returned status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRPCFinalizer(srv.URL, "", srv.Client()).FinalizeSubmission(context.Background(), FinalizeParams{SubmissionID: "s1"})
			var remote *RemoteError
			if !errors.As(err, &remote) {
				t.Fatalf("err = %v, want RemoteError", err)
			}
			if remote.StatusCode != tt.status || err.Error() != tt.want {
				t.Fatalf("got %d %q, want %d %q", remote.StatusCode, err.Error(), tt.status, tt.want)
			}
		})
	}
}

func TestRPCFinalizerTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	out := NewDecisionRecorder(NewRPCFinalizer(url, "", http.DefaultClient)).RecordDecision(context.Background(), DecisionInput{
		SubmissionID: "s1", ApproverID: "adv-1",
		Decision: models.DecisionApprove, Stage: models.StageAdvertiserFirst,
	})
	if out.Success || out.Error == "" {
		t.Fatalf("outcome = %+v, want failure with a message", out)
	}
}

func TestRPCFinalizerRetroactive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpc/retroactively_award_badges" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"scanned":4,"awarded":3}`))
	}))
	defer srv.Close()

	res, err := NewRPCFinalizer(srv.URL, "", srv.Client()).RetroactivelyAwardBadges(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Scanned != 4 || res.Awarded != 3 {
		t.Fatalf("result = %+v", res)
	}
}
