package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// RemoteError is a non-2xx answer from the hosted backend. Error returns the
// backend's message verbatim.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// RPCFinalizer calls finalize_submission and retroactively_award_badges on a hosted
// backend that exposes database functions at POST {BaseURL}/rpc/{name}.
type RPCFinalizer struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewRPCFinalizer(baseURL, apiKey string, client *http.Client) *RPCFinalizer {
	return &RPCFinalizer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  client,
	}
}

var _ Finalizer = (*RPCFinalizer)(nil)

func (f *RPCFinalizer) FinalizeSubmission(ctx context.Context, p FinalizeParams) (*FinalizationResult, error) {
	var out FinalizationResult
	if err := f.call(ctx, "finalize_submission", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *RPCFinalizer) RetroactivelyAwardBadges(ctx context.Context) (*RetroactiveAwardResult, error) {
	var out RetroactiveAwardResult
	if err := f.call(ctx, "retroactively_award_badges", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *RPCFinalizer) call(ctx context.Context, name string, params, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s params: %w", name, err)
	}

	url := fmt.Sprintf("%s/rpc/%s", f.BaseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.APIKey != "" {
		req.Header.Set("apikey", f.APIKey)
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		log.Printf("[RPC] ❌ %s request failed: %v", name, err)
		return fmt.Errorf("%s request failed: %w", name, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RemoteError{StatusCode: resp.StatusCode, Message: remoteMessage(name, resp.StatusCode, raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", name, err)
	}
	return nil
}

// remoteMessage extracts the backend's error text from the usual {"message"} / {"error"} bodies.
func remoteMessage(name string, status int, raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return fmt.Sprintf("%s returned status %d", name, status)
}
