package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/pipeline"
)

type stubHandler struct {
	lastReq pipeline.Request
	outcome model.Outcome
}

func (s *stubHandler) HandleRequest(_ context.Context, req pipeline.Request) model.Outcome {
	s.lastReq = req
	return s.outcome
}

type stubMissing struct {
	entries []model.MissingQuery
	err     error
}

func (s *stubMissing) RecordMissing(_ context.Context, _, _, _ string) error { return nil }

func (s *stubMissing) ListMissing(_ context.Context, limit int) ([]model.MissingQuery, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func testRouter(h *stubHandler, m *stubMissing) http.Handler {
	return newRouter(h, m, []string{"*"})
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(testRouter(&stubHandler{}, &stubMissing{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestCalculateReturnsResult(t *testing.T) {
	h := &stubHandler{outcome: model.Outcome{
		Result: &model.NutritionResult{
			Label:  "fajita",
			Totals: model.Totals{WeightG: 220, Calories: 315},
		},
	}}
	srv := httptest.NewServer(testRouter(h, &stubMissing{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/calculate", "application/json",
		strings.NewReader(`{"query":"fajita calories"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		SessionID string                 `json:"session_id"`
		Result    *model.NutritionResult `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.SessionID, "missing session id should be generated")
	require.NotNil(t, body.Result)
	assert.Equal(t, "fajita", body.Result.Label)
	assert.InDelta(t, 315, body.Result.Totals.Calories, 0.001)

	assert.Equal(t, "fajita calories", h.lastReq.Query)
	assert.Equal(t, body.SessionID, h.lastReq.SessionID)
}

func TestCalculatePassesModificationsAndSession(t *testing.T) {
	h := &stubHandler{outcome: model.Outcome{
		Clarification: &model.ClarificationRequest{Message: "Dish not found. Please confirm or list ingredients."},
	}}
	srv := httptest.NewServer(testRouter(h, &stubMissing{}))
	defer srv.Close()

	payload := `{
		"query": "fajita",
		"session_id": "sess-1",
		"modifications": {"remove": ["tortilla"], "add": ["tomato"]}
	}`
	resp, err := http.Post(srv.URL+"/api/calculate", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "sess-1", h.lastReq.SessionID)
	assert.Equal(t, []string{"tortilla"}, h.lastReq.Modifications.Remove)
	assert.Equal(t, []string{"tomato"}, h.lastReq.Modifications.Add)

	var body struct {
		Clarification *model.ClarificationRequest `json:"clarification"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Clarification)
}

func TestCalculateRejectsBadRequests(t *testing.T) {
	srv := httptest.NewServer(testRouter(&stubHandler{}, &stubMissing{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/calculate", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/calculate", "application/json", strings.NewReader(`{"query":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListMissing(t *testing.T) {
	m := &stubMissing{entries: []model.MissingQuery{
		{ID: 2, Query: "biryani", Reason: "dish not found", CreatedAt: time.Now().UTC()},
		{ID: 1, Query: "weather today", Reason: "not a calorie question", CreatedAt: time.Now().UTC()},
	}}
	srv := httptest.NewServer(testRouter(&stubHandler{}, m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/missing")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Missing []model.MissingQuery `json:"missing"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Missing, 2)
	assert.Equal(t, "biryani", body.Missing[0].Query)
}

func TestListMissingLimit(t *testing.T) {
	m := &stubMissing{entries: []model.MissingQuery{
		{ID: 2, Query: "biryani"},
		{ID: 1, Query: "kabsa"},
	}}
	srv := httptest.NewServer(testRouter(&stubHandler{}, m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/missing?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Missing []model.MissingQuery `json:"missing"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Missing, 1)

	resp2, err := http.Get(srv.URL + "/api/missing?limit=0")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestListMissingStoreError(t *testing.T) {
	m := &stubMissing{err: errors.New("db down")}
	srv := httptest.NewServer(testRouter(&stubHandler{}, m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
