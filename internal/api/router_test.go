package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/scheduler"
)

type MockJobRunner struct {
	mock.Mock
}

func (m *MockJobRunner) RunNow(ctx context.Context, name string) (*scheduler.RunResult, error) {
	args := m.Called(ctx, name)
	if ret := args.Get(0); ret != nil {
		return ret.(*scheduler.RunResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockJobRunner) Jobs() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockJobRunner) Spec(name string) string {
	return m.Called(name).String(0)
}

func serve(t *testing.T, runner *MockJobRunner, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	NewRouter("pix-lifecycle", runner).ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	rec := serve(t, new(MockJobRunner), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"pix-lifecycle"}`, rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	rec := serve(t, new(MockJobRunner), http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_ListJobs(t *testing.T) {
	runner := new(MockJobRunner)
	runner.On("Jobs").Return([]string{"waiting_recent_payment"})
	runner.On("Spec", "waiting_recent_payment").Return("@every 1m")

	rec := serve(t, runner, http.MethodGet, "/sync")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"jobs":[{"job":"waiting_recent_payment","schedule":"@every 1m"}]}`, rec.Body.String())
}

func TestRouter_RunJob(t *testing.T) {
	tests := []struct {
		name       string
		result     *scheduler.RunResult
		err        error
		wantStatus int
		wantState  string
	}{
		{
			name:       "completed",
			result:     &scheduler.RunResult{Job: "waiting_recent_payment", Duration: 2 * time.Second},
			wantStatus: http.StatusOK,
			wantState:  "completed",
		},
		{
			name:       "lock held elsewhere",
			result:     &scheduler.RunResult{Job: "waiting_recent_payment", Skipped: true},
			wantStatus: http.StatusConflict,
			wantState:  "skipped",
		},
		{
			name:       "unknown job",
			err:        fmt.Errorf("%w: waiting_recent_payment", scheduler.ErrUnknownJob),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "job failure",
			err:        errors.New("database down"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockJobRunner)
			runner.On("RunNow", mock.Anything, "waiting_recent_payment").Return(tt.result, tt.err)

			rec := serve(t, runner, http.MethodPost, "/sync/waiting_recent_payment")

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantState != "" {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantState, body["status"])
			}
			runner.AssertExpectations(t)
		})
	}
}
