package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avnotify/internal/logger"
	"avnotify/internal/scan"
	apperrors "avnotify/pkg/errors"
	"avnotify/pkg/models"
)

type stubDispatcher struct {
	outcome Outcome
	err     error
	got     []scan.Result
}

func (s *stubDispatcher) Dispatch(_ context.Context, res scan.Result) (Outcome, error) {
	s.got = append(s.got, res)
	return s.outcome, s.err
}

func payload(status string) models.ScanResultPayload {
	return models.ScanResultPayload{
		Environment: "prod",
		Bucket:      "my-bucket",
		Key:         "uploads/file.pdf",
		Status:      status,
	}
}

func TestResultFromPayload(t *testing.T) {
	res, err := ResultFromPayload(payload("infected"))
	require.NoError(t, err)
	assert.Equal(t, scan.Result{
		Environment: "prod",
		Bucket:      "my-bucket",
		ObjectKey:   "uploads/file.pdf",
		Status:      scan.StatusInfected,
	}, res)

	_, err = ResultFromPayload(payload("ERROR"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestHandleScanResult(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		dispatchErr error
		wantErr     bool
		wantCalls   int
	}{
		{name: "dispatched", status: "CLEAN", wantCalls: 1},
		{name: "invalid status dropped", status: "PENDING", wantCalls: 0},
		{name: "transport error returned", status: "INFECTED", dispatchErr: apperrors.ErrTransport.WithCause(fmt.Errorf("x")), wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &stubDispatcher{err: tt.dispatchErr}
			h := NewHandler(d, logger.NopLogger())

			err := h.HandleScanResult(context.Background(), models.NewScanResultEnvelope("test", payload(tt.status)))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, d.got, tt.wantCalls)
		})
	}
}

func newRouter(d Dispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHTTPHandler(d, logger.NopLogger()).RegisterRoutes(router)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan-results", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateScanResult(t *testing.T) {
	d := &stubDispatcher{outcome: Outcome{Notified: true, StatusCode: 200}}
	router := newRouter(d)

	w := postJSON(t, router, payload("INFECTED"))

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp DispatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, DispatchResponse{Status: "INFECTED", Notified: true, StatusCode: 200}, resp)
	require.Len(t, d.got, 1)
	assert.Equal(t, "uploads/file.pdf", d.got[0].ObjectKey)
}

func TestCreateScanResultErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     interface{}
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "missing fields", body: map[string]string{"bucket": "b"}, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
		{name: "unknown status", body: payload("MAYBE"), wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
		{name: "transport failure", body: payload("INFECTED"), err: apperrors.ErrTransport.WithCause(fmt.Errorf("x")), wantCode: http.StatusBadGateway, wantErr: "TRANSPORT_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&stubDispatcher{err: tt.err})
			w := postJSON(t, router, tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp["error_code"])
		})
	}
}
