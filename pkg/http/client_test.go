package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParseRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "Bearer t0k", r.Header.Get("Authorization"))
		assert.Equal(t, "M15", r.URL.Query().Get("granularity"))
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second), WithRetry(3, time.Millisecond, 5*time.Millisecond))
	var out map[string]string
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL,
		Headers:     map[string]string{"Authorization": "Bearer t0k"},
		QueryParams: map[string][]string{"granularity": {"M15"}},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "yes", out["ok"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendAndParseReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorMessage":"Invalid value specified for 'granularity'"}` + "\n"))
	}))
	defer srv.Close()

	c := NewClient(WithRetry(0, 0, 0))
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)

	var se *StatusError
	require.True(t, errors.As(err, &se), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Contains(t, se.Body, "granularity")
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	appErr := BadRequestError("ERR_INVALID_TARGET", "target", "target out of range").WithParam("min", 50)
	require.NoError(t, AppErrorResponse(c, appErr))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Status int         `json:"status"`
		Data   []*AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_INVALID_TARGET", body.Data[0].Code)
	assert.Equal(t, "target", body.Data[0].Field)
}

func TestAppErrorResponseUnknownError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
