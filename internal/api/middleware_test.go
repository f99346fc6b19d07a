package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecoveryMiddlewareCatchesPanic(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(testLogger())(panicking)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var resp errorResponse
	decodeBody(t, w, &resp)
	if resp.Error != "internal_error" {
		t.Errorf("error code = %q, want internal_error", resp.Error)
	}
}

func TestRecoveryMiddlewarePassesThrough(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := recoveryMiddleware(testLogger())(ok)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
}

func TestStatusWriterDefaultsTo200(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{w: rec}

	if _, err := sw.Write([]byte("hi")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if sw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want %d", sw.statusCode, http.StatusOK)
	}
	if sw.bytesWritten != 2 {
		t.Errorf("bytesWritten = %d, want 2", sw.bytesWritten)
	}
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	handler := loggingMiddleware(testLogger())(ok)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
}
