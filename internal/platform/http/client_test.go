package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"maize","price":80}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Timeout: time.Second, RequestsPerSec: 100})

	var out struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "maize" || out.Price != 80 {
		t.Errorf("got %+v, want maize/80", out)
	}
}

func TestGetJSONStatusError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Timeout: time.Second, RequestsPerSec: 100})

	err := c.GetJSON(context.Background(), srv.URL, nil)
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("want *HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status: got %d, want %d", statusErr.StatusCode, http.StatusBadGateway)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("zero retries should mean one attempt, got %d", got)
	}
}

func TestDoRequestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Timeout: time.Second, RequestsPerSec: 100, MaxRetries: 3, MaxRetryTimeout: 5 * time.Second})

	if err := c.GetJSON(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("attempts: got %d, want 3", got)
	}
}

func TestDoRequestDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Timeout: time.Second, RequestsPerSec: 100, MaxRetries: 3})

	if err := c.GetJSON(context.Background(), srv.URL, nil); err == nil {
		t.Fatal("expected error for 401")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("attempts: got %d, want 1", got)
	}
}

func TestGetJSONMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Timeout: time.Second, RequestsPerSec: 100})

	var out map[string]any
	if err := c.GetJSON(context.Background(), srv.URL, &out); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGetJSONRateLimitWaitIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Timeout: 200 * time.Millisecond, RequestsPerSec: 1})

	const calls = 4
	type result struct {
		err     error
		elapsed time.Duration
	}
	results := make(chan result, calls)
	for i := 0; i < calls; i++ {
		go func() {
			start := time.Now()
			err := c.GetJSON(context.Background(), srv.URL, nil)
			results <- result{err: err, elapsed: time.Since(start)}
		}()
	}

	var ok, limited int
	for i := 0; i < calls; i++ {
		r := <-results
		if r.elapsed > 500*time.Millisecond {
			t.Errorf("call took %v, beyond the 200ms budget", r.elapsed)
		}
		if r.err == nil {
			ok++
		} else {
			limited++
		}
	}
	if ok != 1 || limited != calls-1 {
		t.Errorf("got %d ok and %d limited, want 1 and %d", ok, limited, calls-1)
	}
}
