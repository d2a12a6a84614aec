package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEncodeKeyPreservesSafeCharsAndEscapesRest(t *testing.T) {
	cases := map[string]string{
		"simple":       "simple",
		"a/b":          "a%2Fb",
		"with space":   "with%20space",
		"user:123":     "user:123",
		"weird#key?":   "weird%23key%3F",
	}
	for in, want := range cases {
		if got := encodeKey(in); got != want {
			t.Errorf("encodeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewWithConfigRejectsFingerprintOnPlainHTTP(t *testing.T) {
	_, err := NewWithConfig(Config{Endpoint: "http://localhost:3000", SSLFingerprint: "ab"})
	if err == nil {
		t.Fatal("expected error pinning a fingerprint on a non-https endpoint")
	}
}

func TestPutAndGetRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodPut:
			w.Header().Set("X-Hash-Algorithm", "xxhash3-128")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("deadbeef\n"))
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("hello"))
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, "tok")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	put, err := c.Put(context.Background(), "my key", []byte("hello"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if put.Hash != "deadbeef" {
		t.Errorf("Hash = %q", put.Hash)
	}

	value, err := c.Get(context.Background(), "my key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(value) != "hello" {
		t.Errorf("Get = %q, want hello", value)
	}
}

func TestGetMissingKeyReturnsErrNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "tok")
	if _, err := c.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestBatchDecodesTaggedUnionResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"put": map[string]any{"key": "a", "hash": "h1", "created": true}},
				{"get": map[string]any{"key": "b", "value": "v", "found": true}},
			},
		})
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "tok")
	resp, err := c.Batch(context.Background(), []BatchOp{
		{Op: "put", Key: "a", Value: "v1"},
		{Op: "get", Key: "b"},
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Put == nil || resp.Results[0].Put.Hash != "h1" {
		t.Errorf("put result: %+v", resp.Results[0])
	}
	if resp.Results[1].Get == nil || resp.Results[1].Get.Value == nil || *resp.Results[1].Get.Value != "v" {
		t.Errorf("get result: %+v", resp.Results[1])
	}
}

func TestHealthCheckReportsServerUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "tok")
	ok, err := c.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if !ok {
		t.Fatal("expected healthy")
	}
}
