package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("room"); got != "lobby-1" {
			t.Errorf("room query %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"room":"lobby-1","wsUrl":"ws://game.example/ws"}`))
	}))
	defer srv.Close()

	got, err := requestMatch(context.Background(), srv.Client(), srv.URL, "lobby-1")
	if err != nil {
		t.Fatalf("requestMatch: %v", err)
	}
	if got.Room != "lobby-1" || got.WSURL != "ws://game.example/ws" {
		t.Fatalf("assignment %+v", got)
	}
}

func TestRequestMatchRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := requestMatch(context.Background(), srv.Client(), srv.URL, ""); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
}

func TestRequestMatchRequiresSocketURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"room":"x"}`))
	}))
	defer srv.Close()

	if _, err := requestMatch(context.Background(), srv.Client(), srv.URL, ""); err == nil {
		t.Fatalf("expected error when wsUrl is missing")
	}
}
