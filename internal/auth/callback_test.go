package auth

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func startCallbackServer(t *testing.T, state string) *callbackServer {
	t.Helper()
	srv, err := newCallbackServer("127.0.0.1:0", "/callback", state)
	if err != nil {
		t.Fatalf("failed to start callback server: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, string(body)
}

func TestCallbackDeliversCode(t *testing.T) {
	srv := startCallbackServer(t, "expected-state")

	resp, body := get(t, "http://"+srv.Addr()+"/callback?code=abc123&state=expected-state")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(body, "Authorization Successful") {
		t.Errorf("confirmation page missing, got: %s", body)
	}

	select {
	case res := <-srv.Result():
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if res.code != "abc123" {
			t.Errorf("code = %q, want %q", res.code, "abc123")
		}
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
}

func TestCallbackRejectsWrongState(t *testing.T) {
	srv := startCallbackServer(t, "expected-state")

	resp, _ := get(t, "http://"+srv.Addr()+"/callback?code=abc123&state=forged")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	res := <-srv.Result()
	if res.err == nil {
		t.Fatal("expected state error, got nil")
	}
}

func TestCallbackRejectsMissingCode(t *testing.T) {
	srv := startCallbackServer(t, "expected-state")

	resp, _ := get(t, "http://"+srv.Addr()+"/callback?state=expected-state&error=access_denied&error_description=user+denied")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	res := <-srv.Result()
	if res.err == nil {
		t.Fatal("expected error result, got nil")
	}
	if !strings.Contains(res.err.Error(), "access_denied") {
		t.Errorf("error should carry the remote error code: %v", res.err)
	}
}

func TestCallbackHandlesExactlyOneRequest(t *testing.T) {
	srv := startCallbackServer(t, "expected-state")

	first, _ := get(t, "http://"+srv.Addr()+"/callback?code=abc123&state=expected-state")
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first request status = %d", first.StatusCode)
	}

	second, body := get(t, "http://"+srv.Addr()+"/callback?code=later&state=expected-state")
	if second.StatusCode != http.StatusBadRequest {
		t.Errorf("second request status = %d, want %d", second.StatusCode, http.StatusBadRequest)
	}
	if !strings.Contains(body, "already processed") {
		t.Errorf("second request body = %q", body)
	}

	// Only the first code is ever delivered.
	res := <-srv.Result()
	if res.code != "abc123" {
		t.Errorf("delivered code = %q, want %q", res.code, "abc123")
	}
}
