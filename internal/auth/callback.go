package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// callbackResult carries the outcome of the authorization callback.
type callbackResult struct {
	code string
	err  error
}

// callbackServer is a short-lived local HTTP listener that accepts
// exactly one authorization callback, answers it with a human-readable
// confirmation page, and delivers the code (or failure) on its result
// channel. It is always torn down by the caller, on success and failure
// alike.
type callbackServer struct {
	listener net.Listener
	srv      *http.Server
	path     string
	state    string

	mu      sync.Mutex
	handled bool

	once    sync.Once
	results chan callbackResult
}

// newCallbackServer binds the listener immediately so a bind failure
// surfaces before the operator is sent to the authorization URL.
func newCallbackServer(addr, path, state string) (*callbackServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("cannot listen on %s: %w", addr, err)
	}

	s := &callbackServer{
		listener: ln,
		path:     path,
		state:    state,
		results:  make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.Handle(path, s)
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		// Serve returns ErrServerClosed on shutdown; nothing to do.
		_ = s.srv.Serve(ln)
	}()

	return s, nil
}

// Addr returns the address the listener is actually bound to.
func (s *callbackServer) Addr() string {
	return s.listener.Addr().String()
}

// ServeHTTP handles the single authorization callback: it validates the
// state parameter, extracts the authorization code, and confirms to the
// user. Any request after the first is rejected.
func (s *callbackServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.handled {
		s.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	s.handled = true
	s.mu.Unlock()

	q := r.URL.Query()

	if q.Get("state") != s.state {
		s.deliver(callbackResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		errParam := q.Get("error")
		errDesc := q.Get("error_description")
		s.deliver(callbackResult{err: fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, confirmationPage)

	s.deliver(callbackResult{code: code})
}

// deliver sends the result exactly once.
func (s *callbackServer) deliver(res callbackResult) {
	s.once.Do(func() {
		s.results <- res
		close(s.results)
	})
}

// Result returns the channel on which the single callback outcome is
// delivered. The channel is closed after delivery.
func (s *callbackServer) Result() <-chan callbackResult {
	return s.results
}

// Close shuts the listener down. Safe to call after success, failure, or
// no callback at all.
func (s *callbackServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

const confirmationPage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Authorization Successful</h1>
        <p>You can close this window and return to your MCP client.</p>
    </div>
</body>
</html>
`
