package google

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// LocalCallbackPort is the preferred port for the local callback server.
	LocalCallbackPort = 51121
	// CallbackTimeout is how long to wait for the OAuth callback
	CallbackTimeout   = 5 * time.Minute
	localCallbackPath = "/oauth-callback"
)

// MintResult is the outcome of a local consent.
type MintResult struct {
	RefreshToken string
	Email        string
	Err          error
}

// LocalCallbackServer receives a single consent redirect on localhost. It
// backs single-user setups where the refresh token ends up in the
// environment instead of the database.
type LocalCallbackServer struct {
	Port    int
	Results <-chan MintResult

	app     *App
	srv     *http.Server
	results chan MintResult
	once    sync.Once
}

// StartLocalCallbackServer listens on LocalCallbackPort, or a random port
// when that one is taken. The server stops itself after timeout.
func StartLocalCallbackServer(app *App, timeout time.Duration) (*LocalCallbackServer, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", LocalCallbackPort))
	if err != nil {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, fmt.Errorf("failed to start callback server: %w", err)
		}
		log.Printf("[OAuth] Port %d in use, using random port", LocalCallbackPort)
	}

	s := &LocalCallbackServer{
		Port:    listener.Addr().(*net.TCPAddr).Port,
		app:     app,
		results: make(chan MintResult, 1),
	}
	s.Results = s.results
	log.Printf("[OAuth] Callback server listening on port %d", s.Port)

	var received atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc(localCallbackPath, func(w http.ResponseWriter, r *http.Request) {
		if !received.CompareAndSwap(false, true) {
			http.Error(w, "Callback already processed", http.StatusBadRequest)
			return
		}
		result := s.handle(r)
		s.results <- result
		if result.Err != nil {
			http.Error(w, result.Err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "Refresh token minted for %s. You can close this window.", result.Email)
	})
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := s.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("[OAuth] Callback server error: %v", err)
		}
	}()

	go func() {
		time.Sleep(timeout)
		if !received.Load() {
			log.Printf("[OAuth] Callback timeout after %v", timeout)
			select {
			case s.results <- MintResult{Err: fmt.Errorf("OAuth callback timeout")}:
			default:
			}
		}
		s.Close()
	}()

	return s, nil
}

// RedirectURL is the callback URL registered for the local flow.
func (s *LocalCallbackServer) RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d%s", s.Port, localCallbackPath)
}

// AuthURL is the consent URL to open in a browser.
func (s *LocalCallbackServer) AuthURL() string {
	return s.app.AuthCodeURL(s.RedirectURL(), GetStateToken())
}

// Close stops the server. It is safe to call more than once.
func (s *LocalCallbackServer) Close() {
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(ctx); err != nil {
			log.Printf("[OAuth] Error shutting down callback server: %v", err)
		}
		log.Printf("[OAuth] Callback server stopped")
	})
}

func (s *LocalCallbackServer) handle(r *http.Request) MintResult {
	if r.URL.Query().Get("state") != GetStateToken() {
		return MintResult{Err: fmt.Errorf("invalid state token")}
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		return MintResult{Err: fmt.Errorf("missing OAuth authorization code")}
	}
	token, info, err := s.app.Exchange(r.Context(), s.RedirectURL(), code)
	if err != nil {
		return MintResult{Err: err}
	}
	if token.RefreshToken == "" {
		return MintResult{Email: info.Email, Err: fmt.Errorf("no refresh token received; revoke app access and retry")}
	}
	return MintResult{RefreshToken: token.RefreshToken, Email: info.Email}
}
