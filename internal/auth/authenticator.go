// Package auth runs the authorization-code flow: it hands the user an
// authorization URL, waits for the platform to redirect back to a local
// listener, and exchanges the returned code for a bearer credential.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"social_publisher/internal/domain"
)

// State is the authenticator's attempt state. Authenticated and Failed
// are terminal.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingCallback State = "awaiting_callback"
	StateExchanging       State = "exchanging"
	StateAuthenticated    State = "authenticated"
	StateFailed           State = "failed"
)

// CodeExchanger builds the authorization URL and swaps the callback's
// code for a credential.
type CodeExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.Credential, error)
}

// CredentialSaver persists the credential obtained by a successful attempt.
type CredentialSaver interface {
	Save(ctx context.Context, cred *domain.Credential) error
}

// Opener presents the authorization URL to a human. How that happens
// (browser launch, printed link) is the collaborator's business.
type Opener interface {
	Open(url string) error
}

type Config struct {
	CallbackPort int
	CallbackPath string
	Timeout      time.Duration
}

type Authenticator struct {
	exchanger CodeExchanger
	store     CredentialSaver
	opener    Opener
	config    Config
	logger    *slog.Logger

	mu    sync.Mutex
	state State
}

func New(exchanger CodeExchanger, store CredentialSaver, opener Opener, cfg Config, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		exchanger: exchanger,
		store:     store,
		opener:    opener,
		config:    cfg,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the current attempt state.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Authenticator) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

type callbackResult struct {
	code string
	err  error
}

// Authenticate runs one full attempt. Exactly one callback is honored;
// the listener is torn down on the first valid callback, on timeout, or
// on ctx cancellation, whichever comes first. No credential is written
// on any failure path.
func (a *Authenticator) Authenticate(ctx context.Context) (*domain.Credential, error) {
	expectedState, err := newStateToken()
	if err != nil {
		a.setState(StateFailed)
		return nil, fmt.Errorf("generate state token: %w", err)
	}

	authURL := a.exchanger.AuthURL(expectedState)

	addr := fmt.Sprintf("localhost:%d", a.config.CallbackPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		a.setState(StateFailed)
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	resultCh := make(chan callbackResult, 1)
	var once sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc(a.config.CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != a.config.CallbackPath {
			http.NotFound(w, r)
			return
		}

		q := r.URL.Query()
		res := callbackResult{}

		switch {
		case q.Get("error") != "":
			reason := q.Get("error_description")
			if reason == "" {
				reason = q.Get("error")
			}
			res.err = fmt.Errorf("authorization denied: %s", reason)
		case q.Get("code") == "":
			res.err = errors.New("callback carried no authorization code")
		case subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(expectedState)) != 1:
			res.err = errors.New("callback state does not match this attempt")
		default:
			res.code = q.Get("code")
		}

		delivered := false
		once.Do(func() {
			delivered = true
			resultCh <- res
		})
		if !delivered {
			// A callback was already honored for this attempt.
			http.Error(w, "authentication attempt already completed", http.StatusConflict)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			fmt.Fprint(w, "<html><body><h3>Authentication failed.</h3><p>You can close this window.</p></body></html>")
		} else {
			fmt.Fprint(w, "<html><body><h3>Authentication complete.</h3><p>You can close this window.</p></body></html>")
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			a.logger.Error("callback listener error", "error", err)
		}
	}()
	defer a.shutdown(server)

	a.setState(StateAwaitingCallback)
	a.logger.Info("awaiting authorization callback",
		"listen", addr,
		"path", a.config.CallbackPath,
		"timeout", a.config.Timeout,
	)
	a.logger.Info("open this URL to authorize", "url", authURL)

	if a.opener != nil {
		if err := a.opener.Open(authURL); err != nil {
			// The URL is already logged; the user can open it by hand.
			a.logger.Warn("could not open authorization URL", "error", err)
		}
	}

	var res callbackResult
	select {
	case res = <-resultCh:
	case <-time.After(a.config.Timeout):
		a.setState(StateFailed)
		return nil, fmt.Errorf("authentication timed out after %s", a.config.Timeout)
	case <-ctx.Done():
		a.setState(StateFailed)
		return nil, ctx.Err()
	}

	if res.err != nil {
		a.setState(StateFailed)
		return nil, res.err
	}

	a.setState(StateExchanging)

	cred, err := a.exchanger.Exchange(ctx, res.code)
	if err != nil {
		a.setState(StateFailed)
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	if err := a.store.Save(ctx, cred); err != nil {
		a.setState(StateFailed)
		return nil, fmt.Errorf("save credential: %w", err)
	}

	a.setState(StateAuthenticated)
	a.logger.Info("authenticated", "expires_at", cred.ExpiresAt)

	return cred, nil
}

func (a *Authenticator) shutdown(server *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("callback listener shutdown", "error", err)
	}
}

func newStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
