// Package cli implements the interactive SessionKeeper client. It
// holds the current token pair in memory, drives the auth endpoints
// through the api package, and keeps the access token fresh with a
// background refresher.
package cli

import (
	"bufio"
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/api"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/config"
)

// AuthAPI is the server surface the CLI needs. *api.Client satisfies it.
type AuthAPI interface {
	Register(ctx context.Context, email string, password []byte) (string, error)
	Login(ctx context.Context, email string, password []byte) (*api.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, accessToken string) (*api.User, error)
}

type App struct {
	config *config.Config
	api    AuthAPI
	reader *bufio.Reader

	mu           sync.Mutex
	userName     string
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func NewApp(c *config.Config) (*App, error) {
	apiClient := api.NewClient(c.ServerEndpointAddr, c.RequestTimeout)
	return &App{config: c, api: apiClient, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartAutoRefresh(ctx, a.config.AutoRefreshInterval)

	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accessToken != ""
}

func (a *App) setSession(userName string, pair *api.TokenPair) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if userName != "" {
		a.userName = userName
	}
	a.accessToken = pair.AccessToken
	a.refreshToken = pair.RefreshToken
	a.expiresAt = time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second)
}

func (a *App) clearSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userName = ""
	a.accessToken = ""
	a.refreshToken = ""
	a.expiresAt = time.Time{}
}

func (a *App) currentAccessToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accessToken
}

// needsRefresh reports whether the access token expires within the
// given window, and returns the refresh token to use.
func (a *App) needsRefresh(window time.Duration) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.refreshToken == "" {
		return "", false
	}
	return a.refreshToken, time.Until(a.expiresAt) < window
}

// StartAutoRefresh periodically rotates the token pair before the
// access token expires. A refresh rejected by the server means the
// session was revoked elsewhere, so the local session is dropped.
func (a *App) StartAutoRefresh(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			refreshToken, due := a.needsRefresh(2 * interval)
			if !due {
				continue
			}

			rctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
			pair, err := a.api.Refresh(rctx, refreshToken)
			cancel()

			if err != nil {
				log.Printf("Session expired, please log in again: %s", err.Error())
				a.clearSession()
				continue
			}
			a.setSession("", pair)

		case <-ctx.Done():
			return
		}
	}
}
