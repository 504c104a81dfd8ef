package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NichUK/onedrive-versions/internal/logging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// ErrAuthRequired indicates no usable token exists and the call was not
// allowed to prompt. Callers treat it as "not yet signed in", not a failure.
var ErrAuthRequired = errors.New("auth: interactive sign-in required")

// expiryMargin is how close to expiry a cached token still counts as valid.
const expiryMargin = 2 * time.Minute

// defaultScopes cover drive reads plus the refresh token.
var defaultScopes = []string{"offline_access", "User.Read", "Files.Read.All"}

// PromptFunc presents device-code sign-in instructions to the user.
type PromptFunc func(verificationURI, userCode string)

// Provider produces bearer tokens, caching them in a token file. Interactive
// acquisition runs the OAuth2 device-code flow; non-interactive calls never
// prompt and fail fast with ErrAuthRequired.
type Provider struct {
	cfg    *oauth2.Config
	path   string
	prompt PromptFunc

	mu sync.Mutex
}

// NewProvider creates a Provider for the given app registration. tenant is
// usually "common"; tokenPath empty means the default location.
func NewProvider(clientID, tenant, tokenPath string, prompt PromptFunc) *Provider {
	if tokenPath == "" {
		tokenPath = DefaultTokenPath()
	}
	if prompt == nil {
		prompt = func(uri, code string) {
			fmt.Printf("\nTo sign in, open: %s\n", uri)
			fmt.Printf("Enter code: %s\n\n", code)
		}
	}

	return &Provider{
		cfg: &oauth2.Config{
			ClientID: clientID,
			Endpoint: deviceEndpoint(tenant),
			Scopes:   defaultScopes,
		},
		path:   tokenPath,
		prompt: prompt,
	}
}

// deviceEndpoint returns the AAD endpoint with the device-code URL filled
// in for oauth2 package versions that leave it empty.
func deviceEndpoint(tenant string) oauth2.Endpoint {
	e := microsoft.AzureADEndpoint(tenant)
	if e.DeviceAuthURL == "" {
		e.DeviceAuthURL = "https://login.microsoftonline.com/" + tenant + "/oauth2/v2.0/devicecode"
	}
	return e
}

// Token returns a bearer token: the cached one if still valid, a refreshed
// one if a refresh token exists, and otherwise a fresh token from the
// device-code flow. The flow runs only when interactive is set.
func (p *Provider) Token(ctx context.Context, interactive bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tf, err := LoadToken(p.path)
	if err != nil {
		logging.Warn("unreadable token file, ignoring", logging.Err(err))
	}

	if tf != nil {
		if tf.AccessToken != "" && !tf.IsExpired(expiryMargin) {
			return tf.AccessToken, nil
		}

		if tf.RefreshToken != "" {
			tok, refreshErr := p.cfg.TokenSource(ctx, tf.Token()).Token()
			if refreshErr == nil {
				p.save(tok)
				return tok.AccessToken, nil
			}

			logging.Debug("token refresh failed", logging.Err(refreshErr))
			if !interactive {
				return "", fmt.Errorf("%w: refresh failed: %v", ErrAuthRequired, refreshErr)
			}
		}
	}

	if !interactive {
		return "", ErrAuthRequired
	}

	return p.deviceFlow(ctx)
}

// deviceFlow runs the device-code sign-in and saves the resulting token.
func (p *Provider) deviceFlow(ctx context.Context) (string, error) {
	da, err := p.cfg.DeviceAuth(ctx)
	if err != nil {
		return "", fmt.Errorf("auth: requesting device code: %w", err)
	}

	p.prompt(da.VerificationURI, da.UserCode)

	tok, err := p.cfg.DeviceAccessToken(ctx, da)
	if err != nil {
		return "", fmt.Errorf("auth: device sign-in: %w", err)
	}

	p.save(tok)
	return tok.AccessToken, nil
}

func (p *Provider) save(tok *oauth2.Token) {
	if err := SaveToken(p.path, fromToken(tok)); err != nil {
		logging.Warn("failed to save token file", logging.Err(err))
	}
}

// SignOut removes the cached token file.
func (p *Provider) SignOut() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return DeleteToken(p.path)
}

// TokenPath returns where the provider caches its token file.
func (p *Provider) TokenPath() string {
	return p.path
}
