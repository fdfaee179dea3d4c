// Package auth provides Google credentials for the Sheets client, either from a service
// account key or from a user token obtained through the OAuth installed-app flow.
package auth

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrAuthRequired is returned when no usable user token is available and Login must be run
var ErrAuthRequired = errors.New("google sign-in required")

const defaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// Scopes requested for both credential kinds
var Scopes = []string{sheets.SpreadsheetsScope, sheets.DriveFileScope}

type Config struct {
	// CredentialsFile is a service account key; when set the OAuth files are ignored
	CredentialsFile string
	ClientFile      string
	TokenFile       string
}

type Authenticator struct {
	config     Config
	httpClient *http.Client
	revokeURL  string
}

func New(config Config) *Authenticator {
	return &Authenticator{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		revokeURL:  defaultRevokeURL,
	}
}

func (a *Authenticator) usesServiceAccount() bool {
	return a.config.CredentialsFile != ""
}

// ClientOptions returns the options that authenticate a Sheets client.
// ErrAuthRequired means the user has to sign in first.
func (a *Authenticator) ClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	if a.usesServiceAccount() {
		data, err := os.ReadFile(a.config.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
		log.Debug().Str("file", a.config.CredentialsFile).Msg("Using service account credentials")
		return []option.ClientOption{option.WithCredentials(creds)}, nil
	}

	oauthConfig, err := a.oauthConfig()
	if err != nil {
		return nil, err
	}

	token, err := a.loadToken()
	if err != nil {
		return nil, err
	}
	if !token.Valid() && token.RefreshToken == "" {
		log.Debug().Msg("Stored token expired and cannot be refreshed")
		return nil, ErrAuthRequired
	}

	source := &savingTokenSource{
		base:  oauthConfig.TokenSource(ctx, token),
		last:  token.AccessToken,
		store: a.saveToken,
	}
	log.Debug().Str("file", a.config.TokenFile).Msg("Using stored user token")
	return []option.ClientOption{option.WithTokenSource(oauth2.ReuseTokenSource(token, source))}, nil
}

// Login runs the installed-app consent flow: it prints the consent URL to out, reads the
// authorization code (or the full redirect URL) from in, and stores the resulting token.
func (a *Authenticator) Login(ctx context.Context, in io.Reader, out io.Writer) error {
	if a.usesServiceAccount() {
		return errors.New("service account credentials do not need a login")
	}

	oauthConfig, err := a.oauthConfig()
	if err != nil {
		return err
	}

	verifier := oauth2.GenerateVerifier()
	authURL := oauthConfig.AuthCodeURL("sheet-budget", oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	fmt.Fprintf(out, "Open this link in your browser and approve access:\n\n%s\n\nPaste the code or the URL you were redirected to: ", authURL)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code := authorizationCode(line)
	if code == "" {
		return errors.New("no authorization code entered")
	}

	token, err := oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := a.saveToken(token); err != nil {
		return err
	}

	log.Info().Str("file", a.config.TokenFile).Msg("Signed in to Google")
	return nil
}

// SignOut revokes and deletes the stored user token. Revocation is best effort.
func (a *Authenticator) SignOut(ctx context.Context) error {
	if a.usesServiceAccount() {
		log.Debug().Msg("Service account in use, no user token to remove")
		return nil
	}

	token, err := a.loadToken()
	if errors.Is(err, ErrAuthRequired) {
		return nil
	}
	if err == nil {
		if err := a.revoke(ctx, token); err != nil {
			log.Warn().Err(err).Msg("Failed to revoke token")
		}
	}

	if err := os.Remove(a.config.TokenFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	log.Info().Msg("Signed out of Google")
	return nil
}

func (a *Authenticator) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(a.config.ClientFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read OAuth client file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OAuth client file: %w", err)
	}
	return oauthConfig, nil
}

func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.config.TokenFile)
	if os.IsNotExist(err) {
		return nil, ErrAuthRequired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		log.Warn().Err(err).Str("file", a.config.TokenFile).Msg("Ignoring unreadable token file")
		return nil, ErrAuthRequired
	}
	return &token, nil
}

func (a *Authenticator) saveToken(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if dir := filepath.Dir(a.config.TokenFile); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	if err := os.WriteFile(a.config.TokenFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (a *Authenticator) revoke(ctx context.Context, token *oauth2.Token) error {
	value := token.RefreshToken
	if value == "" {
		value = token.AccessToken
	}
	if value == "" {
		return nil
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("revoke returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// authorizationCode accepts either a bare code or the redirect URL carrying it
func authorizationCode(input string) string {
	input = strings.TrimSpace(input)
	if u, err := url.Parse(input); err == nil && u.Scheme != "" {
		return u.Query().Get("code")
	}
	return input
}

// savingTokenSource writes refreshed tokens back to the token file
type savingTokenSource struct {
	base  oauth2.TokenSource
	last  string
	store func(*oauth2.Token) error
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %v", ErrAuthRequired, err)
		}
		return nil, err
	}
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := s.store(token); err != nil {
			log.Warn().Err(err).Msg("Failed to persist refreshed token")
		}
	}
	return token, nil
}
