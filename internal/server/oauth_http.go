package server

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers"
	"github.com/giantswarm/mcp-oauth/providers/dex"
	"github.com/giantswarm/mcp-oauth/providers/google"
	"github.com/giantswarm/mcp-oauth/security"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	"github.com/giantswarm/mcp-oauth/storage/valkey"

	"github.com/giantswarm/mcp-tomcat/internal/instrumentation"
	"github.com/giantswarm/mcp-tomcat/internal/logging"
)

// OAuth identity providers.
const (
	OAuthProviderDex    = "dex"
	OAuthProviderGoogle = "google"
)

// OAuth token storage backends.
const (
	OAuthStorageMemory = "memory"
	OAuthStorageValkey = "valkey"
)

const (
	// DefaultIPRateLimit is the default rate limit for requests per IP (requests/second)
	DefaultIPRateLimit = 10

	// DefaultIPBurst is the default burst size for IP rate limiting
	DefaultIPBurst = 20

	// DefaultUserRateLimit is the default rate limit for authenticated users (requests/second)
	DefaultUserRateLimit = 100

	// DefaultUserBurst is the default burst size for authenticated user rate limiting
	DefaultUserBurst = 200

	// DefaultMaxClientsPerIP limits dynamic client registrations per IP.
	DefaultMaxClientsPerIP = 10

	// DefaultRefreshTokenTTL is how long refresh tokens stay valid.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	valkeyKeyPrefix = "mcp-tomcat:"
)

// OAuthRoutes lists the unauthenticated OAuth 2.1 endpoints.
var OAuthRoutes = []string{
	"/.well-known/oauth-protected-resource",
	"/.well-known/oauth-authorization-server",
	"/oauth/register",
	"/oauth/authorize",
	"/oauth/token",
	"/oauth/callback",
	"/oauth/revoke",
	"/oauth/introspect",
}

var (
	dexOAuthScopes    = []string{"openid", "profile", "email", "groups", "offline_access"}
	googleOAuthScopes = []string{
		"openid",
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}
)

// OAuthConfig configures the OAuth 2.1 front door of the HTTP transports.
type OAuthConfig struct {
	Enabled bool

	// BaseURL is the public URL of this server and the token issuer.
	BaseURL string

	// Provider is OAuthProviderDex or OAuthProviderGoogle.
	Provider     string
	ClientID     string
	ClientSecret string

	// Dex only.
	DexIssuerURL   string
	DexConnectorID string

	// Client registration. Without public registration clients need
	// RegistrationToken.
	AllowPublicClientRegistration bool
	RegistrationToken             string

	// EncryptionKey is a base64 encoded AES-256 key for tokens at rest.
	EncryptionKey string

	// Storage is OAuthStorageMemory (default) or OAuthStorageValkey.
	Storage        string
	ValkeyURL      string
	ValkeyPassword string
	ValkeyTLS      bool

	// Metrics exposes the library's OAuth metrics through Prometheus.
	Metrics        bool
	ServiceVersion string
}

// Validate checks the settings NewOAuthHTTPServer needs.
func (c OAuthConfig) Validate() error {
	if err := validateHTTPSRequirement(c.BaseURL); err != nil {
		return err
	}
	switch c.Provider {
	case OAuthProviderDex:
		if c.DexIssuerURL == "" {
			return errors.New("the dex issuer URL is required for the dex provider")
		}
	case OAuthProviderGoogle:
	default:
		return fmt.Errorf("unsupported OAuth provider: %s (supported: %s, %s)", c.Provider, OAuthProviderDex, OAuthProviderGoogle)
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("OAuth client ID and secret are required")
	}
	if !c.AllowPublicClientRegistration && c.RegistrationToken == "" {
		return errors.New("a registration token is required unless public client registration is allowed")
	}
	switch c.Storage {
	case "", OAuthStorageMemory:
	case OAuthStorageValkey:
		if c.ValkeyURL == "" {
			return errors.New("a valkey URL is required for valkey storage")
		}
	default:
		return fmt.Errorf("unsupported OAuth storage type: %s (supported: %s, %s)", c.Storage, OAuthStorageMemory, OAuthStorageValkey)
	}
	if c.EncryptionKey != "" {
		if _, err := decodeEncryptionKey(c.EncryptionKey); err != nil {
			return err
		}
	}
	return nil
}

// OAuthHTTPServer puts MCP endpoints behind OAuth 2.1. It serves the
// authorization server endpoints and validates bearer tokens on the
// endpoints it protects.
type OAuthHTTPServer struct {
	oauthServer  *oauth.Server
	oauthHandler *oauth.Handler
}

// NewOAuthHTTPServer creates the OAuth server, its token storage and the
// rate limiters. A nil logger selects slog.Default().
func NewOAuthHTTPServer(cfg OAuthConfig, logger *slog.Logger) (*OAuthHTTPServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid OAuth config: %w", err)
	}

	provider, err := newOAuthProvider(cfg)
	if err != nil {
		return nil, err
	}

	tokenStore, clientStore, flowStore, err := newOAuthStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	oauthSrv, err := oauth.NewServer(provider, tokenStore, clientStore, flowStore, &oauthserver.Config{
		Issuer:                        cfg.BaseURL,
		RefreshTokenTTL:               int64(DefaultRefreshTokenTTL.Seconds()),
		AllowRefreshTokenRotation:     true,
		RequirePKCE:                   true,
		AllowPKCEPlain:                false,
		AllowPublicClientRegistration: cfg.AllowPublicClientRegistration,
		RegistrationAccessToken:       cfg.RegistrationToken,
		MaxClientsPerIP:               DefaultMaxClientsPerIP,
		Instrumentation: oauthserver.InstrumentationConfig{
			Enabled:         cfg.Metrics,
			ServiceName:     "mcp-tomcat",
			ServiceVersion:  cfg.ServiceVersion,
			MetricsExporter: instrumentation.ExporterPrometheus,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	if cfg.EncryptionKey != "" && cfg.Storage != OAuthStorageValkey {
		keyBytes, err := decodeEncryptionKey(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		encryptor, err := security.NewEncryptor(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to create encryptor: %w", err)
		}
		oauthSrv.SetEncryptor(encryptor)
	}

	oauthSrv.SetAuditor(security.NewAuditor(logger, true))
	oauthSrv.SetRateLimiter(security.NewRateLimiter(DefaultIPRateLimit, DefaultIPBurst, logger))
	oauthSrv.SetUserRateLimiter(security.NewRateLimiter(DefaultUserRateLimit, DefaultUserBurst, logger))
	oauthSrv.SetClientRegistrationRateLimiter(security.NewClientRegistrationRateLimiterWithConfig(
		DefaultMaxClientsPerIP,
		security.DefaultRegistrationWindow,
		security.DefaultMaxRegistrationEntries,
		logger,
	))

	logger.Info("OAuth front door enabled",
		"provider", cfg.Provider,
		"issuer", cfg.BaseURL,
		"storage", storageName(cfg.Storage))

	return &OAuthHTTPServer{
		oauthServer:  oauthSrv,
		oauthHandler: oauth.NewHandler(oauthSrv, oauthSrv.Logger),
	}, nil
}

// RegisterRoutes registers the OAuth 2.1 endpoints on mux.
func (s *OAuthHTTPServer) RegisterRoutes(mux *http.ServeMux) {
	// Protected Resource Metadata endpoint (RFC 9728)
	mux.HandleFunc("/.well-known/oauth-protected-resource", s.oauthHandler.ServeProtectedResourceMetadata)

	// Authorization Server Metadata endpoint (RFC 8414)
	mux.HandleFunc("/.well-known/oauth-authorization-server", s.oauthHandler.ServeAuthorizationServerMetadata)

	// Dynamic Client Registration endpoint (RFC 7591)
	mux.HandleFunc("/oauth/register", s.oauthHandler.ServeClientRegistration)

	mux.HandleFunc("/oauth/authorize", s.oauthHandler.ServeAuthorization)
	mux.HandleFunc("/oauth/token", s.oauthHandler.ServeToken)
	mux.HandleFunc("/oauth/callback", s.oauthHandler.ServeCallback)

	// Token Revocation endpoint (RFC 7009)
	mux.HandleFunc("/oauth/revoke", s.oauthHandler.ServeTokenRevocation)

	// Token Introspection endpoint (RFC 7662)
	mux.HandleFunc("/oauth/introspect", s.oauthHandler.ServeTokenIntrospection)
}

// Protect requires a valid bearer token for next and records the caller's
// email for the tool audit trail.
func (s *OAuthHTTPServer) Protect(next http.Handler) http.Handler {
	return s.oauthHandler.ValidateToken(callerInjector(next))
}

// Shutdown stops the rate limiters and closes the token storage.
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	if s == nil || s.oauthServer == nil {
		return nil
	}
	if err := s.oauthServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown OAuth server: %w", err)
	}
	return nil
}

// callerInjector copies the authenticated email set by ValidateToken into
// the request context.
func callerInjector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userInfo, ok := oauth.UserInfoFromContext(r.Context()); ok && userInfo != nil && userInfo.Email != "" {
			r = r.WithContext(instrumentation.ContextWithCaller(r.Context(), userInfo.Email))
		}
		next.ServeHTTP(w, r)
	})
}

func newOAuthProvider(cfg OAuthConfig) (providers.Provider, error) {
	redirectURL := cfg.BaseURL + "/oauth/callback"

	switch cfg.Provider {
	case OAuthProviderDex:
		scopes := make([]string, len(dexOAuthScopes))
		copy(scopes, dexOAuthScopes)
		provider, err := dex.NewProvider(&dex.Config{
			IssuerURL:    cfg.DexIssuerURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			ConnectorID:  cfg.DexConnectorID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Dex provider: %w", err)
		}
		return provider, nil
	default:
		scopes := make([]string, len(googleOAuthScopes))
		copy(scopes, googleOAuthScopes)
		provider, err := google.NewProvider(&google.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Google provider: %w", err)
		}
		return provider, nil
	}
}

func newOAuthStorage(cfg OAuthConfig, logger *slog.Logger) (storage.TokenStore, storage.ClientStore, storage.FlowStore, error) {
	if cfg.Storage != OAuthStorageValkey {
		store := memory.New()
		return store, store, store, nil
	}

	valkeyConfig := valkey.Config{
		Address:   cfg.ValkeyURL,
		Password:  cfg.ValkeyPassword,
		KeyPrefix: valkeyKeyPrefix,
		Logger:    logger,
	}
	if cfg.ValkeyTLS {
		valkeyConfig.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	store, err := valkey.New(valkeyConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create Valkey storage: %w", err)
	}
	if cfg.EncryptionKey != "" {
		keyBytes, err := decodeEncryptionKey(cfg.EncryptionKey)
		if err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		encryptor, err := security.NewEncryptor(keyBytes)
		if err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("failed to create encryptor: %w", err)
		}
		store.SetEncryptor(encryptor)
	}
	logger.Info("using Valkey OAuth storage", slog.String(logging.KeyHost, logging.SanitizeHost(cfg.ValkeyURL)))
	return store, store, store, nil
}

func decodeEncryptionKey(key string) ([]byte, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(keyBytes))
	}
	return keyBytes, nil
}

func storageName(storage string) string {
	if storage == "" {
		return OAuthStorageMemory
	}
	return storage
}

// validateHTTPSRequirement ensures OAuth 2.1 HTTPS compliance.
// Allows HTTP only for loopback addresses (localhost, 127.0.0.1, ::1).
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return errors.New("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
