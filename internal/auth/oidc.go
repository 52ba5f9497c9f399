package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	stateCookie = "vantro_oidc_state"
	nonceCookie = "vantro_oidc_nonce"
)

type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// Handlers serves /login, /callback and /logout. With a nil provider it
// falls back to a development login that trusts ?email= and ?name=.
type Handlers struct {
	Sessions *Sessions
	Secure   bool
	BaseURL  string
	Log      zerolog.Logger

	issuer   string
	clientID string
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewOIDCHandlers performs provider discovery.
func NewOIDCHandlers(ctx context.Context, cfg OIDCConfig, sessions *Sessions, log zerolog.Logger) (*Handlers, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Handlers{
		Sessions: sessions,
		Secure:   strings.HasPrefix(base, "https://"),
		BaseURL:  base,
		Log:      log,
		issuer:   cfg.Issuer,
		clientID: cfg.ClientID,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  base + "/callback",
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// NewDevHandlers returns handlers that sign sessions without a provider.
func NewDevHandlers(baseURL string, sessions *Sessions, log zerolog.Logger) *Handlers {
	return &Handlers{
		Sessions: sessions,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Log:      log,
	}
}

func (h *Handlers) Register(app fiber.Router) {
	app.Get("/login", h.Login)
	app.Get("/callback", h.Callback)
	app.Get("/logout", h.Logout)
}

func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.oauth == nil {
		return h.devLogin(c)
	}

	state, err := randomToken()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not start login")
	}
	nonce, err := randomToken()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not start login")
	}
	h.setTempCookie(c, stateCookie, state)
	h.setTempCookie(c, nonceCookie, nonce)

	return c.Redirect(h.oauth.AuthCodeURL(state, oidc.Nonce(nonce)), fiber.StatusFound)
}

func (h *Handlers) devLogin(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "identity provider not configured; use /login?email=you@example.com")
	}
	if err := h.startSession(c, Identity{Email: email, Name: strings.TrimSpace(c.Query("name"))}); err != nil {
		return err
	}
	return c.Redirect("/account", fiber.StatusFound)
}

func (h *Handlers) Callback(c *fiber.Ctx) error {
	if h.oauth == nil {
		return fiber.NewError(fiber.StatusNotFound, "identity provider not configured")
	}

	state := c.Cookies(stateCookie)
	if state == "" || c.Query("state") != state {
		return fiber.NewError(fiber.StatusBadRequest, "invalid login state")
	}
	if e := c.Query("error"); e != "" {
		return fiber.NewError(fiber.StatusUnauthorized, "login failed: "+e)
	}

	ctx := c.UserContext()
	tok, err := h.oauth.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.Log.Warn().Err(err).Msg("oidc code exchange failed")
		return fiber.NewError(fiber.StatusUnauthorized, "login failed")
	}
	rawID, ok := tok.Extra("id_token").(string)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "login failed: no id_token")
	}
	idTok, err := h.verifier.Verify(ctx, rawID)
	if err != nil {
		h.Log.Warn().Err(err).Msg("id token verification failed")
		return fiber.NewError(fiber.StatusUnauthorized, "login failed")
	}
	if idTok.Nonce != c.Cookies(nonceCookie) {
		return fiber.NewError(fiber.StatusUnauthorized, "login failed: nonce mismatch")
	}

	id, err := identityFromToken(idTok)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}

	c.ClearCookie(stateCookie, nonceCookie)
	if err := h.startSession(c, id); err != nil {
		return err
	}
	return c.Redirect("/account", fiber.StatusFound)
}

func identityFromToken(idTok *oidc.IDToken) (Identity, error) {
	var claims struct {
		Email    string `json:"email"`
		Nickname string `json:"nickname"`
		Name     string `json:"name"`
	}
	if err := idTok.Claims(&claims); err != nil {
		return Identity{}, err
	}
	if strings.TrimSpace(claims.Email) == "" {
		return Identity{}, errors.New("login failed: provider returned no email")
	}
	name := claims.Nickname
	if name == "" {
		name = claims.Name
	}
	return Identity{Email: claims.Email, Name: name}, nil
}

func (h *Handlers) Logout(c *fiber.Ctx) error {
	c.ClearCookie(SessionCookie)

	if h.oauth == nil {
		return c.Redirect("/", fiber.StatusFound)
	}
	// Auth0 ends the provider session at /v2/logout.
	u, err := url.Parse(strings.TrimRight(h.issuer, "/") + "/v2/logout")
	if err != nil {
		return c.Redirect("/", fiber.StatusFound)
	}
	q := u.Query()
	q.Set("client_id", h.clientID)
	q.Set("returnTo", h.BaseURL+"/")
	u.RawQuery = q.Encode()
	return c.Redirect(u.String(), fiber.StatusFound)
}

func (h *Handlers) startSession(c *fiber.Ctx, id Identity) error {
	token, err := h.Sessions.Sign(id)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create session")
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.Sessions.TTL()),
		HTTPOnly: true,
		Secure:   h.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (h *Handlers) setTempCookie(c *fiber.Ctx, name, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		Secure:   h.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
