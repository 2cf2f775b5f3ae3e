package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/brightpath/accounts-api/internal/api/metrics"
	"github.com/brightpath/accounts-api/internal/core/domain"
	"github.com/brightpath/accounts-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	providers   map[string]ports.OAuthProvider
	states      ports.StateStore
}

func NewAuthHandler(authService ports.AuthService, providers []ports.OAuthProvider, states ports.StateStore) *AuthHandler {
	byName := make(map[string]ports.OAuthProvider, len(providers))
	for _, p := range providers {
		byName[strings.ToLower(string(p.Name()))] = p
	}
	return &AuthHandler{authService: authService, providers: byName, states: states}
}

// SignUp registers a new local account.
//
// @Summary      Sign up with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := h.authService.SignUpLocal(c.Request().Context(), ports.SignUpInput{
		Email:       req.Email,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.Inc()
	return c.JSON(http.StatusCreated, authResponse{Token: result.Token, ExpiresIn: result.ExpiresIn, User: result.User})
}

// SignIn authenticates local credentials and returns a JWT.
//
// @Summary      Sign in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := h.authService.SignInLocal(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.SignInsTotal.WithLabelValues("failure").Inc()
		}
		return err
	}

	metrics.TokensIssuedTotal.Inc()
	return c.JSON(http.StatusOK, authResponse{Token: result.Token, ExpiresIn: result.ExpiresIn, User: result.User})
}

// OAuthStart redirects the browser to the provider's consent page.
//
// @Summary      Start an OAuth login
// @Tags         auth
// @Param        provider  path  string  true  "google or github"
// @Success      302
// @Failure      404  {object}  map[string]string
// @Router       /auth/{provider} [get]
func (h *AuthHandler) OAuthStart(c echo.Context) error {
	provider, ok := h.providers[strings.ToLower(c.Param("provider"))]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown provider")
	}

	state, err := h.states.Issue(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// OAuthCallback completes the provider round-trip: it validates the
// anti-forgery state, exchanges the code for a profile, reconciles the
// identity to exactly one account and grants a session.
//
// @Summary      OAuth provider callback
// @Tags         auth
// @Produce      json
// @Param        provider  path   string  true  "google or github"
// @Param        code      query  string  true  "Authorization code"
// @Param        state     query  string  true  "Anti-forgery state"
// @Success      200  {object}  authResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/{provider}/callback [get]
func (h *AuthHandler) OAuthCallback(c echo.Context) error {
	name := strings.ToLower(c.Param("provider"))
	provider, ok := h.providers[name]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown provider")
	}

	ctx := c.Request().Context()

	outstanding, err := h.states.Consume(ctx, c.QueryParam("state"))
	if err != nil {
		return err
	}
	if !outstanding {
		metrics.OAuthLoginsTotal.WithLabelValues(string(provider.Name()), "rejected").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid oauth state")
	}

	code := c.QueryParam("code")
	if code == "" {
		metrics.OAuthLoginsTotal.WithLabelValues(string(provider.Name()), "rejected").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization code")
	}

	identity, err := provider.Exchange(ctx, code)
	if err != nil {
		metrics.OAuthLoginsTotal.WithLabelValues(string(provider.Name()), "rejected").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "oauth exchange failed")
	}

	user, err := h.authService.ValidateOAuthLogin(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrProfileEmailMissing) {
			metrics.OAuthLoginsTotal.WithLabelValues(string(provider.Name()), "rejected").Inc()
			return echo.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf(
				"Your %s account does not provide an email address. Please use a different sign-in method.",
				titleCase(name)))
		}
		return err
	}

	result, err := h.authService.IssueToken(user)
	if err != nil {
		return err
	}

	metrics.OAuthLoginsTotal.WithLabelValues(string(provider.Name()), "resolved").Inc()
	metrics.TokensIssuedTotal.Inc()
	return c.JSON(http.StatusOK, authResponse{Token: result.Token, ExpiresIn: result.ExpiresIn, User: result.User})
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
