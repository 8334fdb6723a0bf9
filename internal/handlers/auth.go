package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smsrelay/smsrelay/internal/accounts"
	"github.com/smsrelay/smsrelay/internal/auth"
)

// AuthHandler issues bearer credentials for agents.
type AuthHandler struct {
	accounts     *accounts.Service
	jwtSecret    string
	jwtExpiresIn time.Duration
	logger       *slog.Logger
}

func NewAuthHandler(log *slog.Logger, accountService *accounts.Service, jwtSecret string, jwtExpiresIn time.Duration) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		accounts:     accountService,
		jwtSecret:    jwtSecret,
		jwtExpiresIn: jwtExpiresIn,
		logger:       log.With(slog.String("handler", "auth")),
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/auth/login", h.Login)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string         `json:"token"`
	User  accounts.Agent `json:"user"`
}

// Login exchanges an email/password pair for a signed bearer token. Every
// authentication failure maps to the same 401 body.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, accounts.ErrInvalidCredentials.Error())
	}

	agent, err := h.accounts.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, accounts.ErrInvalidCredentials.Error())
		}
		h.logger.Error("authenticate failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	token, _, err := auth.GenerateToken(agent.ID, agent.Email, h.jwtSecret, h.jwtExpiresIn)
	if err != nil {
		h.logger.Error("token generation failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: agent})
}
