package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gatehouse/internal/apperror"
)

// Handler handles HTTP requests for identity (register, login, profile).
// Handlers are thin: they bind the request, validate the shape, call the
// service, and write JSON. No business logic lives here.
type Handler struct {
	service Service
}

// NewHandler creates an identity handler with the given service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register creates a new account (POST /api/auth/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		return apperror.NewValidation("Email, password, and name are required")
	}
	if !validEmail(req.Email) {
		return apperror.NewValidation("Invalid email format")
	}
	if len(req.Password) < minPasswordLength {
		return apperror.NewValidation("Password must be at least 6 characters long")
	}

	user, err := h.service.Register(c.Request().Context(), RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "User registered successfully",
		"userId":  user.ID,
		"email":   user.Email,
		"name":    user.Name,
	})
}

// Login authenticates credentials and returns a bearer token
// (POST /api/auth/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return apperror.NewValidation("Email and password are required")
	}

	signed, user, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   signed,
		"user": map[string]string{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}

// Profile returns the authenticated caller's identity
// (GET /api/auth/profile, bearer required).
func (h *Handler) Profile(c echo.Context) error {
	principal := GetPrincipal(c)
	if principal == nil {
		return apperror.NewMissingContext()
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user": principal,
	})
}
