package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mcw-proxy/internal/auth"
	"mcw-proxy/internal/store"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type loginResponse struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    loginUser `json:"user"`
}

// Login checks credentials and issues a bearer token.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	u, err := h.db.UserByUsername(c.Request().Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) {
		return fail(http.StatusUnauthorized, "Invalid username or password", nil)
	}
	if err != nil {
		return fail(http.StatusInternalServerError, "Login failed", err)
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return fail(http.StatusUnauthorized, "Invalid username or password", nil)
	}

	token, err := h.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return fail(http.StatusInternalServerError, "Login failed", err)
	}

	h.logger.Info("admin login", "user", u.Username, "role", u.Role)
	return c.JSON(http.StatusOK, loginResponse{
		Message: "Login successful",
		Token:   token,
		User:    loginUser{ID: u.ID, Name: u.Name, Role: u.Role},
	})
}

type userRequest struct {
	ID       flexInt `json:"id"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
}

// CreateUser adds an admin account.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req userRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if req.Username == "" || req.Password == "" {
		return fail(http.StatusBadRequest, "Username and password are required", nil)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return fail(http.StatusInternalServerError, "User creation failed", err)
	}
	id, err := h.db.CreateUser(c.Request().Context(), store.User{
		Username:     req.Username,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         req.Role,
	})
	if err != nil {
		return fail(http.StatusInternalServerError, "User creation failed", err)
	}

	if claims, ok := auth.ClaimsFrom(c); ok {
		h.logger.Info("user created", "id", id, "by", claims.Username)
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "User created successfully", ID: id})
}

// UpdateUser changes name and role, and the password when one is given.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req userRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if req.ID <= 0 {
		return fail(http.StatusBadRequest, "Missing ID", nil)
	}

	var hash string
	if req.Password != "" {
		var err error
		if hash, err = auth.HashPassword(req.Password); err != nil {
			return fail(http.StatusInternalServerError, "User update failed", err)
		}
	}
	if err := h.db.UpdateUser(c.Request().Context(), int64(req.ID), req.Name, req.Role, hash); err != nil {
		return fail(http.StatusInternalServerError, "User update failed", err)
	}
	return message(c, http.StatusOK, "User updated successfully")
}

// ListUsers returns every account without password hashes.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.db.ListUsers(c.Request().Context())
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to fetch users", err)
	}
	return c.JSON(http.StatusOK, map[string][]store.User{"users": users})
}

// GetUser returns one account.
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	u, err := h.db.UserByID(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fail(http.StatusNotFound, "Not found", nil)
	}
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to fetch record", err)
	}
	return c.JSON(http.StatusOK, u)
}
