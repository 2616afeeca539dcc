package fakeapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_delivery/internal/hash"
	"github.com/Skotchmaster/food_delivery/internal/models"
	authmw "github.com/Skotchmaster/food_delivery/pkg/middleware/auth"
	"github.com/Skotchmaster/food_delivery/pkg/tokens"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	Role        string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func errorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"error": msg})
}

func (s *Server) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "email and password are required")
	}
	switch req.Role {
	case "", models.RoleCustomer, models.RoleRestaurantAdmin, models.RoleShipper:
	default:
		return errorJSON(c, http.StatusBadRequest, "unknown role "+req.Role)
	}

	u, err := s.AddUser(models.User{
		Email:       req.Email,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		Role:        req.Role,
	}, req.Password)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	s.log.Info("user_registered", "user_id", u.ID, "role", u.Role)
	return c.JSON(http.StatusCreated, echo.Map{"user": u})
}

func (s *Server) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	s.mu.Lock()
	u := s.userByEmailLocked(req.Email)
	var hashed string
	if u != nil {
		hashed = u.passwordHash
	}
	s.mu.Unlock()

	if u == nil || !hash.CheckPassword(hashed, req.Password) {
		return errorJSON(c, http.StatusUnauthorized, "invalid email or password")
	}

	s.mu.Lock()
	id := u.user.ID
	access, refresh, err := s.issueLocked(u)
	s.mu.Unlock()
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	s.log.Info("user_logged_in", "user_id", id)
	return c.JSON(http.StatusOK, echo.Map{
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// Logout revokes the presented access token and the user's refresh token.
func (s *Server) Logout(c echo.Context) error {
	claims, _ := authmw.Claims(c)
	token := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")

	s.mu.Lock()
	delete(s.active, token)
	if u, ok := s.users[claims.UserID]; ok {
		u.refreshID = ""
	}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, echo.Map{"message": "User logged out"})
}

func (s *Server) RefreshToken(c echo.Context) error {
	s.refreshCalls.Add(1)
	if s.failRefresh.Load() {
		return errorJSON(c, http.StatusUnauthorized, "refresh token revoked")
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return errorJSON(c, http.StatusBadRequest, "refresh_token is required")
	}
	claims, err := tokens.RefreshClaimsFromToken(req.RefreshToken, s.secret)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid refresh token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[claims.UserID]
	if !ok || u.refreshID == "" || u.refreshID != claims.ID {
		return errorJSON(c, http.StatusUnauthorized, "invalid refresh token")
	}
	access, refresh, err := s.issueLocked(u)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if !s.rotateRefresh {
		// the old refresh token stays the valid one
		u.refreshID = claims.ID
		return c.JSON(http.StatusOK, echo.Map{"access_token": access})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (s *Server) ResetPassword(c echo.Context) error {
	claims, _ := authmw.Claims(c)
	var req struct {
		OldPass string `json:"old_pass"`
		NewPass string `json:"new_pass"`
	}
	if err := c.Bind(&req); err != nil || req.NewPass == "" {
		return errorJSON(c, http.StatusBadRequest, "old_pass and new_pass are required")
	}

	s.mu.Lock()
	u, ok := s.users[claims.UserID]
	var hashed string
	if ok {
		hashed = u.passwordHash
	}
	s.mu.Unlock()
	if !ok {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	if !hash.CheckPassword(hashed, req.OldPass) {
		return errorJSON(c, http.StatusBadRequest, "old password does not match")
	}
	return s.setPassword(c, claims.UserID, req.NewPass, "Password updated")
}

func (s *Server) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return errorJSON(c, http.StatusBadRequest, "email is required")
	}

	s.mu.Lock()
	u := s.userByEmailLocked(req.Email)
	if u != nil {
		s.resets[uuid.NewString()] = u.user.ID
	}
	s.mu.Unlock()
	if u == nil {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "An email has been sent"})
}

func (s *Server) ResetForgotPassword(c echo.Context) error {
	var req struct {
		ResetToken  string `json:"reset_token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil || req.ResetToken == "" || req.NewPassword == "" {
		return errorJSON(c, http.StatusBadRequest, "reset_token and new_password are required")
	}

	s.mu.Lock()
	id, ok := s.resets[req.ResetToken]
	delete(s.resets, req.ResetToken)
	s.mu.Unlock()
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid reset token")
	}
	return s.setPassword(c, id, req.NewPassword, "Password has been reset")
}

func (s *Server) setPassword(c echo.Context, id uint, password, msg string) error {
	h, err := hash.HashPasswordCost(password, s.cost)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	s.mu.Lock()
	if u, ok := s.users[id]; ok {
		u.passwordHash = h
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}
