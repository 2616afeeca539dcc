package fakeapi

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_delivery/internal/models"
	authmw "github.com/Skotchmaster/food_delivery/pkg/middleware/auth"
)

func paramID(c echo.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// ownerOrAdmin reports whether the caller may touch the user record id.
func ownerOrAdmin(c echo.Context, id uint) bool {
	claims, ok := authmw.Claims(c)
	return ok && (claims.UserID == id || claims.Role == models.RoleAdmin)
}

func (s *Server) ListUsers(c echo.Context) error {
	s.mu.Lock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.user)
	}
	s.mu.Unlock()

	slices.SortFunc(users, func(a, b models.User) int { return cmp.Compare(a.ID, b.ID) })
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

func (s *Server) GetUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}
	if !ownerOrAdmin(c, id) {
		return errorJSON(c, http.StatusForbidden, "can't read other users")
	}

	s.mu.Lock()
	u, ok := s.users[id]
	var user models.User
	if ok {
		user = u.user
	}
	s.mu.Unlock()
	if !ok {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) UpdateUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}
	if !ownerOrAdmin(c, id) {
		return errorJSON(c, http.StatusForbidden, "can't change other users")
	}
	var req struct {
		Email       string `json:"email"`
		Name        string `json:"name"`
		PhoneNumber string `json:"phone_number"`
		Address     string `json:"address"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	if req.Email != "" && req.Email != u.user.Email {
		if s.userByEmailLocked(req.Email) != nil {
			return errorJSON(c, http.StatusBadRequest, ErrEmailTaken.Error())
		}
		u.user.Email = req.Email
	}
	setIf(&u.user.Name, req.Name)
	setIf(&u.user.PhoneNumber, req.PhoneNumber)
	setIf(&u.user.Address, req.Address)
	return c.JSON(http.StatusOK, echo.Map{"message": u.user})
}

func (s *Server) DeleteUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}
	if !ownerOrAdmin(c, id) {
		return errorJSON(c, http.StatusForbidden, "can't delete other users")
	}

	s.mu.Lock()
	_, ok = s.users[id]
	delete(s.users, id)
	for tok, uid := range s.active {
		if uid == id {
			delete(s.active, tok)
		}
	}
	s.mu.Unlock()
	if !ok {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

func (s *Server) UserLocation(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}

	s.mu.Lock()
	u, ok := s.users[id]
	var loc models.UserLocation
	if ok {
		loc = models.UserLocation{ID: id, Address: u.user.Address}
	}
	s.mu.Unlock()
	if !ok {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, loc)
}
