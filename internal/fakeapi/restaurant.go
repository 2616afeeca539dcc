package fakeapi

import (
	"cmp"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/food_delivery/internal/models"
	authmw "github.com/Skotchmaster/food_delivery/pkg/middleware/auth"
)

type restaurantRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Status      string `json:"status"`
}

type menuItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Available   bool            `json:"available"`
}

// withoutMenu copies r without its menu. The restaurant endpoints never
// embed menus.
func withoutMenu(r *models.Restaurant) models.Restaurant {
	out := *r
	out.MenuItems = nil
	return out
}

func (s *Server) CreateRestaurant(c echo.Context) error {
	claims, _ := authmw.Claims(c)
	var req restaurantRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return errorJSON(c, http.StatusBadRequest, "name is required")
	}

	r := s.AddRestaurant(models.Restaurant{
		ManagerID:   claims.UserID,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Status:      req.Status,
	})
	return c.JSON(http.StatusOK, withoutMenu(&r))
}

func (s *Server) GetRestaurant(c echo.Context) error {
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid restaurant id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[id]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "record not found"})
	}
	return c.JSON(http.StatusOK, withoutMenu(r))
}

// UpdateRestaurant lets the manager change the restaurant. Empty fields are
// kept.
func (s *Server) UpdateRestaurant(c echo.Context) error {
	claims, _ := authmw.Claims(c)
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid restaurant id")
	}
	var req restaurantRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[id]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "record not found"})
	}
	if r.ManagerID != claims.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "can't change other restaurant status"})
	}
	setIf(&r.Name, req.Name)
	setIf(&r.Description, req.Description)
	setIf(&r.Address, req.Address)
	setIf(&r.PhoneNumber, req.PhoneNumber)
	setIf(&r.Email, req.Email)
	setIf(&r.Status, req.Status)
	return c.JSON(http.StatusOK, withoutMenu(r))
}

func (s *Server) ListRestaurants(c echo.Context) error {
	s.mu.Lock()
	out := make([]models.Restaurant, 0, len(s.restaurants))
	for _, r := range s.restaurants {
		out = append(out, withoutMenu(r))
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b models.Restaurant) int { return cmp.Compare(a.ID, b.ID) })
	return c.JSON(http.StatusOK, echo.Map{"restaurants": out})
}

func (s *Server) Menu(c echo.Context) error {
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid restaurant id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[id]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "record not found"})
	}
	items := append([]models.MenuItem{}, r.MenuItems...)
	return c.JSON(http.StatusOK, items)
}

func (s *Server) GetMenuItem(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, i, ok := s.menuItemLocked(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "menu item not found"})
	}
	return c.JSON(http.StatusOK, *i)
}

func (s *Server) CreateMenuItem(c echo.Context) error {
	claims, _ := authmw.Claims(c)
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid restaurant id")
	}
	var req menuItemRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return errorJSON(c, http.StatusBadRequest, "name is required")
	}
	if req.Price.IsNegative() {
		return errorJSON(c, http.StatusBadRequest, "price must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[id]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "record not found"})
	}
	if r.ManagerID != claims.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "can't change other restaurant menu"})
	}
	item := models.MenuItem{
		ID:           s.nextIDLocked(),
		RestaurantID: id,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Available:    req.Available,
	}
	r.MenuItems = append(r.MenuItems, item)
	return c.JSON(http.StatusOK, echo.Map{"message": item})
}

func (s *Server) UpdateMenuItem(c echo.Context) error {
	claims, _ := authmw.Claims(c)
	var req menuItemRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if req.Price.IsNegative() {
		return errorJSON(c, http.StatusBadRequest, "price must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, item, ok := s.menuItemLocked(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "menu item not found"})
	}
	if r.ManagerID != claims.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "can't change other restaurant menu"})
	}
	setIf(&item.Name, req.Name)
	setIf(&item.Description, req.Description)
	if !req.Price.IsZero() {
		item.Price = req.Price
	}
	item.Available = req.Available
	return c.JSON(http.StatusOK, echo.Map{"message": *item})
}

func (s *Server) DeleteMenuItem(c echo.Context) error {
	claims, _ := authmw.Claims(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	r, item, ok := s.menuItemLocked(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "menu item not found"})
	}
	if r.ManagerID != claims.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "can't change other restaurant menu"})
	}
	itemID := item.ID
	r.MenuItems = slices.DeleteFunc(r.MenuItems, func(m models.MenuItem) bool { return m.ID == itemID })
	return c.JSON(http.StatusOK, echo.Map{"message": "Menu item has been deleted"})
}

// menuItemLocked resolves :restaurant_id and :id. The caller holds s.mu.
func (s *Server) menuItemLocked(c echo.Context) (*models.Restaurant, *models.MenuItem, bool) {
	rid, ok := paramID(c, "restaurant_id")
	if !ok {
		return nil, nil, false
	}
	id, ok := paramID(c, "id")
	if !ok {
		return nil, nil, false
	}
	r, ok := s.restaurants[rid]
	if !ok {
		return nil, nil, false
	}
	i := slices.IndexFunc(r.MenuItems, func(m models.MenuItem) bool { return m.ID == id })
	if i < 0 {
		return nil, nil, false
	}
	return r, &r.MenuItems[i], true
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
