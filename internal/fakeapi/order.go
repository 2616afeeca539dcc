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

var orderStatuses = []string{
	models.OrderCreated,
	models.OrderAccepted,
	models.OrderPreparing,
	models.OrderOutForDelivery,
	models.OrderDelivered,
	models.OrderCancelled,
}

// CreateOrder prices the order from the current menu. Delivery is free
// until a shipper is assigned.
func (s *Server) CreateOrder(c echo.Context) error {
	claims, _ := authmw.Claims(c)
	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if req.CustomerID != 0 && req.CustomerID != claims.UserID {
		return errorJSON(c, http.StatusForbidden, "can't order for another customer")
	}
	if len(req.OrderItems) == 0 {
		return errorJSON(c, http.StatusBadRequest, "order has no items")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[req.RestaurantID]
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "Restaurant not found")
	}

	o := &models.Order{
		ID:           s.nextIDLocked(),
		CustomerID:   claims.UserID,
		RestaurantID: r.ID,
		Status:       models.OrderCreated,
	}
	for _, line := range req.OrderItems {
		i := slices.IndexFunc(r.MenuItems, func(m models.MenuItem) bool { return m.ID == line.MenuItemID })
		switch {
		case i < 0:
			return errorJSON(c, http.StatusBadRequest, "MenuItem not found")
		case !r.MenuItems[i].Available:
			return errorJSON(c, http.StatusBadRequest, "MenuItem not available")
		case line.Quantity <= 0:
			return errorJSON(c, http.StatusBadRequest, "quantity must be positive")
		}
		price := r.MenuItems[i].Price
		o.OrderItems = append(o.OrderItems, models.OrderItem{
			ID:         s.nextIDLocked(),
			OrderID:    o.ID,
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			UnitPrice:  price,
		})
		o.ItemsPrice = o.ItemsPrice.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	o.DeliveryPrice = decimal.Zero
	o.TotalPrice = o.ItemsPrice.Add(o.DeliveryPrice)

	s.orders[o.ID] = o
	s.log.Info("order_created", "order_id", o.ID, "restaurant_id", o.RestaurantID)
	return c.JSON(http.StatusOK, echo.Map{"message": o.Clone()})
}

func (s *Server) GetOrder(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid order id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "order not found")
	}
	return c.JSON(http.StatusOK, o)
}

// UpdateOrderStatus only acknowledges the change, as the production
// service does.
func (s *Server) UpdateOrderStatus(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid order id")
	}
	var req struct {
		OrderID uint   `json:"order_id"`
		Status  string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if !slices.Contains(orderStatuses, req.Status) {
		return errorJSON(c, http.StatusBadRequest, "unknown status "+req.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "order not found")
	}
	o.Status = req.Status
	return c.JSON(http.StatusOK, echo.Map{"message": "Order updated"})
}

func (s *Server) OrdersByCustomer(c echo.Context) error {
	return s.listOrders(c, "customer_id", func(o *models.Order, id uint) bool { return o.CustomerID == id })
}

func (s *Server) OrdersByRestaurant(c echo.Context) error {
	return s.listOrders(c, "restaurant_id", func(o *models.Order, id uint) bool { return o.RestaurantID == id })
}

func (s *Server) OrdersByShipper(c echo.Context) error {
	return s.listOrders(c, "shipper_id", func(o *models.Order, id uint) bool {
		return o.ShipperID != nil && *o.ShipperID == id
	})
}

func (s *Server) listOrders(c echo.Context, param string, match func(*models.Order, uint) bool) error {
	id, ok := paramID(c, param)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid "+param)
	}

	s.mu.Lock()
	out := []models.Order{}
	for _, o := range s.orders {
		if match(o, id) {
			out = append(out, *o.Clone())
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b models.Order) int { return cmp.Compare(a.ID, b.ID) })
	return c.JSON(http.StatusOK, out)
}

// AssignShipper puts an order out for delivery with a priced delivery fee.
func (s *Server) AssignShipper(orderID, shipperID uint, fee decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false
	}
	o.ShipperID = &shipperID
	o.Status = models.OrderOutForDelivery
	o.DeliveryPrice = fee
	o.TotalPrice = o.ItemsPrice.Add(fee)
	return true
}
