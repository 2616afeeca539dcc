package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// the backend reads and writes prices as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	RoleCustomer        = "customer"
	RoleRestaurantAdmin = "restaurant_admin"
	RoleShipper         = "shipper"
	RoleAdmin           = "admin"
)

const (
	OrderCreated        = "created"
	OrderAccepted       = "accepted"
	OrderPreparing      = "preparing"
	OrderOutForDelivery = "out_for_delivery"
	OrderDelivered      = "delivered"
	OrderCancelled      = "cancelled"
)

const (
	RestaurantOpen   = "open"
	RestaurantClosed = "closed"
)

const (
	ShipperAvailable = "available"
	ShipperBusy      = "busy"
	ShipperOffline   = "offline"
)

type User struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	Role        string `json:"role"`
}

type MenuItem struct {
	ID           uint            `json:"id"`
	RestaurantID uint            `json:"restaurant_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Available    bool            `json:"available"`
}

type Restaurant struct {
	ID          uint       `json:"id"`
	ManagerID   uint       `json:"manager_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Address     string     `json:"address"`
	PhoneNumber string     `json:"phone_number"`
	Email       string     `json:"email"`
	Status      string     `json:"status"`
	MenuItems   []MenuItem `json:"menu_items"`
}

type OrderItem struct {
	ID         uint            `json:"id"`
	OrderID    uint            `json:"order_id"`
	MenuItemID uint            `json:"menu_item_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type Order struct {
	ID            uint            `json:"id"`
	CustomerID    uint            `json:"customer_id"`
	RestaurantID  uint            `json:"restaurant_id"`
	ShipperID     *uint           `json:"shipper_id,omitempty"`
	ItemsPrice    decimal.Decimal `json:"items_price"`
	DeliveryPrice decimal.Decimal `json:"delivery_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        string          `json:"status"`
	OrderItems    []OrderItem     `json:"order_items"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Shipper struct {
	ID       uint      `json:"id"`
	UserID   uint      `json:"user_id"`
	Status   string    `json:"status"`
	Location *Location `json:"location,omitempty"`
}

type UserLocation struct {
	ID      uint   `json:"id"`
	Address string `json:"address"`
}

type CreateOrderItem struct {
	MenuItemID uint `json:"menu_item_id"`
	Quantity   int  `json:"quantity"`
}

type CreateOrderRequest struct {
	CustomerID   uint              `json:"customer_id"`
	RestaurantID uint              `json:"restaurant_id"`
	OrderItems   []CreateOrderItem `json:"order_items"`
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (r *Restaurant) Clone() *Restaurant {
	if r == nil {
		return nil
	}
	c := *r
	if r.MenuItems != nil {
		c.MenuItems = append([]MenuItem(nil), r.MenuItems...)
	}
	return &c
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.ShipperID != nil {
		id := *o.ShipperID
		c.ShipperID = &id
	}
	if o.OrderItems != nil {
		c.OrderItems = append([]OrderItem(nil), o.OrderItems...)
	}
	return &c
}

func (s *Shipper) Clone() *Shipper {
	if s == nil {
		return nil
	}
	c := *s
	if s.Location != nil {
		loc := *s.Location
		c.Location = &loc
	}
	return &c
}
