// Package cart builds an order draft from menu selections. It never talks to
// the server; OrderRequest turns the draft into the body of POST /order.
package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/food_delivery/internal/models"
)

var (
	ErrRestaurantMismatch = errors.New("cart: item belongs to another restaurant")
	ErrIndexOutOfRange    = errors.New("cart: index out of range")
	ErrEmpty              = errors.New("cart: empty")
	ErrNoRestaurant       = errors.New("cart: no restaurant selected")
)

type Item struct {
	MenuItemID uint            `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

type Draft struct {
	RestaurantID uint   `json:"restaurant_id"`
	Items        []Item `json:"items"`
}

// Cart holds items of a single restaurant. Adding an item from another
// restaurant while the cart has items is rejected with ErrRestaurantMismatch.
type Cart struct {
	mu           sync.Mutex
	restaurantID uint
	items        []Item
}

func New() *Cart {
	return &Cart{}
}

// AddItem bumps the quantity of an item already in the cart, or appends it
// with quantity 1. An item without a restaurant id joins the pinned one and
// is rejected with ErrNoRestaurant when nothing is pinned, so a non-empty
// cart always has a restaurant.
func (c *Cart) AddItem(m models.MenuItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case m.RestaurantID == 0:
		if c.restaurantID == 0 {
			return fmt.Errorf("%w: item %d", ErrNoRestaurant, m.ID)
		}
	case c.restaurantID != m.RestaurantID:
		if len(c.items) > 0 {
			return fmt.Errorf("%w: cart has restaurant %d, item %d has %d",
				ErrRestaurantMismatch, c.restaurantID, m.ID, m.RestaurantID)
		}
		c.restaurantID = m.RestaurantID
	}

	for i := range c.items {
		if c.items[i].MenuItemID == m.ID {
			c.items[i].Quantity++
			return nil
		}
	}
	c.items = append(c.items, Item{
		MenuItemID: m.ID,
		Name:       m.Name,
		Price:      m.Price,
		Quantity:   1,
	})
	return nil
}

func (c *Cart) RemoveItem(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(i)
}

// UpdateQuantity sets the quantity of item i. Zero or less removes it.
func (c *Cart) UpdateQuantity(i, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		return c.removeLocked(i)
	}
	if i < 0 || i >= len(c.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(c.items))
	}
	c.items[i].Quantity = quantity
	return nil
}

func (c *Cart) removeLocked(i int) error {
	if i < 0 || i >= len(c.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(c.items))
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return nil
}

// SetRestaurant pins the cart. Switching restaurants needs an empty cart.
func (c *Cart) SetRestaurant(id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) > 0 && c.restaurantID != 0 && c.restaurantID != id {
		return fmt.Errorf("%w: cart has restaurant %d", ErrRestaurantMismatch, c.restaurantID)
	}
	c.restaurantID = id
	return nil
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.restaurantID = 0
	c.mu.Unlock()
}

func (c *Cart) RestaurantID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restaurantID
}

// Total is the exact sum of price times quantity.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// ItemCount is the number of distinct lines.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cart) TotalQuantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

func (c *Cart) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Draft{RestaurantID: c.restaurantID, Items: append([]Item(nil), c.items...)}
}

func (c *Cart) OrderRequest(customerID uint) (models.CreateOrderRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return models.CreateOrderRequest{}, ErrEmpty
	}
	req := models.CreateOrderRequest{
		CustomerID:   customerID,
		RestaurantID: c.restaurantID,
		OrderItems:   make([]models.CreateOrderItem, 0, len(c.items)),
	}
	for _, it := range c.items {
		req.OrderItems = append(req.OrderItems, models.CreateOrderItem{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}
	return req, nil
}
