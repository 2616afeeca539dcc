package cache

import (
	"context"
	"log/slog"

	"github.com/Skotchmaster/food_delivery/internal/models"
)

type OrderAPI interface {
	Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
	Get(ctx context.Context, id uint) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*models.Order, bool, error)
	ListByCustomer(ctx context.Context, customerID uint) ([]models.Order, error)
	ListByRestaurant(ctx context.Context, restaurantID uint) ([]models.Order, error)
	ListByShipper(ctx context.Context, shipperID uint) ([]models.Order, error)
}

type Orders struct {
	state
	api OrderAPI

	items   []models.Order
	current *models.Order
}

func NewOrders(api OrderAPI, log *slog.Logger) *Orders {
	c := &Orders{api: api}
	c.init(log, "order")
	return c
}

func orderKey(o *models.Order) uint { return o.ID }

func (c *Orders) ListByCustomer(ctx context.Context, customerID uint) ([]models.Order, error) {
	return c.list(ctx, "list_by_customer", func(ctx context.Context) ([]models.Order, error) {
		return c.api.ListByCustomer(ctx, customerID)
	})
}

func (c *Orders) ListByRestaurant(ctx context.Context, restaurantID uint) ([]models.Order, error) {
	return c.list(ctx, "list_by_restaurant", func(ctx context.Context) ([]models.Order, error) {
		return c.api.ListByRestaurant(ctx, restaurantID)
	})
}

func (c *Orders) ListByShipper(ctx context.Context, shipperID uint) ([]models.Order, error) {
	return c.list(ctx, "list_by_shipper", func(ctx context.Context) ([]models.Order, error) {
		return c.api.ListByShipper(ctx, shipperID)
	})
}

func (c *Orders) list(ctx context.Context, op string, fetch func(context.Context) ([]models.Order, error)) ([]models.Order, error) {
	c.begin()
	list, err := fetch(ctx)
	if err != nil {
		return nil, c.fail(op, err)
	}
	var out []models.Order
	c.commit(func() {
		c.items = uniqueByID(list, orderKey, (*models.Order).Clone)
		out = cloneAll(c.items, (*models.Order).Clone)
	})
	return out, nil
}

// Get makes the order current and refreshes its copy in the collection.
func (c *Orders) Get(ctx context.Context, id uint) (*models.Order, error) {
	c.begin()
	o, err := c.api.Get(ctx, id)
	if err != nil {
		return nil, c.fail("get", err)
	}
	c.commit(func() {
		c.current = o.Clone()
		if i := indexOf(c.items, o.ID, orderKey); i >= 0 {
			c.items[i] = *o.Clone()
		}
	})
	return o.Clone(), nil
}

// Create puts the new order first in the collection and makes it current.
func (c *Orders) Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	c.begin()
	o, err := c.api.Create(ctx, req)
	if err != nil {
		return nil, c.fail("create", err)
	}
	c.commit(func() {
		rest := c.items
		if i := indexOf(rest, o.ID, orderKey); i >= 0 {
			rest = append(rest[:i:i], rest[i+1:]...)
		}
		c.items = append([]models.Order{*o.Clone()}, rest...)
		c.current = o.Clone()
	})
	return o.Clone(), nil
}

// UpdateStatus stores the status string the server answered with. When the
// server only acknowledged the change, the other fields stay as mirrored.
func (c *Orders) UpdateStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	c.begin()
	o, complete, err := c.api.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, c.fail("update_status", err)
	}
	var out *models.Order
	c.commit(func() {
		c.each(id, func(dst *models.Order) {
			if complete {
				*dst = *o.Clone()
				return
			}
			dst.Status = o.Status
		})
		out = o.Clone()
		if !complete {
			if held := c.findLocked(id); held != nil {
				out = held
			}
		}
	})
	return out, nil
}

func (c *Orders) Cancel(ctx context.Context, id uint) (*models.Order, error) {
	return c.UpdateStatus(ctx, id, models.OrderCancelled)
}

func (c *Orders) Find(id uint) *models.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.findLocked(id)
}

func (c *Orders) findLocked(id uint) *models.Order {
	if i := indexOf(c.items, id, orderKey); i >= 0 {
		return c.items[i].Clone()
	}
	if c.current != nil && c.current.ID == id {
		return c.current.Clone()
	}
	return nil
}

func (c *Orders) ByStatus(status string) []models.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Order
	for i := range c.items {
		if c.items[i].Status == status {
			out = append(out, *c.items[i].Clone())
		}
	}
	return out
}

func (c *Orders) ApplyLocal(o models.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.each(o.ID, func(dst *models.Order) { *dst = *o.Clone() })
}

func (c *Orders) Orders() []models.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.items, (*models.Order).Clone)
}

func (c *Orders) Current() *models.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Clone()
}

func (c *Orders) ClearCurrent() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

func (c *Orders) Clear() {
	c.mu.Lock()
	c.items = nil
	c.current = nil
	c.mu.Unlock()
}

func (c *Orders) each(id uint, fn func(*models.Order)) {
	if i := indexOf(c.items, id, orderKey); i >= 0 {
		fn(&c.items[i])
	}
	if c.current != nil && c.current.ID == id {
		fn(c.current)
	}
}
