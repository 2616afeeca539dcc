package cache

import (
	"context"
	"log/slog"

	"github.com/Skotchmaster/food_delivery/internal/models"
)

type ShipperAPI interface {
	List(ctx context.Context) ([]models.Shipper, error)
	Get(ctx context.Context, id uint) (*models.Shipper, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*models.Shipper, bool, error)
	UpdateLocation(ctx context.Context, id uint, loc models.Location) (*models.Location, error)
	FetchLocation(ctx context.Context, id uint) (*models.Location, error)
}

type Shippers struct {
	state
	api ShipperAPI

	items    []models.Shipper
	selected *models.Shipper
	// last position read, written or pushed for the selected shipper
	lastLocation *models.Location
}

func NewShippers(api ShipperAPI, log *slog.Logger) *Shippers {
	c := &Shippers{api: api}
	c.init(log, "shipper")
	return c
}

func shipperKey(s *models.Shipper) uint { return s.ID }

func cloneLocation(l *models.Location) *models.Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func (c *Shippers) List(ctx context.Context) ([]models.Shipper, error) {
	c.begin()
	list, err := c.api.List(ctx)
	if err != nil {
		return nil, c.fail("list", err)
	}
	var out []models.Shipper
	c.commit(func() {
		c.items = uniqueByID(list, shipperKey, (*models.Shipper).Clone)
		out = cloneAll(c.items, (*models.Shipper).Clone)
	})
	return out, nil
}

func (c *Shippers) Get(ctx context.Context, id uint) (*models.Shipper, error) {
	c.begin()
	s, err := c.api.Get(ctx, id)
	if err != nil {
		return nil, c.fail("get", err)
	}
	c.commit(func() {
		if c.selected == nil || c.selected.ID != s.ID {
			c.lastLocation = nil
		}
		c.selected = s.Clone()
		if s.Location != nil {
			c.lastLocation = cloneLocation(s.Location)
		}
	})
	return s.Clone(), nil
}

// UpdateStatus replaces the shipper in both mirrors. Positions are kept when
// the server's answer carries none, as they travel on their own endpoint.
func (c *Shippers) UpdateStatus(ctx context.Context, id uint, status string) (*models.Shipper, error) {
	c.begin()
	s, complete, err := c.api.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, c.fail("update_status", err)
	}
	var out *models.Shipper
	c.commit(func() {
		c.each(id, func(dst *models.Shipper) {
			if !complete {
				dst.Status = s.Status
				return
			}
			next := s.Clone()
			if next.Location == nil {
				next.Location = dst.Location
			}
			*dst = *next
		})
		out = s.Clone()
		if held := c.findLocked(id); held != nil {
			out = held
		}
	})
	return out, nil
}

func (c *Shippers) UpdateLocation(ctx context.Context, id uint, loc models.Location) (*models.Location, error) {
	c.begin()
	got, err := c.api.UpdateLocation(ctx, id, loc)
	if err != nil {
		return nil, c.fail("update_location", err)
	}
	c.commit(func() { c.setLocationLocked(id, got) })
	return cloneLocation(got), nil
}

// FetchLocation reads the server's position for id and reconciles both
// mirrors with it. A nil result means the server knows no position.
func (c *Shippers) FetchLocation(ctx context.Context, id uint) (*models.Location, error) {
	c.begin()
	got, err := c.api.FetchLocation(ctx, id)
	if err != nil {
		return nil, c.fail("fetch_location", err)
	}
	c.commit(func() { c.setLocationLocked(id, got) })
	return cloneLocation(got), nil
}

// ApplyLocation records a pushed position without calling the server.
func (c *Shippers) ApplyLocation(id uint, loc models.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocationLocked(id, &loc)
}

// setLocationLocked updates both mirrors. The last location only follows the
// selected shipper.
func (c *Shippers) setLocationLocked(id uint, loc *models.Location) {
	c.each(id, func(dst *models.Shipper) { dst.Location = cloneLocation(loc) })
	if c.selected != nil && c.selected.ID == id {
		c.lastLocation = cloneLocation(loc)
	}
}

func (c *Shippers) ApplyLocal(s models.Shipper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.each(s.ID, func(dst *models.Shipper) { *dst = *s.Clone() })
}

// ClearSelected drops the selected shipper and its last known position.
func (c *Shippers) ClearSelected() {
	c.mu.Lock()
	c.selected = nil
	c.lastLocation = nil
	c.mu.Unlock()
}

func (c *Shippers) Shippers() []models.Shipper {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.items, (*models.Shipper).Clone)
}

func (c *Shippers) Selected() *models.Shipper {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected.Clone()
}

func (c *Shippers) LastLocation() *models.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneLocation(c.lastLocation)
}

func (c *Shippers) Find(id uint) *models.Shipper {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.findLocked(id)
}

func (c *Shippers) findLocked(id uint) *models.Shipper {
	if i := indexOf(c.items, id, shipperKey); i >= 0 {
		return c.items[i].Clone()
	}
	if c.selected != nil && c.selected.ID == id {
		return c.selected.Clone()
	}
	return nil
}

func (c *Shippers) each(id uint, fn func(*models.Shipper)) {
	if i := indexOf(c.items, id, shipperKey); i >= 0 {
		fn(&c.items[i])
	}
	if c.selected != nil && c.selected.ID == id {
		fn(c.selected)
	}
}
