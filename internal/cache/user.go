package cache

import (
	"context"
	"log/slog"

	"github.com/Skotchmaster/food_delivery/internal/clients"
	"github.com/Skotchmaster/food_delivery/internal/models"
)

type UserAPI interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id uint) (*models.User, error)
	Update(ctx context.Context, id uint, in clients.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id uint) error
	Location(ctx context.Context, id uint) (*models.UserLocation, error)
}

type Users struct {
	state
	api UserAPI

	items   []models.User
	current *models.User
}

func NewUsers(api UserAPI, log *slog.Logger) *Users {
	c := &Users{api: api}
	c.init(log, "user")
	return c
}

func userKey(u *models.User) uint { return u.ID }

func (c *Users) List(ctx context.Context) ([]models.User, error) {
	c.begin()
	list, err := c.api.List(ctx)
	if err != nil {
		return nil, c.fail("list", err)
	}
	var out []models.User
	c.commit(func() {
		c.items = uniqueByID(list, userKey, (*models.User).Clone)
		out = cloneAll(c.items, (*models.User).Clone)
	})
	return out, nil
}

func (c *Users) Get(ctx context.Context, id uint) (*models.User, error) {
	c.begin()
	u, err := c.api.Get(ctx, id)
	if err != nil {
		return nil, c.fail("get", err)
	}
	c.commit(func() {
		c.current = u.Clone()
	})
	return u.Clone(), nil
}

func (c *Users) Update(ctx context.Context, id uint, in clients.UserUpdate) (*models.User, error) {
	c.begin()
	u, err := c.api.Update(ctx, id, in)
	if err != nil {
		return nil, c.fail("update", err)
	}
	c.commit(func() {
		c.each(id, func(dst *models.User) { *dst = *u.Clone() })
	})
	return u.Clone(), nil
}

func (c *Users) Delete(ctx context.Context, id uint) error {
	c.begin()
	if err := c.api.Delete(ctx, id); err != nil {
		return c.fail("delete", err)
	}
	c.commit(func() {
		if i := indexOf(c.items, id, userKey); i >= 0 {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
		}
		if c.current != nil && c.current.ID == id {
			c.current = nil
		}
	})
	return nil
}

// FetchLocation returns the user's delivery address. Nothing is mirrored.
func (c *Users) FetchLocation(ctx context.Context, id uint) (*models.UserLocation, error) {
	c.begin()
	loc, err := c.api.Location(ctx, id)
	if err != nil {
		return nil, c.fail("fetch_location", err)
	}
	c.commit(func() {})
	return loc, nil
}

func (c *Users) SetCurrent(u *models.User) {
	c.mu.Lock()
	c.current = u.Clone()
	c.mu.Unlock()
}

func (c *Users) ClearCurrent() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

func (c *Users) ApplyLocal(u models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.each(u.ID, func(dst *models.User) { *dst = *u.Clone() })
}

func (c *Users) Users() []models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.items, (*models.User).Clone)
}

func (c *Users) Current() *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Clone()
}

func (c *Users) Find(id uint) *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.items, id, userKey); i >= 0 {
		return c.items[i].Clone()
	}
	return nil
}

func (c *Users) each(id uint, fn func(*models.User)) {
	if i := indexOf(c.items, id, userKey); i >= 0 {
		fn(&c.items[i])
	}
	if c.current != nil && c.current.ID == id {
		fn(c.current)
	}
}
