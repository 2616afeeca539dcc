package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Skotchmaster/food_delivery/internal/clients"
	"github.com/Skotchmaster/food_delivery/internal/models"
)

var ErrSearchDisabled = errors.New("restaurant search is not configured")

type RestaurantAPI interface {
	List(ctx context.Context) ([]models.Restaurant, error)
	Get(ctx context.Context, id uint) (*models.Restaurant, error)
	Create(ctx context.Context, in clients.RestaurantInput) (*models.Restaurant, error)
	Update(ctx context.Context, id uint, in clients.RestaurantInput) (*models.Restaurant, error)
	Menu(ctx context.Context, restaurantID uint) ([]models.MenuItem, error)
	MenuItem(ctx context.Context, restaurantID, itemID uint) (*models.MenuItem, error)
	CreateMenuItem(ctx context.Context, restaurantID uint, in clients.MenuItemInput) (*models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, restaurantID, itemID uint, in clients.MenuItemInput) (*models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, restaurantID, itemID uint) error
}

type RestaurantSearcher interface {
	SearchRestaurants(ctx context.Context, query string, page, size int) (int64, []models.Restaurant, error)
}

type Restaurants struct {
	state
	api      RestaurantAPI
	searcher RestaurantSearcher

	items    []models.Restaurant
	selected *models.Restaurant
}

// NewRestaurants builds the cache. searcher may be nil, in which case Search
// returns ErrSearchDisabled.
func NewRestaurants(api RestaurantAPI, searcher RestaurantSearcher, log *slog.Logger) *Restaurants {
	c := &Restaurants{api: api, searcher: searcher}
	c.init(log, "restaurant")
	return c
}

func restaurantKey(r *models.Restaurant) uint { return r.ID }

func menuItemKey(m *models.MenuItem) uint { return m.ID }

func cloneMenuItem(m *models.MenuItem) *models.MenuItem {
	c := *m
	return &c
}

func (c *Restaurants) List(ctx context.Context) ([]models.Restaurant, error) {
	c.begin()
	list, err := c.api.List(ctx)
	if err != nil {
		return nil, c.fail("list", err)
	}
	var out []models.Restaurant
	c.commit(func() {
		c.items = uniqueByID(list, restaurantKey, (*models.Restaurant).Clone)
		out = cloneAll(c.items, (*models.Restaurant).Clone)
	})
	return out, nil
}

// Search replaces the collection mirror with one page of search hits.
func (c *Restaurants) Search(ctx context.Context, query string, page, size int) (int64, []models.Restaurant, error) {
	c.begin()
	if c.searcher == nil {
		return 0, nil, c.fail("search", ErrSearchDisabled)
	}
	total, list, err := c.searcher.SearchRestaurants(ctx, query, page, size)
	if err != nil {
		return 0, nil, c.fail("search", err)
	}
	var out []models.Restaurant
	c.commit(func() {
		c.items = uniqueByID(list, restaurantKey, (*models.Restaurant).Clone)
		out = cloneAll(c.items, (*models.Restaurant).Clone)
	})
	return total, out, nil
}

// Get makes the fetched restaurant the selected one.
func (c *Restaurants) Get(ctx context.Context, id uint) (*models.Restaurant, error) {
	c.begin()
	r, err := c.api.Get(ctx, id)
	if err != nil {
		return nil, c.fail("get", err)
	}
	c.commit(func() {
		c.selected = r.Clone()
	})
	return r.Clone(), nil
}

func (c *Restaurants) Create(ctx context.Context, in clients.RestaurantInput) (*models.Restaurant, error) {
	c.begin()
	r, err := c.api.Create(ctx, in)
	if err != nil {
		return nil, c.fail("create", err)
	}
	c.commit(func() {
		if i := indexOf(c.items, r.ID, restaurantKey); i >= 0 {
			c.items[i] = *r.Clone()
			return
		}
		c.items = append(c.items, *r.Clone())
	})
	return r.Clone(), nil
}

// Update replaces the restaurant in both mirrors. When the server answers
// without a menu, each mirror keeps the menu it already had.
func (c *Restaurants) Update(ctx context.Context, id uint, in clients.RestaurantInput) (*models.Restaurant, error) {
	c.begin()
	r, err := c.api.Update(ctx, id, in)
	if err != nil {
		return nil, c.fail("update", err)
	}
	c.commit(func() {
		c.each(r.ID, func(dst *models.Restaurant) {
			next := r.Clone()
			if next.MenuItems == nil {
				next.MenuItems = dst.MenuItems
			}
			*dst = *next
		})
	})
	return r.Clone(), nil
}

// Menu replaces the menu of the restaurant in both mirrors.
func (c *Restaurants) Menu(ctx context.Context, restaurantID uint) ([]models.MenuItem, error) {
	c.begin()
	menu, err := c.api.Menu(ctx, restaurantID)
	if err != nil {
		return nil, c.fail("menu", err)
	}
	c.commit(func() {
		c.each(restaurantID, func(dst *models.Restaurant) {
			dst.MenuItems = uniqueByID(menu, menuItemKey, cloneMenuItem)
		})
	})
	return cloneAll(menu, cloneMenuItem), nil
}

func (c *Restaurants) MenuItem(ctx context.Context, restaurantID, itemID uint) (*models.MenuItem, error) {
	c.begin()
	item, err := c.api.MenuItem(ctx, restaurantID, itemID)
	if err != nil {
		return nil, c.fail("menu_item", err)
	}
	c.commit(func() {
		c.each(restaurantID, func(dst *models.Restaurant) {
			if i := indexOf(dst.MenuItems, item.ID, menuItemKey); i >= 0 {
				dst.MenuItems[i] = *item
			}
		})
	})
	return cloneMenuItem(item), nil
}

// CreateMenuItem appends the server's item to the restaurant's menu in both
// mirrors.
func (c *Restaurants) CreateMenuItem(ctx context.Context, restaurantID uint, in clients.MenuItemInput) (*models.MenuItem, error) {
	c.begin()
	item, err := c.api.CreateMenuItem(ctx, restaurantID, in)
	if err != nil {
		return nil, c.fail("create_menu_item", err)
	}
	c.commit(func() {
		c.each(restaurantID, func(dst *models.Restaurant) {
			if i := indexOf(dst.MenuItems, item.ID, menuItemKey); i >= 0 {
				dst.MenuItems[i] = *item
				return
			}
			dst.MenuItems = append(dst.MenuItems, *item)
		})
	})
	return cloneMenuItem(item), nil
}

func (c *Restaurants) UpdateMenuItem(ctx context.Context, restaurantID, itemID uint, in clients.MenuItemInput) (*models.MenuItem, error) {
	c.begin()
	item, err := c.api.UpdateMenuItem(ctx, restaurantID, itemID, in)
	if err != nil {
		return nil, c.fail("update_menu_item", err)
	}
	c.commit(func() {
		c.each(restaurantID, func(dst *models.Restaurant) {
			if i := indexOf(dst.MenuItems, itemID, menuItemKey); i >= 0 {
				dst.MenuItems[i] = *item
			}
		})
	})
	return cloneMenuItem(item), nil
}

func (c *Restaurants) DeleteMenuItem(ctx context.Context, restaurantID, itemID uint) error {
	c.begin()
	if err := c.api.DeleteMenuItem(ctx, restaurantID, itemID); err != nil {
		return c.fail("delete_menu_item", err)
	}
	c.commit(func() {
		c.each(restaurantID, func(dst *models.Restaurant) {
			if i := indexOf(dst.MenuItems, itemID, menuItemKey); i >= 0 {
				dst.MenuItems = append(dst.MenuItems[:i:i], dst.MenuItems[i+1:]...)
			}
		})
	})
	return nil
}

// ApplyLocal writes r into every mirror that holds its id without calling
// the server. The next read discards it.
func (c *Restaurants) ApplyLocal(r models.Restaurant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.each(r.ID, func(dst *models.Restaurant) { *dst = *r.Clone() })
}

func (c *Restaurants) ClearSelected() {
	c.mu.Lock()
	c.selected = nil
	c.mu.Unlock()
}

func (c *Restaurants) Restaurants() []models.Restaurant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.items, (*models.Restaurant).Clone)
}

func (c *Restaurants) Selected() *models.Restaurant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected.Clone()
}

func (c *Restaurants) Find(id uint) *models.Restaurant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.items, id, restaurantKey); i >= 0 {
		return c.items[i].Clone()
	}
	return nil
}

// each calls fn on the collection copy and the selected copy of id.
// Callers hold the write lock.
func (c *Restaurants) each(id uint, fn func(*models.Restaurant)) {
	if i := indexOf(c.items, id, restaurantKey); i >= 0 {
		fn(&c.items[i])
	}
	if c.selected != nil && c.selected.ID == id {
		fn(c.selected)
	}
}
