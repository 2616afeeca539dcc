package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/food_delivery/internal/models"
)

type RestaurantInput struct {
	ManagerID   uint   `json:"manager_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Status      string `json:"status"`
}

type MenuItemInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Available   bool            `json:"available"`
}

type RestaurantClient struct {
	tr Doer
}

func NewRestaurantClient(tr Doer) *RestaurantClient {
	return &RestaurantClient{tr: tr}
}

func (c *RestaurantClient) List(ctx context.Context) ([]models.Restaurant, error) {
	raw, err := doRaw(ctx, c.tr, http.MethodGet, "/restaurant", nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[models.Restaurant]("restaurant.list", raw, "restaurants")
}

func (c *RestaurantClient) Get(ctx context.Context, id uint) (*models.Restaurant, error) {
	const op = "restaurant.get"
	raw, err := doRaw(ctx, c.tr, http.MethodGet, fmt.Sprintf("/restaurant/%d", id), nil)
	if err != nil {
		return nil, err
	}
	r, err := DecodeEntity[models.Restaurant](op, raw, "restaurant")
	if err != nil {
		return nil, err
	}
	if r.ID == 0 {
		return nil, errNoEntity(op, "restaurant")
	}
	return &r, nil
}

func (c *RestaurantClient) Create(ctx context.Context, in RestaurantInput) (*models.Restaurant, error) {
	const op = "restaurant.create"
	raw, err := doRaw(ctx, c.tr, http.MethodPost, "/restaurant", in)
	if err != nil {
		return nil, err
	}
	r, err := DecodeEntity[models.Restaurant](op, raw, "restaurant")
	if err != nil {
		return nil, err
	}
	if r.ID == 0 {
		return nil, errNoEntity(op, "restaurant")
	}
	return &r, nil
}

// Update returns the stored restaurant. MenuItems is nil when the server
// answered without a menu.
func (c *RestaurantClient) Update(ctx context.Context, id uint, in RestaurantInput) (*models.Restaurant, error) {
	const op = "restaurant.update"
	raw, err := doRaw(ctx, c.tr, http.MethodPut, fmt.Sprintf("/restaurant/%d", id), in)
	if err != nil {
		return nil, err
	}
	r, err := DecodeEntity[models.Restaurant](op, raw, "restaurant")
	if err != nil {
		return nil, err
	}
	if r.ID == 0 {
		return nil, errNoEntity(op, "restaurant")
	}
	return &r, nil
}

func (c *RestaurantClient) Menu(ctx context.Context, restaurantID uint) ([]models.MenuItem, error) {
	raw, err := doRaw(ctx, c.tr, http.MethodGet, fmt.Sprintf("/restaurant/%d/menu", restaurantID), nil)
	if err != nil {
		return nil, err
	}
	items, err := DecodeList[models.MenuItem]("restaurant.menu", raw, "menu_items", "menu")
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].RestaurantID == 0 {
			items[i].RestaurantID = restaurantID
		}
	}
	return items, nil
}

func (c *RestaurantClient) MenuItem(ctx context.Context, restaurantID, itemID uint) (*models.MenuItem, error) {
	const op = "restaurant.menu_item"
	raw, err := doRaw(ctx, c.tr, http.MethodGet, fmt.Sprintf("/restaurant/%d/menu/%d", restaurantID, itemID), nil)
	if err != nil {
		return nil, err
	}
	return menuItemFrom(op, raw, restaurantID, 0)
}

func (c *RestaurantClient) CreateMenuItem(ctx context.Context, restaurantID uint, in MenuItemInput) (*models.MenuItem, error) {
	const op = "restaurant.create_menu_item"
	raw, err := doRaw(ctx, c.tr, http.MethodPost, fmt.Sprintf("/restaurant/%d/menu", restaurantID), in)
	if err != nil {
		return nil, err
	}
	return menuItemFrom(op, raw, restaurantID, 0)
}

func (c *RestaurantClient) UpdateMenuItem(ctx context.Context, restaurantID, itemID uint, in MenuItemInput) (*models.MenuItem, error) {
	const op = "restaurant.update_menu_item"
	raw, err := doRaw(ctx, c.tr, http.MethodPut, fmt.Sprintf("/restaurant/%d/menu/%d", restaurantID, itemID), in)
	if err != nil {
		return nil, err
	}
	return menuItemFrom(op, raw, restaurantID, itemID)
}

func (c *RestaurantClient) DeleteMenuItem(ctx context.Context, restaurantID, itemID uint) error {
	_, err := doRaw(ctx, c.tr, http.MethodDelete, fmt.Sprintf("/restaurant/%d/menu/%d", restaurantID, itemID), nil)
	return err
}

// menuItemFrom decodes a menu item and fills the ids the server may leave
// out. knownID is the item id from the request path, or 0 for creates.
func menuItemFrom(op string, raw []byte, restaurantID, knownID uint) (*models.MenuItem, error) {
	item, err := DecodeEntity[models.MenuItem](op, raw, "menu_item", "item")
	if err != nil {
		return nil, err
	}
	if item.ID == 0 && knownID != 0 && item.Name != "" {
		item.ID = knownID
	}
	if item.ID == 0 {
		return nil, errNoEntity(op, "menu item")
	}
	if item.RestaurantID == 0 {
		item.RestaurantID = restaurantID
	}
	return &item, nil
}
