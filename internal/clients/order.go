package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/food_delivery/internal/models"
)

type OrderClient struct {
	tr Doer
}

func NewOrderClient(tr Doer) *OrderClient {
	return &OrderClient{tr: tr}
}

func (c *OrderClient) Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	const op = "order.create"
	raw, err := doRaw(ctx, c.tr, http.MethodPost, "/order", req)
	if err != nil {
		return nil, err
	}
	o, err := DecodeEntity[models.Order](op, raw, "order")
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, errNoEntity(op, "order")
	}
	return &o, nil
}

func (c *OrderClient) Get(ctx context.Context, id uint) (*models.Order, error) {
	const op = "order.get"
	raw, err := doRaw(ctx, c.tr, http.MethodGet, fmt.Sprintf("/order/%d", id), nil)
	if err != nil {
		return nil, err
	}
	o, err := DecodeEntity[models.Order](op, raw, "order")
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, errNoEntity(op, "order")
	}
	return &o, nil
}

// UpdateStatus reports complete=false when the server only acknowledged
// the change; the returned order then carries just ID and Status.
func (c *OrderClient) UpdateStatus(ctx context.Context, id uint, status string) (o *models.Order, complete bool, err error) {
	const op = "order.update_status"
	raw, err := doRaw(ctx, c.tr, http.MethodPost, fmt.Sprintf("/order/%d", id), map[string]any{
		"order_id": id,
		"status":   status,
	})
	if err != nil {
		return nil, false, err
	}
	got, err := DecodeEntity[models.Order](op, raw, "order")
	if err != nil {
		return nil, false, err
	}
	if got.ID != 0 && got.Status != "" && got.RestaurantID != 0 {
		return &got, true, nil
	}
	ack := &models.Order{ID: id, Status: got.Status}
	if ack.Status == "" {
		ack.Status = status
	}
	return ack, false, nil
}

func (c *OrderClient) ListByCustomer(ctx context.Context, customerID uint) ([]models.Order, error) {
	return c.list(ctx, "order.list_by_customer", fmt.Sprintf("/order/customer/%d", customerID))
}

func (c *OrderClient) ListByRestaurant(ctx context.Context, restaurantID uint) ([]models.Order, error) {
	return c.list(ctx, "order.list_by_restaurant", fmt.Sprintf("/order/restaurant/%d", restaurantID))
}

func (c *OrderClient) ListByShipper(ctx context.Context, shipperID uint) ([]models.Order, error) {
	return c.list(ctx, "order.list_by_shipper", fmt.Sprintf("/order/shipper/%d", shipperID))
}

func (c *OrderClient) list(ctx context.Context, op, path string) ([]models.Order, error) {
	raw, err := doRaw(ctx, c.tr, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[models.Order](op, raw, "orders")
}
