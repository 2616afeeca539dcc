package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/pkg/apierr"
)

type fakeOrderAPI struct {
	mu     sync.Mutex
	orders []models.Order
	err    error
	// ackOnly makes UpdateStatus answer with a bare acknowledgement
	ackOnly bool
}

func newFakeOrderAPI() *fakeOrderAPI {
	sid := uint(9)
	return &fakeOrderAPI{orders: []models.Order{
		{ID: 1, CustomerID: 7, RestaurantID: 5, Status: models.OrderDelivered, TotalPrice: decimal.NewFromInt(10)},
		{ID: 2, CustomerID: 7, RestaurantID: 5, ShipperID: &sid, Status: models.OrderPreparing, TotalPrice: decimal.NewFromInt(12)},
		{ID: 3, CustomerID: 8, RestaurantID: 1, Status: models.OrderCreated},
	}}
}

func (f *fakeOrderAPI) filter(keep func(*models.Order) bool) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Order
	for i := range f.orders {
		if keep(&f.orders[i]) {
			out = append(out, *f.orders[i].Clone())
		}
	}
	return out, nil
}

func (f *fakeOrderAPI) ListByCustomer(_ context.Context, id uint) ([]models.Order, error) {
	return f.filter(func(o *models.Order) bool { return o.CustomerID == id })
}

func (f *fakeOrderAPI) ListByRestaurant(_ context.Context, id uint) ([]models.Order, error) {
	return f.filter(func(o *models.Order) bool { return o.RestaurantID == id })
}

func (f *fakeOrderAPI) ListByShipper(_ context.Context, id uint) ([]models.Order, error) {
	return f.filter(func(o *models.Order) bool { return o.ShipperID != nil && *o.ShipperID == id })
}

func (f *fakeOrderAPI) Get(_ context.Context, id uint) (*models.Order, error) {
	list, err := f.filter(func(o *models.Order) bool { return o.ID == id })
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errNotFound
	}
	return &list[0], nil
}

func (f *fakeOrderAPI) Create(_ context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	o := models.Order{ID: uint(len(f.orders) + 1), CustomerID: req.CustomerID, RestaurantID: req.RestaurantID, Status: models.OrderCreated}
	f.orders = append(f.orders, o)
	return o.Clone(), nil
}

func (f *fakeOrderAPI) UpdateStatus(_ context.Context, id uint, status string) (*models.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = status
			if f.ackOnly {
				return &models.Order{ID: id, Status: status}, false, nil
			}
			return f.orders[i].Clone(), true, nil
		}
	}
	return nil, false, errNotFound
}

func TestOrders_ListsReplaceCollection(t *testing.T) {
	t.Parallel()
	c := NewOrders(newFakeOrderAPI(), nil)
	ctx := context.Background()

	list, err := c.ListByCustomer(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = c.ListByShipper(ctx, 9)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint(2), list[0].ID)
	assert.Len(t, c.Orders(), 1)

	_, err = c.ListByRestaurant(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(3), c.Orders()[0].ID)
}

func TestOrders_CreatePrependsAndBecomesCurrent(t *testing.T) {
	t.Parallel()
	c := NewOrders(newFakeOrderAPI(), nil)
	ctx := context.Background()

	_, err := c.ListByCustomer(ctx, 7)
	require.NoError(t, err)

	o, err := c.Create(ctx, models.CreateOrderRequest{CustomerID: 7, RestaurantID: 5})
	require.NoError(t, err)

	list := c.Orders()
	require.Len(t, list, 3)
	assert.Equal(t, o.ID, list[0].ID)
	assert.Equal(t, o, c.Current())
}

func TestOrders_GetRefreshesCollectionCopy(t *testing.T) {
	t.Parallel()
	api := newFakeOrderAPI()
	c := NewOrders(api, nil)
	ctx := context.Background()

	_, err := c.ListByCustomer(ctx, 7)
	require.NoError(t, err)

	api.mu.Lock()
	api.orders[1].Status = models.OrderOutForDelivery
	api.mu.Unlock()

	got, err := c.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.OrderOutForDelivery, got.Status)
	assert.Equal(t, got, c.Current())
	assert.Equal(t, got, c.Find(2))
}

func TestOrders_UpdateStatusBothMirrors(t *testing.T) {
	t.Parallel()
	for _, ackOnly := range []bool{false, true} {
		api := newFakeOrderAPI()
		api.ackOnly = ackOnly
		c := NewOrders(api, nil)
		ctx := context.Background()

		_, err := c.ListByCustomer(ctx, 7)
		require.NoError(t, err)
		_, err = c.Get(ctx, 2)
		require.NoError(t, err)

		got, err := c.UpdateStatus(ctx, 2, models.OrderOutForDelivery)
		require.NoError(t, err)
		assert.Equal(t, models.OrderOutForDelivery, got.Status, "ackOnly=%v", ackOnly)
		// an acknowledgement keeps the mirrored fields
		assert.Equal(t, uint(7), got.CustomerID, "ackOnly=%v", ackOnly)
		assert.True(t, got.TotalPrice.Equal(decimal.NewFromInt(12)), "ackOnly=%v", ackOnly)

		assert.Equal(t, c.Find(2), c.Current(), "ackOnly=%v", ackOnly)
		assert.Equal(t, models.OrderOutForDelivery, c.Current().Status, "ackOnly=%v", ackOnly)
		require.NotNil(t, c.Current().ShipperID)
		assert.Equal(t, uint(9), *c.Current().ShipperID)
	}
}

func TestOrders_CancelAndByStatus(t *testing.T) {
	t.Parallel()
	c := NewOrders(newFakeOrderAPI(), nil)
	ctx := context.Background()

	_, err := c.ListByCustomer(ctx, 7)
	require.NoError(t, err)

	_, err = c.Cancel(ctx, 2)
	require.NoError(t, err)

	cancelled := c.ByStatus(models.OrderCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, uint(2), cancelled[0].ID)
	assert.Len(t, c.ByStatus(models.OrderDelivered), 1)
	assert.Empty(t, c.ByStatus(models.OrderAccepted))
}

func TestOrders_StatusStoredVerbatim(t *testing.T) {
	t.Parallel()
	c := NewOrders(newFakeOrderAPI(), nil)
	ctx := context.Background()

	_, err := c.ListByCustomer(ctx, 7)
	require.NoError(t, err)

	_, err = c.UpdateStatus(ctx, 1, "Refunded_Partially")
	require.NoError(t, err)
	assert.Equal(t, "Refunded_Partially", c.Find(1).Status)
}

func TestOrders_FailureLeavesMirrors(t *testing.T) {
	t.Parallel()
	api := newFakeOrderAPI()
	c := NewOrders(api, nil)
	ctx := context.Background()

	_, err := c.ListByCustomer(ctx, 7)
	require.NoError(t, err)
	_, err = c.Get(ctx, 1)
	require.NoError(t, err)
	before, cur := c.Orders(), c.Current()

	_, err = c.UpdateStatus(ctx, 99, models.OrderAccepted)
	assert.ErrorIs(t, err, apierr.ErrNotFound)

	api.err = &apierr.StatusError{Op: "test", Status: 503, Kind: apierr.ErrTransient}
	_, err = c.Cancel(ctx, 1)
	assert.ErrorIs(t, err, apierr.ErrTransient)
	_, err = c.ListByCustomer(ctx, 7)
	assert.ErrorIs(t, err, apierr.ErrTransient)

	assert.Equal(t, before, c.Orders())
	assert.Equal(t, cur, c.Current())
	assert.ErrorIs(t, c.LastError(), apierr.ErrTransient)
	assert.False(t, c.Loading())
}

func TestOrders_Clear(t *testing.T) {
	t.Parallel()
	c := NewOrders(newFakeOrderAPI(), nil)
	ctx := context.Background()

	_, err := c.ListByCustomer(ctx, 7)
	require.NoError(t, err)
	_, err = c.Get(ctx, 1)
	require.NoError(t, err)

	c.ClearCurrent()
	assert.Nil(t, c.Current())
	assert.Len(t, c.Orders(), 2)

	c.ApplyLocal(models.Order{ID: 1, Status: "local"})
	assert.Equal(t, "local", c.Find(1).Status)

	c.Clear()
	assert.Empty(t, c.Orders())
	assert.Nil(t, c.Find(1))
}
