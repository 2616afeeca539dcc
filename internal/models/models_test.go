package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuItem_PriceIsJSONNumber(t *testing.T) {
	t.Parallel()

	item := MenuItem{ID: 1, Name: "pho", Price: decimal.RequireFromString("12.50")}
	b, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"price":12.5`)

	var back MenuItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"price":0.1}`), &back))
	assert.True(t, back.Price.Equal(decimal.RequireFromString("0.1")))
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()

	r := &Restaurant{ID: 1, MenuItems: []MenuItem{{ID: 1, Name: "a"}}}
	rc := r.Clone()
	rc.MenuItems[0].Name = "b"
	assert.Equal(t, "a", r.MenuItems[0].Name)

	sid := uint(3)
	o := &Order{ID: 1, ShipperID: &sid, OrderItems: []OrderItem{{ID: 1, Quantity: 2}}}
	oc := o.Clone()
	*oc.ShipperID = 4
	oc.OrderItems[0].Quantity = 9
	assert.Equal(t, uint(3), *o.ShipperID)
	assert.Equal(t, 2, o.OrderItems[0].Quantity)

	s := &Shipper{ID: 1, Location: &Location{Latitude: 1}}
	sc := s.Clone()
	sc.Location.Latitude = 2
	assert.Equal(t, float64(1), s.Location.Latitude)

	var nilUser *User
	assert.Nil(t, nilUser.Clone())
}
