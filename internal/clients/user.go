package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/food_delivery/internal/models"
)

// UserUpdate fields left empty are kept by the server.
type UserUpdate struct {
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
}

type UserClient struct {
	tr Doer
}

func NewUserClient(tr Doer) *UserClient {
	return &UserClient{tr: tr}
}

func (c *UserClient) List(ctx context.Context) ([]models.User, error) {
	raw, err := doRaw(ctx, c.tr, http.MethodGet, "/user", nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[models.User]("user.list", raw, "users")
}

func (c *UserClient) Get(ctx context.Context, id uint) (*models.User, error) {
	const op = "user.get"
	raw, err := doRaw(ctx, c.tr, http.MethodGet, fmt.Sprintf("/user/%d", id), nil)
	if err != nil {
		return nil, err
	}
	u, err := DecodeEntity[models.User](op, raw, "user")
	if err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, errNoEntity(op, "user")
	}
	return &u, nil
}

func (c *UserClient) Update(ctx context.Context, id uint, in UserUpdate) (*models.User, error) {
	const op = "user.update"
	raw, err := doRaw(ctx, c.tr, http.MethodPut, fmt.Sprintf("/user/%d", id), in)
	if err != nil {
		return nil, err
	}
	u, err := DecodeEntity[models.User](op, raw, "user")
	if err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, errNoEntity(op, "user")
	}
	return &u, nil
}

func (c *UserClient) Delete(ctx context.Context, id uint) error {
	_, err := doRaw(ctx, c.tr, http.MethodDelete, fmt.Sprintf("/user/%d", id), nil)
	return err
}

func (c *UserClient) Location(ctx context.Context, id uint) (*models.UserLocation, error) {
	const op = "user.location"
	raw, err := doRaw(ctx, c.tr, http.MethodGet, fmt.Sprintf("/user/%d/get-location", id), nil)
	if err != nil {
		return nil, err
	}
	loc, err := DecodeEntity[models.UserLocation](op, raw, "location")
	if err != nil {
		return nil, err
	}
	if loc.ID == 0 {
		loc.ID = id
	}
	return &loc, nil
}
