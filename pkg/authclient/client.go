package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/food_delivery/internal/clients"
	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/internal/transport"
	"github.com/Skotchmaster/food_delivery/pkg/apierr"
)

type Doer interface {
	Do(ctx context.Context, r transport.Request) error
}

type Client struct {
	tr Doer
}

func NewClient(tr Doer) *Client {
	return &Client{tr: tr}
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// tokenResponse accepts both spellings: login answers in camelCase and
// refresh-token in snake_case.
type tokenResponse struct {
	AccessToken       string `json:"access_token"`
	AccessTokenCamel  string `json:"accessToken"`
	RefreshToken      string `json:"refresh_token"`
	RefreshTokenCamel string `json:"refreshToken"`
}

func (t tokenResponse) pair() TokenPair {
	p := TokenPair{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	if p.AccessToken == "" {
		p.AccessToken = t.AccessTokenCamel
	}
	if p.RefreshToken == "" {
		p.RefreshToken = t.RefreshTokenCamel
	}
	return p
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	Role        string `json:"role"`
}

func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	const op = "auth.login"

	var resp tokenResponse
	err := c.tr.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"email": email, "password": password},
		Out:    &resp,
		Public: true,
	})
	if err != nil {
		return TokenPair{}, err
	}

	pair := resp.pair()
	if pair.AccessToken == "" {
		return TokenPair{}, apierr.Decode(op, errors.New("response carries no access token"))
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token. RefreshToken in
// the result is empty unless the server rotated it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	const op = "auth.refresh"

	var resp tokenResponse
	err := c.tr.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh-token",
		Body:   map[string]string{"refresh_token": refreshToken},
		Out:    &resp,
		Public: true,
	})
	if err != nil {
		return TokenPair{}, err
	}

	pair := resp.pair()
	if pair.AccessToken == "" {
		return TokenPair{}, apierr.Decode(op, errors.New("response carries no access token"))
	}
	return pair, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.tr.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/auth/logout",
		Public: true,
	})
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	const op = "auth.register"

	var raw json.RawMessage
	err := c.tr.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   req,
		Out:    &raw,
		Public: true,
	})
	if err != nil {
		return nil, err
	}

	user, err := clients.DecodeEntity[models.User](op, raw, "user")
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser loads a user record. A non-empty bearer is used instead of the
// session token, which lets login look the user up before installing it.
func (c *Client) CurrentUser(ctx context.Context, id uint, bearer string) (*models.User, error) {
	op := "auth.current_user"

	var raw json.RawMessage
	err := c.tr.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/user/%d", id),
		Out:    &raw,
		Bearer: bearer,
	})
	if err != nil {
		return nil, err
	}

	user, err := clients.DecodeEntity[models.User](op, raw, "user")
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, apierr.Decode(op, errors.New("response carries no user"))
	}
	return &user, nil
}

func (c *Client) ResetPassword(ctx context.Context, oldPassword, newPassword string) error {
	return c.tr.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/auth/reset-password",
		Body:   map[string]string{"old_pass": oldPassword, "new_pass": newPassword},
	})
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.tr.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/auth/forgot-password",
		Body:   map[string]string{"email": email},
		Public: true,
	})
}

func (c *Client) ResetForgotPassword(ctx context.Context, resetToken, newPassword string) error {
	return c.tr.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/auth/reset-forgot-password",
		Body:   map[string]string{"reset_token": resetToken, "new_password": newPassword},
		Public: true,
	})
}
