package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Skotchmaster/food_delivery/internal/transport"
	"github.com/Skotchmaster/food_delivery/pkg/apierr"
)

type Doer interface {
	Do(ctx context.Context, r transport.Request) error
}

func doRaw(ctx context.Context, tr Doer, method, path string, body any) (json.RawMessage, error) {
	var raw json.RawMessage
	err := tr.Do(ctx, transport.Request{Method: method, Path: path, Body: body, Out: &raw})
	return raw, err
}

func errNoEntity(op, what string) error {
	return apierr.Decode(op, fmt.Errorf("response carries no %s", what))
}

var errNoLocation = errors.New("response carries no coordinates")
