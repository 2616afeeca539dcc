package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/pkg/apierr"
)

type ShipperClient struct {
	tr Doer
}

func NewShipperClient(tr Doer) *ShipperClient {
	return &ShipperClient{tr: tr}
}

func (c *ShipperClient) List(ctx context.Context) ([]models.Shipper, error) {
	raw, err := doRaw(ctx, c.tr, http.MethodGet, "/shipper", nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[models.Shipper]("shipper.list", raw, "shippers")
}

func (c *ShipperClient) Get(ctx context.Context, id uint) (*models.Shipper, error) {
	const op = "shipper.get"
	raw, err := doRaw(ctx, c.tr, http.MethodGet, fmt.Sprintf("/shipper/%d", id), nil)
	if err != nil {
		return nil, err
	}
	s, err := DecodeEntity[models.Shipper](op, raw, "shipper")
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, errNoEntity(op, "shipper")
	}
	return &s, nil
}

// UpdateStatus reports complete=false when the server only acknowledged
// the change; the returned shipper then carries just ID and Status.
func (c *ShipperClient) UpdateStatus(ctx context.Context, id uint, status string) (*models.Shipper, bool, error) {
	const op = "shipper.update_status"
	raw, err := doRaw(ctx, c.tr, http.MethodPut, fmt.Sprintf("/shipper/%d", id), map[string]string{"status": status})
	if err != nil {
		return nil, false, err
	}
	s, err := DecodeEntity[models.Shipper](op, raw, "shipper")
	if err != nil {
		return nil, false, err
	}
	if s.ID != 0 && s.Status != "" {
		return &s, true, nil
	}
	ack := &models.Shipper{ID: id, Status: s.Status}
	if ack.Status == "" {
		ack.Status = status
	}
	return ack, false, nil
}

func (c *ShipperClient) UpdateLocation(ctx context.Context, id uint, loc models.Location) (*models.Location, error) {
	raw, err := doRaw(ctx, c.tr, http.MethodPut, fmt.Sprintf("/shipper/%d/location", id), loc)
	if err != nil {
		return nil, err
	}
	got, err := DecodeLocation("shipper.update_location", raw)
	if err != nil {
		return nil, err
	}
	if got == nil {
		return nil, apierr.Decode("shipper.update_location", errNoLocation)
	}
	return got, nil
}

// FetchLocation returns nil without error when the server knows no position.
func (c *ShipperClient) FetchLocation(ctx context.Context, id uint) (*models.Location, error) {
	raw, err := doRaw(ctx, c.tr, http.MethodGet, fmt.Sprintf("/shipper/%d/location", id), nil)
	if err != nil {
		return nil, err
	}
	return DecodeLocation("shipper.fetch_location", raw)
}

// DecodeLocation accepts {latitude, longitude}, the same nested under
// "location", or a "location" WKT string such as "POINT(lon lat)".
func DecodeLocation(op string, raw json.RawMessage) (*models.Location, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, null) {
		return nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, apierr.Decode(op, err)
	}

	if nested, ok := obj["location"]; ok {
		nested = bytes.TrimSpace(nested)
		switch {
		case len(nested) == 0 || bytes.Equal(nested, null):
			return nil, nil
		case nested[0] == '"':
			var wkt string
			if err := json.Unmarshal(nested, &wkt); err != nil {
				return nil, apierr.Decode(op, err)
			}
			loc, err := parsePoint(wkt)
			if err != nil {
				return nil, apierr.Decode(op, err)
			}
			return loc, nil
		default:
			return DecodeLocation(op, nested)
		}
	}

	_, hasLat := obj["latitude"]
	_, hasLon := obj["longitude"]
	if !hasLat || !hasLon {
		return nil, apierr.Decode(op, errNoLocation)
	}
	var loc models.Location
	if err := json.Unmarshal(trimmed, &loc); err != nil {
		return nil, apierr.Decode(op, err)
	}
	return &loc, nil
}

func parsePoint(wkt string) (*models.Location, error) {
	s := strings.TrimSpace(wkt)
	if !strings.HasPrefix(strings.ToUpper(s), "POINT(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("not a WKT point: %q", wkt)
	}
	fields := strings.Fields(s[len("POINT(") : len(s)-1])
	if len(fields) != 2 {
		return nil, fmt.Errorf("not a WKT point: %q", wkt)
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}
	return &models.Location{Latitude: lat, Longitude: lon}, nil
}
