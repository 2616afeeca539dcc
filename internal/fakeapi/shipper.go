package fakeapi

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_delivery/internal/locationfeed"
	"github.com/Skotchmaster/food_delivery/internal/models"
)

// LocationPublisher receives every accepted position update.
type LocationPublisher interface {
	Publish(ctx context.Context, u locationfeed.Update) error
}

var shipperStatuses = []string{models.ShipperAvailable, models.ShipperBusy, models.ShipperOffline}

func (s *Server) shipperViewLocked(sh *models.Shipper) models.Shipper {
	out := *sh.Clone()
	if loc, ok := s.locations[sh.ID]; ok {
		out.Location = &loc
	}
	return out
}

func (s *Server) GetShipper(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid shipper id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shippers[id]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "shipper not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"shipper": s.shipperViewLocked(sh)})
}

func (s *Server) UpdateShipperStatus(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid shipper id")
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil || !slices.Contains(shipperStatuses, req.Status) {
		return errorJSON(c, http.StatusBadRequest, "status must be one of available, busy, offline")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shippers[id]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "shipper not found")
	}
	sh.Status = req.Status
	return c.JSON(http.StatusOK, echo.Map{"shipper": s.shipperViewLocked(sh)})
}

func (s *Server) ListShippers(c echo.Context) error {
	s.mu.Lock()
	out := make([]models.Shipper, 0, len(s.shippers))
	for _, sh := range s.shippers {
		out = append(out, s.shipperViewLocked(sh))
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b models.Shipper) int { return cmp.Compare(a.ID, b.ID) })
	return c.JSON(http.StatusOK, echo.Map{"shippers": out})
}

// UpdateShipperLocation stores the position and forwards it to the
// publisher. A publish failure is logged and does not fail the request.
func (s *Server) UpdateShipperLocation(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid shipper id")
	}
	var req struct {
		Longitude *float64 `json:"longitude"`
		Latitude  *float64 `json:"latitude"`
	}
	if err := c.Bind(&req); err != nil || req.Longitude == nil || req.Latitude == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "longitude and latitude are required"})
	}
	u := locationfeed.Update{ShipperID: id, Latitude: *req.Latitude, Longitude: *req.Longitude}

	s.mu.Lock()
	_, ok = s.shippers[id]
	if ok {
		s.locations[id] = u.Location()
	}
	s.mu.Unlock()
	if !ok {
		return errorJSON(c, http.StatusNotFound, "shipper not found")
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(c.Request().Context(), u); err != nil {
			s.log.Error("location_publish_failed", "shipper_id", id, "error", err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"shipperID": id,
		"longitude": u.Longitude,
		"latitude":  u.Latitude,
	})
}

// GetShipperLocation answers with a WKT point, or a null location when the
// shipper never reported one.
func (s *Server) GetShipperLocation(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid shipper id")
	}

	s.mu.Lock()
	_, known := s.shippers[id]
	loc, ok := s.locations[id]
	s.mu.Unlock()
	if !known {
		return errorJSON(c, http.StatusNotFound, "shipper not found")
	}

	var point any
	if ok {
		point = fmt.Sprintf("POINT(%g %g)", loc.Longitude, loc.Latitude)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"shipper":  id,
		"location": point,
	})
}
