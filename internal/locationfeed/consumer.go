// Package locationfeed carries shipper positions over Kafka. The consumer
// applies every pushed position to the shipper cache; the publisher is used
// by the development backend to emit them.
package locationfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/pkg/config"
	"github.com/Skotchmaster/food_delivery/pkg/logging"
)

var ErrBadUpdate = errors.New("bad location update")

type Update struct {
	ShipperID uint    `json:"shipper_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (u Update) Location() models.Location {
	return models.Location{Latitude: u.Latitude, Longitude: u.Longitude}
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Applier interface {
	ApplyLocation(id uint, loc models.Location)
}

func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.LocationTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
}

type Consumer struct {
	r   MessageReader
	dst Applier
	log *slog.Logger
}

func NewConsumer(r MessageReader, dst Applier, log *slog.Logger) *Consumer {
	if log == nil {
		log = logging.Discard()
	}
	return &Consumer{r: r, dst: dst, log: log.With("component", "locationfeed")}
}

// Run applies updates until ctx is cancelled or the reader is closed.
// Malformed messages are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("location_feed_started")
	defer c.log.Info("location_feed_stopped")

	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			c.log.Error("location_read_failed", "error", err)
			return fmt.Errorf("read location message: %w", err)
		}

		u, err := Decode(m)
		if err != nil {
			c.log.Warn("location_message_skipped",
				"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "error", err)
			continue
		}
		c.dst.ApplyLocation(u.ShipperID, u.Location())
		c.log.Debug("location_applied", "shipper_id", u.ShipperID)
	}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Decode reads an update from a message value. The shipper id may also come
// from the "shipperID" field or from a numeric message key.
func Decode(m kafka.Message) (Update, error) {
	var raw struct {
		ShipperID  *uint    `json:"shipper_id"`
		ShipperID2 *uint    `json:"shipperID"`
		Latitude   *float64 `json:"latitude"`
		Longitude  *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(m.Value, &raw); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrBadUpdate, err)
	}

	var u Update
	switch {
	case raw.ShipperID != nil:
		u.ShipperID = *raw.ShipperID
	case raw.ShipperID2 != nil:
		u.ShipperID = *raw.ShipperID2
	default:
		if id, err := strconv.ParseUint(string(m.Key), 10, 64); err == nil {
			u.ShipperID = uint(id)
		}
	}
	if u.ShipperID == 0 {
		return Update{}, fmt.Errorf("%w: no shipper id", ErrBadUpdate)
	}
	if raw.Latitude == nil || raw.Longitude == nil {
		return Update{}, fmt.Errorf("%w: missing coordinates", ErrBadUpdate)
	}
	u.Latitude, u.Longitude = *raw.Latitude, *raw.Longitude
	if u.Latitude < -90 || u.Latitude > 90 || u.Longitude < -180 || u.Longitude > 180 {
		return Update{}, fmt.Errorf("%w: coordinates out of range", ErrBadUpdate)
	}
	return u, nil
}
