package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/food_delivery/pkg/apierr"
	"github.com/Skotchmaster/food_delivery/pkg/config"
)

// NewClient connects to the cluster and checks it answers before returning.
func NewClient(ctx context.Context, cfg config.SearchConfig, log *slog.Logger) (*elasticsearch.Client, error) {
	return newClient(ctx, elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	}, log)
}

func newClient(ctx context.Context, esCfg elasticsearch.Config, log *slog.Logger) (*elasticsearch.Client, error) {
	log = log.With("component", "search")
	log.Info("es_connecting", "addresses", esCfg.Addresses)

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		log.Error("es_client_failed", "error", err)
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		log.Error("es_info_failed", "error", err)
		return nil, apierr.FromTransport("search.info", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		log.Error("es_info_error", "status", res.StatusCode, "body", string(body))
		return nil, apierr.FromStatus("search.info", statusOrBadGateway(res.StatusCode), string(body))
	}

	log.Info("es_connected")
	return client, nil
}

func statusOrBadGateway(code int) int {
	if code < 400 {
		return http.StatusBadGateway
	}
	return code
}
