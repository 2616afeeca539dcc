package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/internal/util"
	"github.com/Skotchmaster/food_delivery/pkg/apierr"
)

var ErrEmptyQuery = &apierr.StatusError{Op: "search.restaurants", Kind: apierr.ErrValidation, Message: "empty query"}

type Restaurants struct {
	es    *elasticsearch.Client
	index string
}

func NewRestaurants(es *elasticsearch.Client, index string) *Restaurants {
	return &Restaurants{es: es, index: index}
}

// SearchRestaurants returns the total hit count and one page of restaurants.
// page is 1-based; out-of-range sizes fall back to the default page size.
func (s *Restaurants) SearchRestaurants(ctx context.Context, query string, page, size int) (int64, []models.Restaurant, error) {
	const op = "search.restaurants"

	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, ErrEmptyQuery
	}
	from, size := util.Window(page, size)

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description", "menu_items.name"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, apierr.Decode(op, err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, apierr.FromTransport(op, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return 0, nil, apierr.FromStatus(op, res.StatusCode, string(msg))
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Restaurant `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return 0, nil, apierr.Decode(op, err)
	}

	out := make([]models.Restaurant, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		out[i] = hit.Source
	}
	return r.Hits.Total.Value, out, nil
}
