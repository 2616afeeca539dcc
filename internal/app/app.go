// Package app wires the client core together: one transport, one session
// manager, the resource caches and the cart, plus the optional location feed
// and restaurant search.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Skotchmaster/food_delivery/internal/cache"
	"github.com/Skotchmaster/food_delivery/internal/cart"
	"github.com/Skotchmaster/food_delivery/internal/clients"
	"github.com/Skotchmaster/food_delivery/internal/locationfeed"
	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/internal/search"
	"github.com/Skotchmaster/food_delivery/internal/session"
	"github.com/Skotchmaster/food_delivery/internal/sessionstore"
	"github.com/Skotchmaster/food_delivery/internal/transport"
	"github.com/Skotchmaster/food_delivery/pkg/apierr"
	"github.com/Skotchmaster/food_delivery/pkg/authclient"
	"github.com/Skotchmaster/food_delivery/pkg/config"
	"github.com/Skotchmaster/food_delivery/pkg/logging"
)

var (
	ErrFeedDisabled = errors.New("location feed is not configured")
	ErrNotSignedIn  = fmt.Errorf("%w: not signed in", apierr.ErrAuthentication)
)

type App struct {
	Log       *slog.Logger
	Transport *transport.Client
	Auth      *authclient.Client
	Session   *session.Manager

	Restaurants *cache.Restaurants
	Orders      *cache.Orders
	Shippers    *cache.Shippers
	Users       *cache.Users
	Cart        *cart.Cart

	feed    *locationfeed.Consumer
	closers []func() error
}

type options struct {
	httpClient    *http.Client
	store         session.Store
	reader        locationfeed.MessageReader
	searcher      cache.RestaurantSearcher
	loginRedirect func()
}

type Option func(*options)

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithStore replaces the store selected by SESSION_STORE.
func WithStore(s session.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLocationReader replaces the Kafka reader built from KAFKA_BROKERS.
func WithLocationReader(r locationfeed.MessageReader) Option {
	return func(o *options) { o.reader = r }
}

// WithSearcher replaces the Elasticsearch searcher built from ES_URL.
func WithSearcher(s cache.RestaurantSearcher) Option {
	return func(o *options) { o.searcher = s }
}

func WithLoginRedirect(fn func()) Option {
	return func(o *options) { o.loginRedirect = fn }
}

// New builds the core and restores a saved session if there is one. A
// restore failure is logged; the app then starts signed out.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Log: log}

	trOpts := []transport.Option{transport.WithTimeout(cfg.HTTPTimeout), transport.WithLogger(log)}
	if o.httpClient != nil {
		trOpts = append(trOpts, transport.WithHTTPClient(o.httpClient))
	}
	a.Transport = transport.New(cfg.APIBaseURL, trOpts...)
	a.Auth = authclient.NewClient(a.Transport)

	store := o.store
	if store == nil {
		s, closeFn, err := sessionstore.Open(ctx, cfg.Session, cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		store = s
		a.closers = append(a.closers, closeFn)
	}

	a.Session = session.NewManager(a.Auth, store,
		session.WithLogger(log),
		session.WithRefreshTimeout(cfg.HTTPTimeout),
		session.WithLoginRedirect(o.loginRedirect),
	)
	a.Transport.SetSession(a.Session)
	if err := a.Session.Restore(ctx); err != nil {
		log.Warn("session_restore_failed", "error", err)
	}

	searcher := o.searcher
	if searcher == nil && cfg.Search.URL != "" {
		es, err := search.NewClient(ctx, cfg.Search, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		searcher = search.NewRestaurants(es, cfg.Search.RestaurantIndex)
	}

	a.Restaurants = cache.NewRestaurants(clients.NewRestaurantClient(a.Transport), searcher, log)
	a.Orders = cache.NewOrders(clients.NewOrderClient(a.Transport), log)
	a.Shippers = cache.NewShippers(clients.NewShipperClient(a.Transport), log)
	a.Users = cache.NewUsers(clients.NewUserClient(a.Transport), log)
	a.Cart = cart.New()
	if u := a.Session.User(); u != nil {
		a.Users.SetCurrent(u)
	}

	reader := o.reader
	if reader == nil && len(cfg.Kafka.Brokers) > 0 {
		reader = locationfeed.NewReader(cfg.Kafka)
	}
	if reader != nil {
		a.feed = locationfeed.NewConsumer(reader, a.Shippers, log)
		a.closers = append(a.closers, a.feed.Close)
	}

	return a, nil
}

// Login signs in and makes the user the current one in the user cache.
func (a *App) Login(ctx context.Context, email, password string) (session.Session, error) {
	s, err := a.Session.Login(ctx, session.Credentials{Email: email, Password: password})
	if err != nil {
		return s, err
	}
	a.Users.SetCurrent(s.User)
	return s, nil
}

// Logout ends the session and drops everything tied to the user. Public
// restaurant data is kept.
func (a *App) Logout(ctx context.Context) error {
	err := a.Session.Logout(ctx)
	a.Cart.Clear()
	a.Orders.Clear()
	a.Users.ClearCurrent()
	a.Shippers.ClearSelected()
	return err
}

// PlaceOrder submits the cart for the signed in user. The cart is emptied
// only when the server accepted the order.
func (a *App) PlaceOrder(ctx context.Context) (*models.Order, error) {
	u := a.Session.User()
	if u == nil {
		return nil, ErrNotSignedIn
	}
	req, err := a.Cart.OrderRequest(u.ID)
	if err != nil {
		return nil, err
	}
	o, err := a.Orders.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	a.Cart.Clear()
	return o, nil
}

// RunLocationFeed applies pushed shipper positions until ctx is done.
func (a *App) RunLocationFeed(ctx context.Context) error {
	if a.feed == nil {
		return ErrFeedDisabled
	}
	return a.feed.Run(ctx)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
