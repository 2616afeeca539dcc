// Command foodcli drives the client core from a terminal. Sessions survive
// between runs only with a durable SESSION_STORE (sqlite, postgres or redis).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Skotchmaster/food_delivery/internal/app"
	"github.com/Skotchmaster/food_delivery/pkg/apierr"
	"github.com/Skotchmaster/food_delivery/pkg/config"
	"github.com/Skotchmaster/food_delivery/pkg/logging"
)

const usage = `usage: foodcli <command> [flags]

commands:
  login       -email -password
  logout
  whoami
  restaurants [-q query -page n -size n]
  menu        -restaurant id
  order       -restaurant id item[:qty] ...
  orders
  cancel      -order id
  track       -shipper id`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	log := logging.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.WithLoginRedirect(func() {
		fmt.Fprintln(os.Stderr, "session expired, run: foodcli login")
	}))
	if err != nil {
		fatal(err)
	}
	defer a.Close()

	if err := run(ctx, a, os.Args[1], os.Args[2:]); err != nil {
		_ = a.Close()
		fatal(err)
	}
}

func run(ctx context.Context, a *app.App, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)

	switch cmd {
	case "login":
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		s, err := a.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		printJSON(s.User)

	case "logout":
		return a.Logout(ctx)

	case "whoami":
		u := a.Users.Current()
		if u == nil {
			return app.ErrNotSignedIn
		}
		printJSON(u)

	case "restaurants":
		q := fs.String("q", "", "search query, uses ES_URL")
		page := fs.Int("page", 1, "result page")
		size := fs.Int("size", 10, "page size")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *q != "" {
			total, list, err := a.Restaurants.Search(ctx, *q, *page, *size)
			if err != nil {
				return err
			}
			printJSON(map[string]any{"total": total, "restaurants": list})
			return nil
		}
		list, err := a.Restaurants.List(ctx)
		if err != nil {
			return err
		}
		printJSON(list)

	case "menu":
		id := fs.Uint("restaurant", 0, "restaurant id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		menu, err := a.Restaurants.Menu(ctx, uint(*id))
		if err != nil {
			return err
		}
		printJSON(menu)

	case "order":
		id := fs.Uint("restaurant", 0, "restaurant id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := fillCart(ctx, a, uint(*id), fs.Args()); err != nil {
			return err
		}
		o, err := a.PlaceOrder(ctx)
		if err != nil {
			return err
		}
		printJSON(o)

	case "orders":
		u := a.Users.Current()
		if u == nil {
			return app.ErrNotSignedIn
		}
		list, err := a.Orders.ListByCustomer(ctx, u.ID)
		if err != nil {
			return err
		}
		printJSON(list)

	case "cancel":
		id := fs.Uint("order", 0, "order id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		o, err := a.Orders.Cancel(ctx, uint(*id))
		if err != nil {
			return err
		}
		printJSON(o)

	case "track":
		id := fs.Uint("shipper", 0, "shipper id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		sh, err := a.Shippers.Get(ctx, uint(*id))
		if err != nil {
			return err
		}
		printJSON(sh)
		err = a.RunLocationFeed(ctx)
		if last := a.Shippers.LastLocation(); last != nil {
			printJSON(last)
		}
		return err

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	return nil
}

// fillCart resolves "item[:qty]" arguments against the restaurant menu.
func fillCart(ctx context.Context, a *app.App, restaurantID uint, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no items given", apierr.ErrValidation)
	}
	menu, err := a.Restaurants.Menu(ctx, restaurantID)
	if err != nil {
		return err
	}
	if err := a.Cart.SetRestaurant(restaurantID); err != nil {
		return err
	}

	for _, arg := range args {
		idPart, qtyPart, hasQty := strings.Cut(arg, ":")
		itemID, err := strconv.ParseUint(idPart, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad item %q", apierr.ErrValidation, arg)
		}
		qty := 1
		if hasQty {
			if qty, err = strconv.Atoi(qtyPart); err != nil || qty < 1 {
				return fmt.Errorf("%w: bad quantity in %q", apierr.ErrValidation, arg)
			}
		}

		found := false
		for _, m := range menu {
			if m.ID != uint(itemID) {
				continue
			}
			found = true
			for range qty {
				if err := a.Cart.AddItem(m); err != nil {
					return err
				}
			}
		}
		if !found {
			return fmt.Errorf("%w: item %d is not on the menu", apierr.ErrNotFound, itemID)
		}
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	if errors.Is(err, apierr.ErrAuthentication) {
		os.Exit(3)
	}
	os.Exit(1)
}
