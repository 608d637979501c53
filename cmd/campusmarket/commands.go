package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
	"github.com/campusmarket/campusmarket/internal/view"
)

// errUsage marks a malformed command line.
var errUsage = errors.New("invalid usage")

// runItems prints a listing screen. Filters pick the screen: --seller for a
// user's listings, --category for a category, --search for a search, and
// nothing for the featured feed.
func runItems(args []string) error {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	category := fs.Int64("category", 0, "only items in this category id")
	search := fs.String("search", "", "title or description contains")
	seller := fs.String("seller", "", "only items listed by this user id")
	mine := fs.Bool("mine", false, "only my own listings")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(*cfgPath, *verbose, func(ctx context.Context, a *app) error {
		sellerID := *seller
		if *mine {
			sellerID = a.cfg.UserID
		}

		var ch <-chan view.State[[]view.ItemView]
		switch {
		case sellerID != "":
			ch = a.proj.UserListings(ctx, sellerID)
		case *category != 0:
			ch = a.proj.ByCategory(ctx, *category)
		default:
			ch = a.proj.Search(ctx, *search)
		}

		st, err := await(ctx, ch)
		if err != nil {
			return err
		}
		printItems(os.Stdout, st.Data)
		return nil
	})
}

// runItem prints one cached listing.
func runItem(args []string) error {
	fs := flag.NewFlagSet("item", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: campusmarket item <id>", errUsage)
	}

	return withApp(*cfgPath, *verbose, func(ctx context.Context, a *app) error {
		st, err := first(ctx, func(ctx context.Context) <-chan view.State[view.ItemView] {
			return a.proj.ItemDetail(ctx, fs.Arg(0))
		})
		if err != nil {
			return err
		}
		printItem(os.Stdout, st.Data)
		return nil
	})
}

// runBids prints the cached leaderboard of an auction.
func runBids(args []string) error {
	fs := flag.NewFlagSet("bids", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: campusmarket bids <item>", errUsage)
	}

	return withApp(*cfgPath, *verbose, func(ctx context.Context, a *app) error {
		st, err := first(ctx, func(ctx context.Context) <-chan view.State[[]view.BidView] {
			return a.proj.Bids(ctx, fs.Arg(0))
		})
		if err != nil {
			return err
		}
		printBids(os.Stdout, st.Data)
		return nil
	})
}

// runBid places a bid as the configured user.
func runBid(args []string) error {
	fs := flag.NewFlagSet("bid", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: campusmarket bid <item> <amount>", errUsage)
	}
	amount, err := strconv.ParseFloat(fs.Arg(1), 64)
	if err != nil {
		return fmt.Errorf("%w: amount %q is not a number", errUsage, fs.Arg(1))
	}

	return withApp(*cfgPath, *verbose, func(ctx context.Context, a *app) error {
		userID := a.cfg.UserID
		st, err := await(ctx, a.proj.PlaceBid(ctx, fs.Arg(0), userID, amount))
		if err != nil {
			return err
		}
		fmt.Printf("Bid %s placed: %s on %s\n", st.Data.ID, formatAmount(st.Data.Amount), st.Data.ItemID)
		return nil
	})
}

// runList creates a listing from flags as the configured user.
func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	title := fs.String("title", "", "listing title (required)")
	desc := fs.String("description", "", "listing description")
	price := fs.Float64("price", 0, "fixed price")
	startingBid := fs.Float64("starting-bid", 0, "starting bid for auctions")
	condition := fs.String("condition", "GOOD", "NEW, LIKE_NEW, GOOD or FAIR")
	itemType := fs.String("type", "FIXED_PRICE", "FIXED_PRICE or AUCTION")
	category := fs.Int64("category", 0, "category id")
	ends := fs.Duration("ends-in", 0, "auction duration from now, e.g. 72h")
	pickup := fs.String("pickup", "", "pickup location (default "+model.DefaultPickupLocation+")")
	var images []string
	fs.Func("image", "image URL; repeat for more", func(s string) error {
		images = append(images, s)
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return err
	}

	draft, err := buildDraft(draftFlags{
		title:       *title,
		description: *desc,
		price:       *price,
		startingBid: *startingBid,
		condition:   *condition,
		itemType:    *itemType,
		category:    *category,
		endsIn:      *ends,
		pickup:      *pickup,
		images:      images,
	}, time.Now())
	if err != nil {
		return err
	}

	return withApp(*cfgPath, *verbose, func(ctx context.Context, a *app) error {
		userID := a.cfg.UserID
		st, err := await(ctx, a.proj.CreateItem(ctx, userID, draft))
		if err != nil {
			return err
		}
		fmt.Printf("Listing %s created (%s)\n", st.Data.ID, st.Data.Status)
		return nil
	})
}

// runNotifications lists the configured user's notifications, or changes
// their read state with --mark-read or --mark-all.
func runNotifications(args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ExitOnError)
	cfgPath, verbose := commonFlags(fs)
	unread := fs.Bool("unread", false, "only unread notifications")
	markRead := fs.String("mark-read", "", "mark this notification id as read")
	markAll := fs.Bool("mark-all", false, "mark every cached unread notification as read")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(*cfgPath, *verbose, func(ctx context.Context, a *app) error {
		userID := a.cfg.UserID

		switch {
		case *markRead != "":
			if err := a.notes.MarkRead(ctx, *markRead); err != nil {
				return err
			}
			fmt.Printf("Notification %s marked read\n", *markRead)
			return nil
		case *markAll:
			n, err := a.notes.MarkAllRead(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Printf("%d notification(s) marked read\n", n)
			return nil
		}

		st, err := await(ctx, a.proj.Notifications(ctx, userID, *unread))
		if err != nil {
			return err
		}
		printNotifications(os.Stdout, st.Data)
		if n, err := a.notes.UnreadCount(ctx, userID); err == nil {
			fmt.Printf("\n%d unread\n", n)
		}
		return nil
	})
}

// --- helpers -----------------------------------------------------------------

// withApp runs fn with a signal-aware context and an opened app.
func withApp(cfgPath string, verbose bool, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := openApp(ctx, cfgPath, verbose)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// await drains a one-shot projection and returns its terminal state. An
// Error state becomes an error carrying its message.
func await[T any](ctx context.Context, ch <-chan view.State[T]) (view.State[T], error) {
	var last view.State[T]
	for st := range ch {
		last = st
	}
	return terminal(ctx, last)
}

// first starts a live projection, returns its first settled state, and stops
// following it.
func first[T any](ctx context.Context, start func(context.Context) <-chan view.State[T]) (view.State[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := start(ctx)
	var got view.State[T]
	for st := range ch {
		if st.Terminal() {
			got = st
			break
		}
	}
	cancel()
	for range ch {
		// wait for the live query to close
	}
	return terminal(ctx, got)
}

func terminal[T any](ctx context.Context, st view.State[T]) (view.State[T], error) {
	switch st.Phase {
	case view.PhaseSuccess:
		return st, nil
	case view.PhaseError:
		return st, errors.New(st.Message)
	}
	if err := ctx.Err(); err != nil {
		return st, err
	}
	return st, errors.New("no result")
}

// draftFlags are the raw list flags.
type draftFlags struct {
	title, description string
	price, startingBid float64
	condition          string
	itemType           string
	category           int64
	endsIn             time.Duration
	pickup             string
	images             []string
}

// buildDraft turns list flags into a draft. Zero amounts and a zero category
// mean unset.
func buildDraft(f draftFlags, now time.Time) (model.NewItem, error) {
	cond, err := model.ParseCondition(strings.ToUpper(f.condition))
	if err != nil {
		return model.NewItem{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	typ, err := model.ParseItemType(strings.ToUpper(f.itemType))
	if err != nil {
		return model.NewItem{}, fmt.Errorf("%w: %v", errUsage, err)
	}

	draft := model.NewItem{
		Title:          f.title,
		Description:    f.description,
		Condition:      cond,
		Type:           typ,
		Images:         f.images,
		PickupLocation: f.pickup,
	}
	if f.price != 0 {
		draft.Price = model.Float(f.price)
	}
	if f.startingBid != 0 {
		draft.StartingBid = model.Float(f.startingBid)
	}
	if f.category != 0 {
		draft.CategoryID = model.Int64(f.category)
	}
	if f.endsIn > 0 {
		end := now.Add(f.endsIn)
		draft.AuctionEndTime = &end
	}
	return draft, nil
}
