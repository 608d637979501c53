package view

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

const (
	// UncategorizedLabel is shown for items without a known category.
	UncategorizedLabel = "Uncategorized"
	// DefaultSellerName is shown when the seller is not cached locally.
	DefaultSellerName = "Strathmore Seller"
)

// DisplayStatus is the availability shown to buyers.
type DisplayStatus int

const (
	StatusAvailable DisplayStatus = iota + 1
	StatusSold
	StatusReserved
)

func (s DisplayStatus) String() string {
	switch s {
	case StatusAvailable:
		return "AVAILABLE"
	case StatusSold:
		return "SOLD"
	case StatusReserved:
		return "RESERVED"
	default:
		return "UNKNOWN"
	}
}

// DisplayStatusOf maps a listing status to what buyers see. Only active
// listings are available; sold ones are sold; anything else is reserved.
func DisplayStatusOf(s model.Status) DisplayStatus {
	switch s {
	case model.StatusActive:
		return StatusAvailable
	case model.StatusSold:
		return StatusSold
	case model.StatusPending, model.StatusApproved, model.StatusCompleted:
		return StatusReserved
	default:
		return StatusReserved
	}
}

// ItemView is a listing ready for display.
type ItemView struct {
	ID             string
	Title          string
	Description    string
	Price          float64
	ImageURL       string
	Images         []string
	Category       string
	SellerID       string
	SellerName     string
	Condition      string
	PickupLocation string
	CreatedAt      time.Time
	Status         DisplayStatus
	IsAuction      bool
	AuctionEndTime *time.Time
	CurrentBid     *float64
}

// BidView is one leaderboard row.
type BidView struct {
	ID        string
	ItemID    string
	BidderID  string
	Amount    float64
	Timestamp time.Time
	Leading   bool
}

// NotificationView is a notification ready for display.
type NotificationView struct {
	ID        string
	Title     string
	Message   string
	Type      string
	Read      bool
	Timestamp time.Time
	ItemID    string
}

// MapItem derives the display form of it. category and sellerName are the
// resolved labels; empty values get the defaults.
//
// Price is price, else starting bid, else 0. CurrentBid is current bid,
// else price, else starting bid.
func MapItem(it model.Item, category, sellerName string) ItemView {
	if category == "" {
		category = UncategorizedLabel
	}
	if sellerName == "" {
		sellerName = DefaultSellerName
	}

	v := ItemView{
		ID:             it.ID,
		Title:          it.Title,
		Description:    it.Description,
		Price:          firstOf(0, it.Price, it.StartingBid),
		Images:         slices.Clone(it.Images),
		Category:       category,
		SellerID:       it.SellerID,
		SellerName:     sellerName,
		Condition:      it.Condition.String(),
		PickupLocation: it.PickupLocation,
		CreatedAt:      it.CreatedAt,
		Status:         DisplayStatusOf(it.Status),
		IsAuction:      it.IsAuction(),
		AuctionEndTime: it.AuctionEndTime,
		CurrentBid:     firstPtr(it.CurrentBid, it.Price, it.StartingBid),
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	if len(v.Images) > 0 {
		v.ImageURL = v.Images[0]
	}
	if v.PickupLocation == "" {
		v.PickupLocation = model.DefaultPickupLocation
	}
	return v
}

// MapBids converts bids already in leaderboard order; the first is marked
// leading.
func MapBids(bids []model.Bid) []BidView {
	out := make([]BidView, len(bids))
	for i, b := range bids {
		out[i] = BidView{
			ID:        b.ID,
			ItemID:    b.ItemID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			Timestamp: b.Timestamp,
			Leading:   i == 0,
		}
	}
	return out
}

// MapNotifications converts notifications for display.
func MapNotifications(ns []model.Notification) []NotificationView {
	out := make([]NotificationView, len(ns))
	for i, n := range ns {
		out[i] = NotificationView{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type.String(),
			Read:      n.Read,
			Timestamp: n.Timestamp,
			ItemID:    n.ItemID,
		}
	}
	return out
}

// SortNewestFirst orders views by creation time, newest first; ties by ID.
func SortNewestFirst(views []ItemView) {
	slices.SortStableFunc(views, func(a, b ItemView) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Directory resolves category and seller labels from the local store.
type Directory interface {
	Categories(ctx context.Context) ([]model.Category, error)
	User(ctx context.Context, id string) (*model.User, error)
}

// lookupTTL bounds how long resolved labels are reused, so renamed
// categories and sellers show up without restarting.
const lookupTTL = time.Minute

// Mapper maps items with category and seller names resolved through a
// [Directory]. Resolved names are cached for lookupTTL; unknown ids are
// looked up again on every use. A Mapper is safe for concurrent use.
type Mapper struct {
	dir Directory
	log *slog.Logger
	now func() time.Time

	mu         sync.Mutex
	loadedAt   time.Time
	categories map[int64]string
	sellers    map[string]string
}

// NewMapper creates a Mapper.
func NewMapper(dir Directory, logger *slog.Logger) *Mapper {
	return &Mapper{dir: dir, log: logger, now: time.Now, sellers: make(map[string]string)}
}

// expire drops every cached label once they are older than lookupTTL.
// Callers hold m.mu.
func (m *Mapper) expire() {
	now := m.now()
	if now.Sub(m.loadedAt) < lookupTTL {
		return
	}
	m.loadedAt = now
	m.categories = nil
	clear(m.sellers)
}

// Item maps one item.
func (m *Mapper) Item(ctx context.Context, it model.Item) ItemView {
	return MapItem(it, m.category(ctx, it.CategoryID), m.sellerName(ctx, it.SellerID))
}

// Items maps items in order.
func (m *Mapper) Items(ctx context.Context, items []model.Item) []ItemView {
	out := make([]ItemView, len(items))
	for i, it := range items {
		out[i] = m.Item(ctx, it)
	}
	return out
}

func (m *Mapper) category(ctx context.Context, id *int64) string {
	if id == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()

	if name, ok := m.categories[*id]; ok {
		return name
	}
	// Unknown id: the category table may have changed since the last load.
	cats, err := m.dir.Categories(ctx)
	if err != nil {
		m.log.Debug("loading categories", "error", err)
		return ""
	}
	m.categories = make(map[int64]string, len(cats))
	for _, c := range cats {
		m.categories[c.ID] = c.Name
	}
	return m.categories[*id]
}

func (m *Mapper) sellerName(ctx context.Context, id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()

	if name, ok := m.sellers[id]; ok {
		return name
	}
	u, err := m.dir.User(ctx, id)
	if err != nil {
		m.log.Debug("looking up seller", "seller_id", id, "error", err)
		return ""
	}
	if u == nil {
		return ""
	}
	name := u.DisplayName()
	if name != "" {
		m.sellers[id] = name
	}
	return name
}

// --- helpers -----------------------------------------------------------------

func firstOf(fallback float64, vals ...*float64) float64 {
	if p := firstPtr(vals...); p != nil {
		return *p
	}
	return fallback
}

func firstPtr(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			c := *v
			return &c
		}
	}
	return nil
}
