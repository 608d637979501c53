// Package model defines the marketplace entities shared by the local store,
// the marketplace client, and the repositories.
package model

import (
	"math"
	"strings"
	"time"
)

// DefaultPickupLocation is the campus location code used when a listing does
// not name one.
const DefaultPickupLocation = "STC"

// Item is a marketplace listing as persisted in the local store.
type Item struct {
	ID          string
	SellerID    string
	Title       string
	Description string

	// Price is nil for pure-auction listings.
	Price *float64
	// StartingBid is required for auctions.
	StartingBid *float64
	// CurrentBid is the highest accepted bid on an auction, if any.
	CurrentBid *float64

	Condition Condition
	Type      ItemType
	Status    Status

	// Images holds image URLs in display order.
	Images []string

	CategoryID     *int64
	AuctionEndTime *time.Time
	PickupLocation string
	CreatedAt      time.Time
}

// IsAuction reports whether the item is sold by auction.
func (i *Item) IsAuction() bool {
	return i.Type == ItemTypeAuction
}

// Validate checks the pricing invariant and the enum fields.
func (i *Item) Validate() error {
	const op = "validate item"
	if i.ID == "" {
		return ValidationError(op, "item id is required")
	}
	if !i.Condition.Valid() || !i.Type.Valid() || !i.Status.Valid() {
		return ValidationError(op, "item "+i.ID+" has an unknown condition, type, or status")
	}
	return checkPricing(op, i.Type, i.Price, i.StartingBid)
}

// NewItem is the seller-supplied draft sent to the marketplace on creation.
// Server-assigned fields (id, status, createdAt) are absent.
type NewItem struct {
	Title          string
	Description    string
	Price          *float64
	StartingBid    *float64
	Condition      Condition
	Type           ItemType
	Images         []string
	CategoryID     *int64
	AuctionEndTime *time.Time
	PickupLocation string
}

// Validate checks the draft before it is sent.
func (n *NewItem) Validate() error {
	const op = "create item"
	if strings.TrimSpace(n.Title) == "" {
		return ValidationError(op, "title is required")
	}
	if !n.Condition.Valid() {
		return ValidationError(op, "condition is required")
	}
	if !n.Type.Valid() {
		return ValidationError(op, "item type is required")
	}
	if err := checkPricing(op, n.Type, n.Price, n.StartingBid); err != nil {
		return err
	}
	if n.Type == ItemTypeAuction && n.AuctionEndTime != nil && !n.AuctionEndTime.After(time.Now()) {
		return ValidationError(op, "auction end time must be in the future")
	}
	return nil
}

func checkPricing(op string, t ItemType, price, startingBid *float64) error {
	switch t {
	case ItemTypeFixedPrice:
		if price == nil {
			return ValidationError(op, "fixed-price listings require a price")
		}
	case ItemTypeAuction:
		if startingBid == nil {
			return ValidationError(op, "auctions require a starting bid")
		}
	}
	if price != nil && !PositiveAmount(*price) {
		return ValidationError(op, "price must be positive")
	}
	if startingBid != nil && !PositiveAmount(*startingBid) {
		return ValidationError(op, "starting bid must be positive")
	}
	return nil
}

// PositiveAmount reports whether v is a finite amount greater than zero.
func PositiveAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Category groups listings. IDs are assigned by the marketplace.
type Category struct {
	ID          int64
	Name        string
	Description string
}

// User is the subset of a marketplace account kept locally for display.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      Role
}

// DisplayName joins first and last name.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Order records a purchase awaiting or past pickup.
type Order struct {
	ID             string
	ItemID         string
	BuyerID        string
	SellerID       string
	TotalAmount    float64
	Status         OrderStatus
	CreatedAt      time.Time
	PickupLocation string
}

// Notification is a message addressed to one user. Read is the only field
// mutated after creation.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      NotificationType
	Read      bool
	Timestamp time.Time
	// ItemID links the notification to a listing; empty when unrelated.
	ItemID string
}

// Float returns a pointer to v. Convenient for optional amounts.
func Float(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
