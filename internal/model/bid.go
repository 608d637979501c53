package model

import (
	"cmp"
	"slices"
	"time"
)

// Bid is an accepted offer on an auction item. Bids are immutable.
type Bid struct {
	ID        string
	ItemID    string
	BidderID  string
	Amount    float64
	Timestamp time.Time
}

// RankBids orders bids for the auction leaderboard: higher amount first, then
// the earlier bid at equal amounts, then the lower ID so the order is total.
// It returns a negative number when a ranks above b.
func RankBids(a, b Bid) int {
	if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
		return c
	}
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortBids sorts bids in place by RankBids.
func SortBids(bids []Bid) {
	slices.SortFunc(bids, RankBids)
}

// HighestBid returns the top-ranked bid. The result does not depend on the
// order of bids.
func HighestBid(bids []Bid) (Bid, bool) {
	if len(bids) == 0 {
		return Bid{}, false
	}
	return slices.MinFunc(bids, RankBids), true
}
