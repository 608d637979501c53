package marketplace

// Wire types for the marketplace JSON API. Field names follow the server's
// camelCase contract; timestamps are epoch milliseconds. The dev server
// encodes the same types, so both sides of the contract live here.

// Envelope wraps every response body.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *T     `json:"data,omitempty"`
}

// ItemDTO is a listing as the server sends it. CategoryID arrives as a
// string.
type ItemDTO struct {
	ID             string   `json:"id"`
	SellerID       string   `json:"sellerId"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Price          *float64 `json:"price,omitempty"`
	StartingBid    *float64 `json:"startingBid,omitempty"`
	CurrentBid     *float64 `json:"currentBid,omitempty"`
	Condition      string   `json:"condition"`
	ItemType       string   `json:"itemType"`
	Status         string   `json:"status"`
	Images         []string `json:"images"`
	CategoryID     *string  `json:"categoryId,omitempty"`
	AuctionEndTime *int64   `json:"auctionEndTime,omitempty"`
	PickupLocation string   `json:"pickupLocation,omitempty"`
	CreatedAt      int64    `json:"createdAt"`
}

// CreateItemRequest is the body of POST /api/items.
type CreateItemRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Price          *float64 `json:"price,omitempty"`
	StartingBid    *float64 `json:"startingBid,omitempty"`
	Condition      string   `json:"condition"`
	ItemType       string   `json:"itemType"`
	Images         []string `json:"images"`
	CategoryID     *string  `json:"categoryId,omitempty"`
	AuctionEndTime *int64   `json:"auctionEndTime,omitempty"`
	PickupLocation string   `json:"pickupLocation"`
}

// PlaceBidRequest is the body of POST /api/items/{itemId}/bids.
type PlaceBidRequest struct {
	Amount float64 `json:"amount"`
}

// BidDTO is a server-confirmed bid.
type BidDTO struct {
	ID        string  `json:"id"`
	ItemID    string  `json:"itemId"`
	BidderID  string  `json:"bidderId"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"`
}

// NotificationDTO is a user notification.
type NotificationDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	IsRead    bool   `json:"isRead"`
	Timestamp int64  `json:"timestamp"`
	ItemID    string `json:"itemId,omitempty"`
}

// OrderDTO is a purchase record.
type OrderDTO struct {
	ID             string  `json:"id"`
	ItemID         string  `json:"itemId"`
	BuyerID        string  `json:"buyerId"`
	SellerID       string  `json:"sellerId"`
	TotalAmount    float64 `json:"totalAmount"`
	Status         string  `json:"status"`
	CreatedAt      int64   `json:"createdAt"`
	PickupLocation string  `json:"pickupLocation,omitempty"`
}

// Health is the payload of GET /api/health.
type Health struct {
	Status string `json:"status"`
}
