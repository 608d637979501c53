package marketplace

import (
	"fmt"
	"strconv"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

// itemFromDTO converts a server item to a [model.Item]. Unknown enum values
// are an error: the caller treats them as a malformed response.
func itemFromDTO(d ItemDTO) (model.Item, error) {
	cond, err := model.ParseCondition(d.Condition)
	if err != nil {
		return model.Item{}, fmt.Errorf("item %q: %w", d.ID, err)
	}
	typ, err := model.ParseItemType(d.ItemType)
	if err != nil {
		return model.Item{}, fmt.Errorf("item %q: %w", d.ID, err)
	}
	status, err := model.ParseStatus(d.Status)
	if err != nil {
		return model.Item{}, fmt.Errorf("item %q: %w", d.ID, err)
	}

	item := model.Item{
		ID:             d.ID,
		SellerID:       d.SellerID,
		Title:          d.Title,
		Description:    d.Description,
		Price:          d.Price,
		StartingBid:    d.StartingBid,
		CurrentBid:     d.CurrentBid,
		Condition:      cond,
		Type:           typ,
		Status:         status,
		Images:         d.Images,
		CategoryID:     parseCategoryID(d.CategoryID),
		PickupLocation: d.PickupLocation,
		CreatedAt:      time.UnixMilli(d.CreatedAt),
	}
	if item.Images == nil {
		item.Images = []string{}
	}
	if item.PickupLocation == "" {
		item.PickupLocation = model.DefaultPickupLocation
	}
	if d.AuctionEndTime != nil {
		t := time.UnixMilli(*d.AuctionEndTime)
		item.AuctionEndTime = &t
	}
	return item, nil
}

// ItemToDTO converts a [model.Item] to its wire form.
func ItemToDTO(item *model.Item) ItemDTO {
	d := ItemDTO{
		ID:             item.ID,
		SellerID:       item.SellerID,
		Title:          item.Title,
		Description:    item.Description,
		Price:          item.Price,
		StartingBid:    item.StartingBid,
		CurrentBid:     item.CurrentBid,
		Condition:      item.Condition.String(),
		ItemType:       item.Type.String(),
		Status:         item.Status.String(),
		Images:         item.Images,
		CategoryID:     formatCategoryID(item.CategoryID),
		PickupLocation: item.PickupLocation,
		CreatedAt:      item.CreatedAt.UnixMilli(),
	}
	if d.Images == nil {
		d.Images = []string{}
	}
	if item.AuctionEndTime != nil {
		ms := item.AuctionEndTime.UnixMilli()
		d.AuctionEndTime = &ms
	}
	return d
}

// buildCreateItemRequest returns the request body for a draft listing.
func buildCreateItemRequest(n *model.NewItem) CreateItemRequest {
	req := CreateItemRequest{
		Title:          n.Title,
		Description:    n.Description,
		Price:          n.Price,
		StartingBid:    n.StartingBid,
		Condition:      n.Condition.String(),
		ItemType:       n.Type.String(),
		Images:         n.Images,
		CategoryID:     formatCategoryID(n.CategoryID),
		PickupLocation: n.PickupLocation,
	}
	if req.Images == nil {
		req.Images = []string{}
	}
	if req.PickupLocation == "" {
		req.PickupLocation = model.DefaultPickupLocation
	}
	if n.AuctionEndTime != nil {
		ms := n.AuctionEndTime.UnixMilli()
		req.AuctionEndTime = &ms
	}
	return req
}

func bidFromDTO(d BidDTO) model.Bid {
	return model.Bid{
		ID:        d.ID,
		ItemID:    d.ItemID,
		BidderID:  d.BidderID,
		Amount:    d.Amount,
		Timestamp: time.UnixMilli(d.Timestamp),
	}
}

func notificationFromDTO(d NotificationDTO) (model.Notification, error) {
	typ, err := model.ParseNotificationType(d.Type)
	if err != nil {
		return model.Notification{}, fmt.Errorf("notification %q: %w", d.ID, err)
	}
	return model.Notification{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		Message:   d.Message,
		Type:      typ,
		Read:      d.IsRead,
		Timestamp: time.UnixMilli(d.Timestamp),
		ItemID:    d.ItemID,
	}, nil
}

func orderFromDTO(d OrderDTO) (model.Order, error) {
	status, err := model.ParseOrderStatus(d.Status)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %q: %w", d.ID, err)
	}
	o := model.Order{
		ID:             d.ID,
		ItemID:         d.ItemID,
		BuyerID:        d.BuyerID,
		SellerID:       d.SellerID,
		TotalAmount:    d.TotalAmount,
		Status:         status,
		CreatedAt:      time.UnixMilli(d.CreatedAt),
		PickupLocation: d.PickupLocation,
	}
	if o.PickupLocation == "" {
		o.PickupLocation = model.DefaultPickupLocation
	}
	return o, nil
}

// NotificationToDTO converts a [model.Notification] to its wire form.
func NotificationToDTO(n *model.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type.String(),
		IsRead:    n.Read,
		Timestamp: n.Timestamp.UnixMilli(),
		ItemID:    n.ItemID,
	}
}

// OrderToDTO converts a [model.Order] to its wire form.
func OrderToDTO(o *model.Order) OrderDTO {
	return OrderDTO{
		ID:             o.ID,
		ItemID:         o.ItemID,
		BuyerID:        o.BuyerID,
		SellerID:       o.SellerID,
		TotalAmount:    o.TotalAmount,
		Status:         o.Status.String(),
		CreatedAt:      o.CreatedAt.UnixMilli(),
		PickupLocation: o.PickupLocation,
	}
}

// parseCategoryID parses the server's string category id. Empty or invalid
// values mean "no category".
func parseCategoryID(s *string) *int64 {
	if s == nil || *s == "" {
		return nil
	}
	id, err := strconv.ParseInt(*s, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func formatCategoryID(id *int64) *string {
	if id == nil {
		return nil
	}
	s := strconv.FormatInt(*id, 10)
	return &s
}

// convertAll applies fn to every element, stopping at the first error.
func convertAll[D, M any](in []D, fn func(D) (M, error)) ([]M, error) {
	out := make([]M, 0, len(in))
	for _, d := range in {
		m, err := fn(d)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
