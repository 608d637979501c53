package model

import "fmt"

// Condition describes the physical state of a listed item.
type Condition int

const (
	ConditionNew Condition = iota + 1
	ConditionLikeNew
	ConditionGood
	ConditionFair
)

// String returns the wire name of the condition.
func (c Condition) String() string {
	switch c {
	case ConditionNew:
		return "NEW"
	case ConditionLikeNew:
		return "LIKE_NEW"
	case ConditionGood:
		return "GOOD"
	case ConditionFair:
		return "FAIR"
	default:
		return fmt.Sprintf("Condition(%d)", int(c))
	}
}

// Valid reports whether c is one of the declared conditions.
func (c Condition) Valid() bool {
	return c >= ConditionNew && c <= ConditionFair
}

// ParseCondition maps a wire name to a Condition.
func ParseCondition(s string) (Condition, error) {
	switch s {
	case "NEW":
		return ConditionNew, nil
	case "LIKE_NEW":
		return ConditionLikeNew, nil
	case "GOOD":
		return ConditionGood, nil
	case "FAIR":
		return ConditionFair, nil
	}
	return 0, fmt.Errorf("unknown item condition %q", s)
}

// ItemType distinguishes fixed-price listings from auctions.
type ItemType int

const (
	ItemTypeFixedPrice ItemType = iota + 1
	ItemTypeAuction
)

// String returns the wire name of the item type.
func (t ItemType) String() string {
	switch t {
	case ItemTypeFixedPrice:
		return "FIXED_PRICE"
	case ItemTypeAuction:
		return "AUCTION"
	default:
		return fmt.Sprintf("ItemType(%d)", int(t))
	}
}

// Valid reports whether t is one of the declared item types.
func (t ItemType) Valid() bool {
	return t == ItemTypeFixedPrice || t == ItemTypeAuction
}

// ParseItemType maps a wire name to an ItemType.
func ParseItemType(s string) (ItemType, error) {
	switch s {
	case "FIXED_PRICE":
		return ItemTypeFixedPrice, nil
	case "AUCTION":
		return ItemTypeAuction, nil
	}
	return 0, fmt.Errorf("unknown item type %q", s)
}

// Status is the moderation and sale lifecycle of a listing.
type Status int

const (
	StatusPending Status = iota + 1
	StatusApproved
	StatusActive
	StatusSold
	StatusCompleted
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusApproved:
		return "APPROVED"
	case StatusActive:
		return "ACTIVE"
	case StatusSold:
		return "SOLD"
	case StatusCompleted:
		return "COMPLETED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusCompleted
}

// ParseStatus maps a wire name to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "PENDING":
		return StatusPending, nil
	case "APPROVED":
		return StatusApproved, nil
	case "ACTIVE":
		return StatusActive, nil
	case "SOLD":
		return StatusSold, nil
	case "COMPLETED":
		return StatusCompleted, nil
	}
	return 0, fmt.Errorf("unknown item status %q", s)
}

// OrderStatus tracks an order from checkout to pickup.
type OrderStatus int

const (
	OrderPending OrderStatus = iota + 1
	OrderConfirmed
	OrderCompleted
	OrderCancelled
)

// String returns the wire name of the order status.
func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "PENDING"
	case OrderConfirmed:
		return "CONFIRMED"
	case OrderCompleted:
		return "COMPLETED"
	case OrderCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("OrderStatus(%d)", int(s))
	}
}

// Valid reports whether s is one of the declared order statuses.
func (s OrderStatus) Valid() bool {
	return s >= OrderPending && s <= OrderCancelled
}

// ParseOrderStatus maps a wire name to an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch s {
	case "PENDING":
		return OrderPending, nil
	case "CONFIRMED":
		return OrderConfirmed, nil
	case "COMPLETED":
		return OrderCompleted, nil
	case "CANCELLED":
		return OrderCancelled, nil
	}
	return 0, fmt.Errorf("unknown order status %q", s)
}

// NotificationType classifies a notification for display.
type NotificationType int

const (
	NotificationSystem NotificationType = iota + 1
	NotificationBid
	NotificationOrder
	NotificationInfo
)

// String returns the wire name of the notification type.
func (t NotificationType) String() string {
	switch t {
	case NotificationSystem:
		return "SYSTEM"
	case NotificationBid:
		return "BID"
	case NotificationOrder:
		return "ORDER"
	case NotificationInfo:
		return "INFO"
	default:
		return fmt.Sprintf("NotificationType(%d)", int(t))
	}
}

// Valid reports whether t is one of the declared notification types.
func (t NotificationType) Valid() bool {
	return t >= NotificationSystem && t <= NotificationInfo
}

// ParseNotificationType maps a wire name to a NotificationType.
func ParseNotificationType(s string) (NotificationType, error) {
	switch s {
	case "SYSTEM":
		return NotificationSystem, nil
	case "BID":
		return NotificationBid, nil
	case "ORDER":
		return NotificationOrder, nil
	case "INFO":
		return NotificationInfo, nil
	}
	return 0, fmt.Errorf("unknown notification type %q", s)
}

// Role is a marketplace user's role.
type Role int

const (
	RoleBuyer Role = iota + 1
	RoleSeller
	RoleAdmin
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleBuyer:
		return "BUYER"
	case RoleSeller:
		return "SELLER"
	case RoleAdmin:
		return "ADMIN"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole maps a wire name to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "BUYER":
		return RoleBuyer, nil
	case "SELLER":
		return RoleSeller, nil
	case "ADMIN":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}
