package models

import (
	"time"
)

// Order is an imported purchase record subject to screening.
type Order struct {
	ID              int64      `json:"id" db:"id"`
	GroupID         *int64     `json:"group_id" db:"group_id"`
	GroupTourNumber *string    `json:"group_tour_number,omitempty" db:"group_tour_number"`
	Orderer         *string    `json:"orderer" db:"orderer"`
	Consignee       *string    `json:"consignee,omitempty" db:"consignee"`
	ContactPhone    *string    `json:"contact_phone" db:"contact_phone"`
	DetailedAddress *string    `json:"detailed_address" db:"detailed_address"`
	Product         *string    `json:"product,omitempty" db:"product"`
	Checked         bool       `json:"is_blacklist_checked" db:"is_blacklist_checked"`
	IsBlacklisted   bool       `json:"is_blacklisted" db:"is_blacklisted"`
	RiskLevel       *RiskLevel `json:"blacklist_risk_level" db:"blacklist_risk_level"`
	MatchInfo       *string    `json:"blacklist_match_info" db:"blacklist_match_info"`
	MatchDetails    *string    `json:"blacklist_match_details" db:"blacklist_match_details"`
	CheckedAt       *time.Time `json:"blacklist_checked_at" db:"blacklist_checked_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// View projects the fields the matcher reads.
func (o Order) View() OrderView {
	return OrderView{
		ContactPhone:    o.ContactPhone,
		OrdererName:     o.Orderer,
		DetailedAddress: o.DetailedAddress,
		Checked:         o.Checked,
	}
}

// OrderView is the matcher's read-only view of an order. Nil fields carry no signal.
type OrderView struct {
	ContactPhone    *string `json:"contact_phone"`
	OrdererName     *string `json:"orderer_name"`
	DetailedAddress *string `json:"detailed_address"`
	Checked         bool    `json:"checked"`
}

// DetectionOutcome holds the fields a scan writes back onto one order.
type DetectionOutcome struct {
	OrderID       int64         `json:"order_id"`
	IsBlacklisted bool          `json:"is_blacklisted"`
	RiskLevel     RiskLevel     `json:"risk_level"`
	MatchInfo     string        `json:"match_info"`
	MatchDetails  string        `json:"match_details"`
	Matches       []MatchResult `json:"matches"`
	CheckedAt     time.Time     `json:"checked_at"`
}

// Apply copies the outcome onto the order, replacing any prior verdict.
func (d DetectionOutcome) Apply(o *Order) {
	risk := d.RiskLevel
	info := d.MatchInfo
	details := d.MatchDetails
	checkedAt := d.CheckedAt

	o.Checked = true
	o.IsBlacklisted = d.IsBlacklisted
	o.RiskLevel = &risk
	o.MatchInfo = &info
	o.MatchDetails = &details
	o.CheckedAt = &checkedAt
}

// ResultFilter narrows detection result listings.
type ResultFilter struct {
	RiskLevel RiskLevel
	// All includes clean and unchecked orders when no level is given;
	// otherwise only flagged ones.
	All bool
}
