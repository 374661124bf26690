package catalog

import (
	"errors"
	"fmt"
)

var ErrInvalidModeration = errors.New("catalog: moderation action must be approve or reject")

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}

type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
)

func (a ModerationAction) Validate() error {
	if a != ActionApprove && a != ActionReject {
		return ErrInvalidModeration
	}
	return nil
}

type ReviewStats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// ErrUnknownResource is returned for admin collections the API does not expose.
var ErrUnknownResource = errors.New("catalog: unknown admin resource")

// Resource is an admin CRUD collection.
type Resource string

const (
	ResourceSections   Resource = "sections"
	ResourceCategories Resource = "categories"
	ResourceProducts   Resource = "products"
	ResourceBadges     Resource = "badges"
	ResourcePromoCodes Resource = "promo-codes"
	ResourceBanners    Resource = "banners"
)

var resources = []Resource{
	ResourceSections, ResourceCategories, ResourceProducts,
	ResourceBadges, ResourcePromoCodes, ResourceBanners,
}

func (r Resource) Validate() error {
	for _, known := range resources {
		if r == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownResource, string(r))
}
