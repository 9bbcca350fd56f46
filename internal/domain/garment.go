package domain

import "time"

// GarmentCategory enumerates catalog sections.
type GarmentCategory string

const (
	CategoryShirts      GarmentCategory = "Shirts"
	CategoryPants       GarmentCategory = "Pants"
	CategoryShoes       GarmentCategory = "Shoes"
	CategoryJackets     GarmentCategory = "Jackets"
	CategoryAccessories GarmentCategory = "Accessories"
)

// MaxSelections caps how many garments a single try-on may combine.
const MaxSelections = 4

// Garment is a catalog item. PromptFragment is the descriptor handed to the
// generation service, in catalog order.
type Garment struct {
	ID             string
	Name           string
	Category       GarmentCategory
	PriceCents     int
	Description    string
	ImageURL       string
	PromptFragment string
	CreatedAt      time.Time
}

// ValidCategory reports whether c is one of the known catalog sections.
func ValidCategory(c GarmentCategory) bool {
	switch c {
	case CategoryShirts, CategoryPants, CategoryShoes, CategoryJackets, CategoryAccessories:
		return true
	}
	return false
}
