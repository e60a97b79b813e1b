// Package pricing derives the identity and price fields a product carries
// after a save: slug, availability, the gift-set flag and gift-set pricing.
//
// Everything here is pure. Resolving the products a gift set references is
// the caller's job; the results are handed in as Components.
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Prior is the last persisted state of the fields derivation depends on.
type Prior struct {
	Name         string
	CategoryID   uint
	CategoryName string
	Slug         string
	IsGiftSet    bool
}

// Input is the draft being saved. ExplicitGiftSet is nil when the caller did
// not send is_gift_set in this write.
type Input struct {
	Name               string
	CategoryID         uint
	CategoryName       string
	Stock              int
	ExplicitGiftSet    *bool
	GiftSetItems       []model.GiftSetItem
	GiftSetDiscount    decimal.Decimal
	GiftSetManualPrice *decimal.Decimal

	// Prior is nil on create.
	Prior *Prior
}

// Component is the pricing view of a product referenced by a gift set.
type Component struct {
	Price decimal.Decimal
	Sizes []model.ProductSize
}

// Components maps product id to its resolved component. Absent ids are
// unresolved and contribute nothing.
type Components map[uint]Component

// GiftSetPricing is the outcome of aggregating a gift set's items.
type GiftSetPricing struct {
	TotalPrice      decimal.Decimal
	DiscountedPrice decimal.Decimal
	Price           decimal.Decimal
	RegularPrice    decimal.Decimal
	UnresolvedItems int
}

// Fields holds every derived value for one save.
type Fields struct {
	Slug        string
	SlugChanged bool
	InStock     bool
	IsGiftSet   bool
	// GiftSet is nil when the aggregator did not run; stored gift-set
	// totals and prices are then left as they are.
	GiftSet *GiftSetPricing
}

// NewInput builds the derivation input for p; prior is nil on create.
func NewInput(p *model.Product, prior *model.Product, explicitGiftSet *bool) Input {
	in := Input{
		Name:               p.Name,
		CategoryID:         p.CategoryID,
		CategoryName:       p.CategoryName,
		Stock:              p.Stock,
		ExplicitGiftSet:    explicitGiftSet,
		GiftSetItems:       p.GiftSetItems,
		GiftSetDiscount:    p.GiftSetDiscount,
		GiftSetManualPrice: p.GiftSetManualPrice,
	}
	if prior != nil {
		in.Prior = &Prior{
			Name:         prior.Name,
			CategoryID:   prior.CategoryID,
			CategoryName: prior.CategoryName,
			Slug:         prior.Slug,
			IsGiftSet:    prior.IsGiftSet,
		}
	}
	return in
}

// ComponentOf is the pricing view of p when a gift set references it.
func ComponentOf(p *model.Product) Component {
	return Component{Price: p.Price, Sizes: p.Sizes}
}

// Derive runs slug generation, stock normalization, gift-set inference and
// gift-set aggregation, in that order.
func Derive(in Input, components Components) Fields {
	f := Fields{
		InStock:   InStock(in.Stock),
		IsGiftSet: InferGiftSet(in),
	}

	if SlugDirty(in) {
		f.Slug = ProductSlug(in.Name, in.CategoryName)
		f.SlugChanged = in.Prior == nil || f.Slug != in.Prior.Slug
	} else {
		f.Slug = in.Prior.Slug
	}

	if f.IsGiftSet && len(in.GiftSetItems) > 0 {
		giftSet := AggregateGiftSet(in, components)
		f.GiftSet = &giftSet
	}
	return f
}

// SlugDirty reports whether the slug has to be regenerated.
func SlugDirty(in Input) bool {
	if in.Prior == nil {
		return true
	}
	return in.Name != in.Prior.Name ||
		in.CategoryID != in.Prior.CategoryID ||
		in.CategoryName != in.Prior.CategoryName
}

func InStock(stock int) bool {
	return stock > 0
}

// InferGiftSet can switch the flag on when items are present but never
// switches it off; only an explicit false does that.
func InferGiftSet(in Input) bool {
	flag := false
	if in.Prior != nil {
		flag = in.Prior.IsGiftSet
	}
	if in.ExplicitGiftSet != nil {
		flag = *in.ExplicitGiftSet
	}
	explicitlyOff := in.ExplicitGiftSet != nil && !*in.ExplicitGiftSet
	if len(in.GiftSetItems) > 0 && !explicitlyOff {
		flag = true
	}
	return flag
}

// NeedsComponents reports whether Derive will aggregate the gift set and so
// needs its referenced products resolved.
func NeedsComponents(in Input) bool {
	return len(in.GiftSetItems) > 0 && InferGiftSet(in)
}

// UnitPrice resolves the price of one unit of c: the price of selectedSize
// when c has that size, otherwise the flat price.
func UnitPrice(c Component, selectedSize string) decimal.Decimal {
	if selectedSize != "" {
		for _, s := range c.Sizes {
			if s.Size == selectedSize {
				return s.Price
			}
		}
	}
	if c.Price.IsPositive() {
		return c.Price
	}
	return decimal.Zero
}

// AggregateGiftSet prices a gift set from its items. Unresolved items add
// zero to the total and are counted.
func AggregateGiftSet(in Input, components Components) GiftSetPricing {
	var result GiftSetPricing

	total := decimal.Zero
	for _, item := range in.GiftSetItems {
		component, ok := components[item.ProductID]
		if !ok {
			result.UnresolvedItems++
			continue
		}
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		total = total.Add(UnitPrice(component, item.SelectedSize).Mul(decimal.NewFromInt(int64(quantity))))
	}

	result.TotalPrice = total
	result.DiscountedPrice = Discounted(total, in.GiftSetDiscount)
	result.Price = result.DiscountedPrice
	if in.GiftSetManualPrice != nil && in.GiftSetManualPrice.IsPositive() {
		result.Price = *in.GiftSetManualPrice
	}
	result.RegularPrice = total
	return result
}

// Discounted applies a percentage discount, rounded to two decimal places.
func Discounted(total, discountPercent decimal.Decimal) decimal.Decimal {
	factor := one.Sub(discountPercent.Div(hundred))
	return total.Mul(factor).Round(2)
}

// Apply copies the derived values onto p.
func (f Fields) Apply(p *model.Product) {
	p.Slug = f.Slug
	p.InStock = f.InStock
	p.IsGiftSet = f.IsGiftSet
	if f.GiftSet == nil {
		return
	}
	p.GiftSetTotalPrice = f.GiftSet.TotalPrice
	p.GiftSetDiscountedPrice = f.GiftSet.DiscountedPrice
	p.Price = f.GiftSet.Price
	p.RegularPrice = f.GiftSet.RegularPrice
}
