package model

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Unlimited marks a quota without an upper bound.
const Unlimited = -1

const (
	ServiceLevelBronze     = "Bronze"
	ServiceLevelSilver     = "Silver"
	ServiceLevelGold       = "Gold"
	ServiceLevelUnlimited  = "Unlimited"
	ServiceLevelEnterprise = "Enterprise"
)

// ServiceLevel is a subscription tier. Tiers with a SurchargeStep have no
// member cap and are billed extra as membership grows instead.
type ServiceLevel struct {
	Name               string
	FlatPrice          decimal.Decimal
	MaxUploads         int
	MaxUploadsPerMonth int
	MaxUsers           int
	AdsEnabled         bool

	// One currency unit per SurchargeStep members beyond SurchargeOffset
	SurchargeOffset int
	SurchargeStep   int
}

// HasUserCap reports whether MaxUsers is enforced for this tier.
func (l ServiceLevel) HasUserCap() bool {
	return l.SurchargeStep == 0 && l.MaxUsers != Unlimited
}

// Catalog is the immutable set of tiers on offer.
type Catalog struct {
	levels []ServiceLevel
	byName map[string]ServiceLevel
}

// NewCatalog builds a catalog ordered by flat price ascending.
func NewCatalog(levels ...ServiceLevel) *Catalog {
	c := &Catalog{
		levels: make([]ServiceLevel, len(levels)),
		byName: make(map[string]ServiceLevel, len(levels)),
	}
	copy(c.levels, levels)
	sort.SliceStable(c.levels, func(i, j int) bool {
		return c.levels[i].FlatPrice.LessThan(c.levels[j].FlatPrice)
	})
	for _, level := range c.levels {
		c.byName[foldName(level.Name)] = level
	}
	return c
}

// DefaultCatalog returns the five standard tiers.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		ServiceLevel{
			Name:               ServiceLevelBronze,
			FlatPrice:          decimal.Zero,
			MaxUploads:         2,
			MaxUploadsPerMonth: 2,
			MaxUsers:           1,
			AdsEnabled:         true,
		},
		ServiceLevel{
			Name:               ServiceLevelSilver,
			FlatPrice:          decimal.NewFromInt(1),
			MaxUploads:         5,
			MaxUploadsPerMonth: 10,
			MaxUsers:           1,
			AdsEnabled:         true,
		},
		ServiceLevel{
			Name:               ServiceLevelGold,
			FlatPrice:          decimal.NewFromInt(2),
			MaxUploads:         20,
			MaxUploadsPerMonth: 50,
			MaxUsers:           2,
		},
		ServiceLevel{
			Name:               ServiceLevelUnlimited,
			FlatPrice:          decimal.NewFromInt(5),
			MaxUploads:         Unlimited,
			MaxUploadsPerMonth: Unlimited,
			MaxUsers:           10,
			SurchargeOffset:    1,
			SurchargeStep:      10,
		},
		// The offset of 181 means the first surcharge unit applies at 201
		// members, not 200.
		ServiceLevel{
			Name:               ServiceLevelEnterprise,
			FlatPrice:          decimal.NewFromInt(15),
			MaxUploads:         Unlimited,
			MaxUploadsPerMonth: Unlimited,
			MaxUsers:           200,
			SurchargeOffset:    181,
			SurchargeStep:      20,
		},
	)
}

// Lookup resolves a tier by name, ignoring case.
func (c *Catalog) Lookup(name string) (ServiceLevel, bool) {
	level, ok := c.byName[foldName(name)]
	return level, ok
}

// Levels returns a copy of all tiers, cheapest first.
func (c *Catalog) Levels() []ServiceLevel {
	levels := make([]ServiceLevel, len(c.levels))
	copy(levels, c.levels)
	return levels
}

// A Caser is stateful, so each call gets its own.
func foldName(name string) string {
	return cases.Fold().String(name)
}
