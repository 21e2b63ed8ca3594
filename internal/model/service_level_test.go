package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDefaultCatalog_OrderedByPrice(t *testing.T) {
	levels := DefaultCatalog().Levels()

	var names []string
	for _, l := range levels {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{
		ServiceLevelBronze,
		ServiceLevelSilver,
		ServiceLevelGold,
		ServiceLevelUnlimited,
		ServiceLevelEnterprise,
	}, names)
}

func TestCatalog_LookupIgnoresCase(t *testing.T) {
	catalog := DefaultCatalog()

	for _, name := range []string{"BRONZE", "bronze", "Bronze", "bRoNzE"} {
		l, ok := catalog.Lookup(name)
		assert.True(t, ok, name)
		assert.Equal(t, ServiceLevelBronze, l.Name)
	}

	_, ok := catalog.Lookup("Platinum")
	assert.False(t, ok)
	_, ok = catalog.Lookup("")
	assert.False(t, ok)
}

func TestCatalog_LevelsIsACopy(t *testing.T) {
	catalog := DefaultCatalog()

	levels := catalog.Levels()
	levels[0].Name = "changed"

	assert.Equal(t, ServiceLevelBronze, catalog.Levels()[0].Name)
}

func TestNewCatalog_SortsInput(t *testing.T) {
	catalog := NewCatalog(
		ServiceLevel{Name: "b", FlatPrice: decimal.NewFromInt(3)},
		ServiceLevel{Name: "a", FlatPrice: decimal.NewFromInt(1)},
	)
	assert.Equal(t, "a", catalog.Levels()[0].Name)
}

func TestServiceLevel_HasUserCap(t *testing.T) {
	catalog := DefaultCatalog()

	tests := map[string]bool{
		ServiceLevelBronze:     true,
		ServiceLevelSilver:     true,
		ServiceLevelGold:       true,
		ServiceLevelUnlimited:  false,
		ServiceLevelEnterprise: false,
	}
	for name, want := range tests {
		l, _ := catalog.Lookup(name)
		assert.Equal(t, want, l.HasUserCap(), name)
	}
}
