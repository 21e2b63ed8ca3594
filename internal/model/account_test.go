package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccount_HasMaxUsers(t *testing.T) {
	gold, _ := DefaultCatalog().Lookup(ServiceLevelGold)
	account := &Account{ServiceLevel: gold}

	assert.False(t, account.HasMaxUsers())
	account.Users = []*User{{ID: "1"}}
	assert.False(t, account.HasMaxUsers())
	account.Users = append(account.Users, &User{ID: "2"})
	assert.True(t, account.HasMaxUsers())
}

func TestAccount_SurchargedTierNeverFull(t *testing.T) {
	unlimited, _ := DefaultCatalog().Lookup(ServiceLevelUnlimited)
	account := &Account{ServiceLevel: unlimited}
	for i := 0; i < 50; i++ {
		account.Users = append(account.Users, &User{})
	}
	assert.False(t, account.HasMaxUsers())
}

func TestAccount_Access(t *testing.T) {
	account := &Account{
		OwnerID: "owner",
		Users:   []*User{{ID: "member", Email: "m@example.com"}},
	}

	assert.True(t, account.IsAccessibleBy("owner"))
	assert.True(t, account.IsAccessibleBy("member"))
	assert.False(t, account.IsAccessibleBy("stranger"))
	assert.True(t, account.HasMember("m@example.com"))
	assert.False(t, account.HasMember("x@example.com"))
}

func TestAccount_CloneIsIndependent(t *testing.T) {
	account := &Account{
		Users:     []*User{{ID: "1"}},
		Documents: []*Document{{Name: "a"}},
	}

	c := account.Clone()
	c.Users = append(c.Users, &User{ID: "2"})
	c.Documents = c.Documents[:0]
	c.Version++

	assert.Len(t, account.Users, 1)
	assert.Len(t, account.Documents, 1)
	assert.Equal(t, 0, account.Version)
	assert.True(t, account.HasDocument("a"))
}
