package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	OwnerID          string    `db:"owner_id"`
	ServiceLevelName string    `db:"service_level"`
	Version          int       `db:"version"` // Bumped on every committed update
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`

	// Resolved by the repository (not columns on accounts)
	Owner        *User        `db:"-"`
	ServiceLevel ServiceLevel `db:"-"`
	Users        []*User      `db:"-"`
	Documents    []*Document  `db:"-"`
}

// HasMaxUsers reports whether no further member may be added under the
// current tier. Surcharged tiers never fill up.
func (a *Account) HasMaxUsers() bool {
	if !a.ServiceLevel.HasUserCap() {
		return false
	}
	return len(a.Users) >= a.ServiceLevel.MaxUsers
}

func (a *Account) Rate() decimal.Decimal {
	return CalculateRate(a.ServiceLevel, len(a.Users))
}

func (a *Account) HasMember(email string) bool {
	for _, u := range a.Users {
		if u.Email == email {
			return true
		}
	}
	return false
}

func (a *Account) MemberByID(id string) *User {
	for _, u := range a.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// IsAccessibleBy reports whether the user owns or belongs to the account.
func (a *Account) IsAccessibleBy(userID string) bool {
	return a.OwnerID == userID || a.MemberByID(userID) != nil
}

func (a *Account) HasDocument(name string) bool {
	return a.DocumentByName(name) != nil
}

func (a *Account) DocumentByName(name string) *Document {
	for _, d := range a.Documents {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Clone copies the account and its member and document lists so that a
// modified copy can be committed while the original stays untouched.
func (a *Account) Clone() *Account {
	c := *a
	c.Users = append([]*User(nil), a.Users...)
	c.Documents = append([]*Document(nil), a.Documents...)
	return &c
}
