// Package testing provides fixtures and helpers for facet tests.
package testing

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zoobzio/facet"
)

// Customer is the canonical merge fixture: ID is the match key, Name and
// Email are compared for changes, and only Email is written on update.
type Customer struct {
	ID    int    `facet:"id"`
	Name  string `facet:"compare"`
	Email string `facet:"compare,update"`
}

// UntaggedCustomer has Customer's shape with no tags, for side table tests.
type UntaggedCustomer struct {
	ID    int
	Name  string
	Email string
}

// CustomerRoles binds UntaggedCustomer the way Customer's tags do.
func CustomerRoles() *facet.SideTable {
	return facet.NewSideTable().
		Bind("ID", facet.ID()).
		Bind("Name", facet.Compare()).
		Bind("Email", facet.Compare(), facet.Update())
}

// Status is an enum: a named integer with a String method.
type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusClosed:
		return "closed"
	}
	return "unknown"
}

// Account exercises nullable wrappers, decimals, enums, and hidden fields.
type Account struct {
	ID      int64             `facet:"id,key"`
	Balance decimal.Decimal   `facet:"compare,aggregate"`
	Limit   *int32            `facet:"update"`
	Closed  sql.NullTime      `facet:"delete"`
	Score   sql.Null[float64] `facet:"compare"`
	Status  Status            `facet:"compare"`
	Owner   *string           `facet:"rename=owner_name,colmap=owner"`
	Notes   string            `facet:"-"`
	secret  string            //nolint:unused // unexported fields are never catalogued
}

// Sale is the aggregation and deduplication fixture.
type Sale struct {
	Region  string          `facet:"group,distinct"`
	Product string          `facet:"group,distinct"`
	Amount  decimal.Decimal `facet:"aggregate=sum"`
	Units   int             `facet:"aggregate=count"`
	Peak    float64         `facet:"aggregate=max"`
	Low     *float64        `facet:"aggregate=min"`
	Mean    float64         `facet:"aggregate=avg"`
}

// Country is the lookup source fixture: Code is matched against the input
// row's CountryCode and Name is copied into its CountryName.
type Country struct {
	Code string `facet:"match=CountryCode"`
	Name string `facet:"retrieve=CountryName"`
}

// Address is the lookup input fixture.
type Address struct {
	Street      string
	CountryCode string
	CountryName string
}

// Indexed has a parameterised accessor and cannot be catalogued.
type Indexed struct {
	Name string `facet:"id"`
	At   func(i int) string
}

// BadTag declares an unknown role.
type BadTag struct {
	Name string `facet:"bogus"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Dec parses a decimal literal, panicking on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MustDescribe builds the descriptor for T or fails the test.
func MustDescribe[T any](tb testing.TB, roles facet.RoleKind, opts ...facet.Option) *facet.Descriptor {
	tb.Helper()
	d, err := facet.Describe[T](roles, opts...)
	if err != nil {
		tb.Fatalf("Describe[%T]() error: %v", *new(T), err)
	}
	return d
}

// Record builds a dynamic record from alternating name/value pairs.
func Record(tb testing.TB, pairs ...any) *facet.DynamicRecord {
	tb.Helper()
	if len(pairs)%2 != 0 {
		tb.Fatalf("Record() needs name/value pairs, got %d arguments", len(pairs))
	}
	r := facet.NewDynamicRecord()
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			tb.Fatalf("Record() name at %d is %T, want string", i, pairs[i])
		}
		if err := r.SetAny(name, pairs[i+1]); err != nil {
			tb.Fatalf("Record() error: %v", err)
		}
	}
	return r
}
