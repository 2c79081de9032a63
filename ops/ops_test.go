package ops_test

import (
	"errors"
	"testing"

	"github.com/zoobzio/facet"
	"github.com/zoobzio/facet/ops"
	facettest "github.com/zoobzio/facet/testing"
)

func TestRequiredRoles(t *testing.T) {
	desc := facettest.MustDescribe[facettest.Customer](t, facet.RoleID)

	tests := []struct {
		name string
		fn   func() error
	}{
		{"rename", func() error { _, err := ops.NewRenamer(desc); return err }},
		{"distinct", func() error { _, err := ops.NewDistinct(desc); return err }},
		{"aggregate", func() error { _, err := ops.NewAggregator(desc); return err }},
		{"lookup", func() error { _, err := ops.NewLookup[facettest.Customer](desc, desc, nil); return err }},
		{"merge", func() error { _, err := ops.Merge[facettest.Customer](desc, nil, nil); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if !errors.Is(err, ops.ErrRoleNotRequested) {
				t.Errorf("error = %v, want ErrRoleNotRequested", err)
			}
		})
	}
}

func TestRequiredRoles_NilDescriptor(t *testing.T) {
	if _, err := ops.NewDistinct(nil); err == nil {
		t.Error("NewDistinct(nil) should fail")
	}
}
