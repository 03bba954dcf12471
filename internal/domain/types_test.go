package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseRoleNormalizes(t *testing.T) {
	cases := map[string]Role{
		"admin":     RoleAdmin,
		"  ADMIN  ": RoleAdmin,
		"Root":      RoleRoot,
		"customer":  RoleCustomer,
		"cliente":   RoleCustomer,
		"":          RoleUnknown,
		"superuser": RoleUnknown,
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Fatalf("ParseRole(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPaginationNormalize(t *testing.T) {
	p := Pagination{Page: 0, PageSize: 500}.Normalize(20, 200)
	if p.Page != 1 || p.PageSize != 200 {
		t.Fatalf("unexpected pagination %+v", p)
	}
	p = Pagination{Page: 3, PageSize: 0}.Normalize(20, 100)
	if p.PageSize != 20 || p.Offset() != 40 {
		t.Fatalf("unexpected pagination %+v offset=%d", p, p.Offset())
	}
}

func TestErrorHelpersSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", ConflictError{Resource: "flight", Msg: "already cancelled"})
	if !IsConflict(err) || !IsDomain(err) {
		t.Fatalf("expected wrapped conflict to be detected")
	}
	if IsNotFound(err) {
		t.Fatalf("conflict must not look like not found")
	}
	if IsDomain(errors.New("boom")) {
		t.Fatalf("plain error must not be a domain error")
	}
	v := ValidationError{Issues: []FieldIssue{{Field: "origin", Message: "required"}}}
	if got := v.Error(); got != "validation error: origin: required" {
		t.Fatalf("unexpected message %q", got)
	}
}
