package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/fastship-next/internal/constants"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceRoleWithPolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("seller", "/seller/shipments/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}

	allow, err := svc.EnforceRole("seller", "/api/v1/seller/shipments/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceRole("seller", "/api/v1/seller/shipments/42", "DELETE")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}

	if err := svc.RevokeRolePolicy("seller", "/seller/shipments/:id", "GET"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	allow, _ = svc.EnforceRole("seller", "/api/v1/seller/shipments/42", "GET")
	if allow {
		t.Fatalf("expected revoked policy to deny")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/seller/shipments/:id", want: "/seller/shipments/:id"},
		{in: "/partner/shipments/:id", want: "/partner/shipments/:id"},
		{in: "partner/me", want: "/partner/me"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// 重复初始化保持幂等
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	if len(roles) != 2 || roles[0] != "role:partner" || roles[1] != "role:seller" {
		t.Fatalf("unexpected roles: %v", roles)
	}

	cases := []struct {
		role   string
		path   string
		method string
		want   bool
	}{
		{constants.RoleSeller, "/api/v1/seller/shipments", "POST", true},
		{constants.RoleSeller, "/api/v1/seller/shipments/abc/cancel", "POST", true},
		{constants.RoleSeller, "/api/v1/partner/shipments/abc", "PATCH", false},
		{constants.RolePartner, "/api/v1/partner/shipments/abc", "PATCH", true},
		{constants.RolePartner, "/api/v1/partner/shipments/abc/tags/fragile", "DELETE", true},
		{constants.RolePartner, "/api/v1/seller/shipments", "POST", false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceRole(tc.role, tc.path, tc.method)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.method, tc.path, err)
		}
		if allow != tc.want {
			t.Fatalf("%s %s %s: want %v got %v", tc.role, tc.method, tc.path, tc.want, allow)
		}
	}

	policies, err := svc.GetRolePolicies(constants.RolePartner)
	if err != nil {
		t.Fatalf("get role policies failed: %v", err)
	}
	if len(policies) != len(BuiltinRoleSeeds()[1].Policies) {
		t.Fatalf("expected %d partner policies, got %d", len(BuiltinRoleSeeds()[1].Policies), len(policies))
	}
}
