package authz

import (
	"fmt"

	"github.com/fastship-next/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Policies []Policy
}

// BuiltinRoleSeeds 卖家与配送员的路由权限矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleSeller,
			Policies: []Policy{
				{Object: "/seller/me", Action: "GET"},
				{Object: "/seller/logout", Action: "POST"},
				{Object: "/seller/shipments", Action: "GET"},
				{Object: "/seller/shipments", Action: "POST"},
				{Object: "/seller/shipments/:id", Action: "GET"},
				{Object: "/seller/shipments/:id/timeline", Action: "GET"},
				{Object: "/seller/shipments/:id/cancel", Action: "POST"},
				{Object: "/seller/shipments/:id/tags", Action: "POST"},
				{Object: "/seller/shipments/:id/tags/:tag", Action: "DELETE"},
			},
		},
		{
			Role: constants.RolePartner,
			Policies: []Policy{
				{Object: "/partner/me", Action: "GET"},
				{Object: "/partner/me", Action: "PATCH"},
				{Object: "/partner/logout", Action: "POST"},
				{Object: "/partner/shipments", Action: "GET"},
				{Object: "/partner/shipments/:id", Action: "GET"},
				{Object: "/partner/shipments/:id", Action: "PATCH"},
				{Object: "/partner/shipments/:id/timeline", Action: "GET"},
				{Object: "/partner/shipments/:id/tags", Action: "POST"},
				{Object: "/partner/shipments/:id/tags/:tag", Action: "DELETE"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，已存在的策略保持不变
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
