package services

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/namhsc/tvtl-sub000/domain"
)

// routeModel matches a role against a route pattern; :param segments in the
// route table are expressed with keyMatch2.
const routeModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch2(r.obj, p.obj)
`

// PolicyServiceImpl implements domain.PolicyService using Casbin with an
// in-memory model. Policies are seeded once from the route table; nothing
// is persisted.
type PolicyServiceImpl struct {
	enforcer *casbin.Enforcer
}

// NewPolicyService creates a policy service seeded from the route table.
func NewPolicyService(routes []domain.RouteRule) (*PolicyServiceImpl, error) {
	m, err := model.NewModelFromString(routeModel)
	if err != nil {
		return nil, fmt.Errorf("failed to build route model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to build enforcer: %w", err)
	}

	svc := &PolicyServiceImpl{enforcer: enforcer}
	for _, rule := range routes {
		for _, role := range rule.Roles {
			if err := svc.AddRule(role, rule.Path); err != nil {
				return nil, err
			}
		}
	}
	return svc, nil
}

// AddRule implements domain.PolicyService
func (p *PolicyServiceImpl) AddRule(role, path string) error {
	if _, err := p.enforcer.AddPolicy(role, path); err != nil {
		return fmt.Errorf("failed to add policy: %w", err)
	}
	return nil
}

// Allow implements domain.PolicyService
func (p *PolicyServiceImpl) Allow(role, path string) (bool, error) {
	return p.enforcer.Enforce(role, path)
}

// Rules implements domain.PolicyService
func (p *PolicyServiceImpl) Rules() [][]string {
	rules, err := p.enforcer.GetPolicy()
	if err != nil {
		return nil
	}
	return rules
}

var _ domain.PolicyService = (*PolicyServiceImpl)(nil)
