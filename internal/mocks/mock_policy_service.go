package mocks

import (
	"github.com/namhsc/tvtl-sub000/domain"
)

// MockPolicyService implements domain.PolicyService for testing
type MockPolicyService struct {
	AddRuleFunc func(role, path string) error
	AllowFunc   func(role, path string) (bool, error)
	RulesFunc   func() [][]string

	rules [][]string
}

// NewMockPolicyService creates a new MockPolicyService with default behaviors
func NewMockPolicyService() *MockPolicyService {
	return &MockPolicyService{}
}

// AddRule records a role/path rule
func (m *MockPolicyService) AddRule(role, path string) error {
	if m.AddRuleFunc != nil {
		return m.AddRuleFunc(role, path)
	}
	m.rules = append(m.rules, []string{role, path})
	return nil
}

// Allow checks recorded rules with exact path matching
func (m *MockPolicyService) Allow(role, path string) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(role, path)
	}
	for _, rule := range m.rules {
		if rule[0] == role && rule[1] == path {
			return true, nil
		}
	}
	return false, nil
}

// Rules returns the recorded rules
func (m *MockPolicyService) Rules() [][]string {
	if m.RulesFunc != nil {
		return m.RulesFunc()
	}
	return m.rules
}

// Compile-time interface compliance verification
var _ domain.PolicyService = (*MockPolicyService)(nil)
