package domain

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Role identifies a capability class. Role membership is an explicit set of
// principals, checked at the start of each restricted operation.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleRiskAssessor Role = "risk_assessor"
)

// AccessList maps roles to the set of addresses holding them.
type AccessList struct {
	mu      sync.RWMutex
	members map[Role]map[common.Address]struct{}
}

// NewAccessList creates an empty AccessList.
func NewAccessList() *AccessList {
	return &AccessList{
		members: make(map[Role]map[common.Address]struct{}),
	}
}

// Grant adds addr to the given role.
func (a *AccessList) Grant(role Role, addr common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.members[role] == nil {
		a.members[role] = make(map[common.Address]struct{})
	}
	a.members[role][addr] = struct{}{}
}

// Revoke removes addr from the given role.
func (a *AccessList) Revoke(role Role, addr common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.members[role], addr)
}

// Authorize returns ErrUnauthorized unless addr holds the given role.
func (a *AccessList) Authorize(role Role, addr common.Address) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, ok := a.members[role][addr]; !ok {
		return ErrUnauthorized
	}
	return nil
}

// Gate blocks risk-gated operations while a process-wide stop condition is
// active. Check returns nil when operations may proceed.
type Gate interface {
	Check(ctx context.Context) error
}
