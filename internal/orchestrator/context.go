package orchestrator

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// OperationContext is the in-memory state of one in-flight operation. The
// handoff flag is scoped here, not global: two concurrent operations must
// not see each other's network changes as expected.
type OperationContext struct {
	ID   string
	Kind string
	User common.Address

	mu             sync.Mutex
	handoffPending bool
}

// BeginHandoff marks that the orchestrator itself is about to change the
// wallet's network. While set, chain-change notifications for this
// operation are expected and must not be treated as user interference.
func (c *OperationContext) BeginHandoff() {
	c.mu.Lock()
	c.handoffPending = true
	c.mu.Unlock()
}

// EndHandoff clears the expected-network-change flag.
func (c *OperationContext) EndHandoff() {
	c.mu.Lock()
	c.handoffPending = false
	c.mu.Unlock()
}

// HandoffPending reports whether this operation is mid network change.
func (c *OperationContext) HandoffPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handoffPending
}

// ActiveOperations tracks in-flight operations, one per user address.
// Serializing per user keeps a second request from racing the wallet
// session the first one is driving.
type ActiveOperations struct {
	mu     sync.Mutex
	byUser map[common.Address]*OperationContext
}

// NewActiveOperations creates an empty registry.
func NewActiveOperations() *ActiveOperations {
	return &ActiveOperations{byUser: make(map[common.Address]*OperationContext)}
}

// Begin registers an operation for user, rejecting it when one is already
// in flight.
func (a *ActiveOperations) Begin(user common.Address, id, kind string) (*OperationContext, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.byUser[user]; ok {
		return nil, validationErrorf("operation %s is already in progress for %s", existing.ID, user.Hex())
	}
	opCtx := &OperationContext{ID: id, Kind: kind, User: user}
	a.byUser[user] = opCtx
	return opCtx, nil
}

// End removes user's active operation.
func (a *ActiveOperations) End(user common.Address) {
	a.mu.Lock()
	delete(a.byUser, user)
	a.mu.Unlock()
}

// Get returns user's active operation context, or nil.
func (a *ActiveOperations) Get(user common.Address) *OperationContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.byUser[user]
}

// ExpectsNetworkChange reports whether any in-flight operation is mid
// handoff, in which case a wallet chain-change notification is the
// orchestrator's own doing.
func (a *ActiveOperations) ExpectsNetworkChange() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, opCtx := range a.byUser {
		if opCtx.HandoffPending() {
			return true
		}
	}
	return false
}
