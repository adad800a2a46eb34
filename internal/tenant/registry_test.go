package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fitdesk/fitdesk/internal/audit"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Tenant, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) GetByRoutingKey(ctx context.Context, routingKey string) (*Tenant, error) {
	args := m.Called(ctx, routingKey)
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) GetByOwner(ctx context.Context, ownerPrincipalID string) (*Tenant, error) {
	args := m.Called(ctx, ownerPrincipalID)
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*Tenant), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

// TestPurpose: Validates that center registration generates UUIDv7 IDs and claims the normalized routing key.
// Scope: Unit Test
// Security: Routing keys are the tenant boundary on the wire; they must be normalized and unique.
// Expected: A new active tenant with a valid UUIDv7 ID and the lowercased routing key.
// Test Case ID: REG-01
func TestRegistry_Register_UUIDv7(t *testing.T) {
	repo := new(mockRepo)
	auditLogger := new(mockAudit)
	registry := NewRegistry(repo, auditLogger)
	ctx := context.Background()

	repo.On("GetByRoutingKey", ctx, "powerfit").Return((*Tenant)(nil), ErrTenantNotFound)
	repo.On("Create", ctx, mock.MatchedBy(func(tn *Tenant) bool {
		uid, err := uuid.Parse(tn.ID)
		if err != nil {
			return false
		}
		return uid.Version() == 7 && tn.RoutingKey == "powerfit" && tn.Active
	})).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeTenantRegistered
	})).Return()

	tn, err := registry.Register(ctx, "PowerFit Gym", "  PowerFit  ", "owner-1")
	assert.NoError(t, err)
	assert.Equal(t, "powerfit", tn.RoutingKey)
	assert.True(t, tn.Active)
	repo.AssertExpectations(t)
	auditLogger.AssertExpectations(t)
}

// TestPurpose: Validates that a claimed routing key cannot be registered twice.
// Scope: Unit Test
// Security: Routing key uniqueness prevents one center from shadowing another's subdomain.
// Expected: Registration fails with ErrRoutingKeyTaken and no tenant is created.
// Test Case ID: REG-02
func TestRegistry_Register_RoutingKeyTaken(t *testing.T) {
	repo := new(mockRepo)
	auditLogger := new(mockAudit)
	registry := NewRegistry(repo, auditLogger)
	ctx := context.Background()

	existing := &Tenant{ID: "t-1", RoutingKey: "powerfit"}
	repo.On("GetByRoutingKey", ctx, "powerfit").Return(existing, nil)

	_, err := registry.Register(ctx, "Another Gym", "powerfit", "owner-2")
	assert.ErrorIs(t, err, ErrRoutingKeyTaken)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegistry_Register_ReservedAndInvalidKeys(t *testing.T) {
	repo := new(mockRepo)
	registry := NewRegistry(repo, new(mockAudit))
	ctx := context.Background()

	_, err := registry.Register(ctx, "Gym", "www", "owner")
	assert.ErrorIs(t, err, ErrRoutingKeyReserved)

	_, err = registry.Register(ctx, "Gym", "-bad-", "owner")
	assert.ErrorIs(t, err, ErrRoutingKeyInvalid)

	_, err = registry.Register(ctx, "Gym", "no_underscores", "owner")
	assert.ErrorIs(t, err, ErrRoutingKeyInvalid)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegistry_CheckAvailability(t *testing.T) {
	repo := new(mockRepo)
	registry := NewRegistry(repo, new(mockAudit))
	ctx := context.Background()

	repo.On("GetByRoutingKey", ctx, "freekey").Return((*Tenant)(nil), ErrTenantNotFound)
	available, err := registry.CheckAvailability(ctx, "FreeKey")
	assert.NoError(t, err)
	assert.True(t, available)

	repo.On("GetByRoutingKey", ctx, "taken").Return(&Tenant{ID: "t-1"}, nil)
	available, err = registry.CheckAvailability(ctx, "taken")
	assert.NoError(t, err)
	assert.False(t, available)

	// Reserved and malformed keys are unavailable, not errors.
	available, err = registry.CheckAvailability(ctx, "api")
	assert.NoError(t, err)
	assert.False(t, available)

	available, err = registry.CheckAvailability(ctx, "-nope")
	assert.NoError(t, err)
	assert.False(t, available)
}

// TestPurpose: Validates that LookupActive filters deactivated centers.
// Scope: Unit Test
// Security: A deactivated center must stop resolving; stale routing would let traffic reach retained data.
// Expected: An inactive tenant resolves to ErrTenantInactive.
// Test Case ID: REG-03
func TestRegistry_LookupActive_InactiveTenant(t *testing.T) {
	repo := new(mockRepo)
	registry := NewRegistry(repo, new(mockAudit))
	ctx := context.Background()

	repo.On("GetByRoutingKey", ctx, "closedgym").Return(&Tenant{ID: "t-9", RoutingKey: "closedgym", Active: false}, nil)

	_, err := registry.LookupActive(ctx, "closedgym")
	assert.ErrorIs(t, err, ErrTenantInactive)
}

// TestPurpose: Validates that only the owner may move a center to a new routing key.
// Scope: Unit Test
// Security: Routing key changes re-route all of a center's traffic; ownership is the authorization boundary.
// Expected: A non-owner gets ErrNotOwner; the owner succeeds and the tenant ID is unchanged.
// Test Case ID: REG-04
func TestRegistry_ChangeRoutingKey_OwnerOnly(t *testing.T) {
	repo := new(mockRepo)
	auditLogger := new(mockAudit)
	registry := NewRegistry(repo, auditLogger)
	ctx := context.Background()

	tn := &Tenant{ID: "t-1", RoutingKey: "oldkey", OwnerPrincipalID: "owner-1", Active: true}
	repo.On("GetByID", ctx, "t-1").Return(tn, nil)

	_, err := registry.ChangeRoutingKey(ctx, "t-1", "intruder", "newkey")
	assert.ErrorIs(t, err, ErrNotOwner)

	repo.On("GetByRoutingKey", ctx, "newkey").Return((*Tenant)(nil), ErrTenantNotFound)
	repo.On("Update", ctx, mock.MatchedBy(func(updated *Tenant) bool {
		return updated.ID == "t-1" && updated.RoutingKey == "newkey"
	})).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeTenantRoutingKeyChanged
	})).Return()

	updated, err := registry.ChangeRoutingKey(ctx, "t-1", "owner-1", "NewKey")
	assert.NoError(t, err)
	assert.Equal(t, "t-1", updated.ID)
	assert.Equal(t, "newkey", updated.RoutingKey)
}

func TestRegistry_SetActive_Audited(t *testing.T) {
	repo := new(mockRepo)
	auditLogger := new(mockAudit)
	registry := NewRegistry(repo, auditLogger)
	ctx := context.Background()

	repo.On("SetActive", ctx, "t-1", false).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeTenantDeactivated && e.ActorID == "admin-1"
	})).Return()

	err := registry.SetActive(ctx, "t-1", false, "admin-1")
	assert.NoError(t, err)
	auditLogger.AssertExpectations(t)
}

func TestRegistry_AssignOwner(t *testing.T) {
	repo := new(mockRepo)
	registry := NewRegistry(repo, new(mockAudit))
	ctx := context.Background()

	unowned := &Tenant{ID: "t-1", RoutingKey: "gym"}
	repo.On("GetByID", ctx, "t-1").Return(unowned, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(tn *Tenant) bool {
		return tn.OwnerPrincipalID == "owner-1"
	})).Return(nil)

	assert.NoError(t, registry.AssignOwner(ctx, "t-1", "owner-1"))

	owned := &Tenant{ID: "t-2", RoutingKey: "other", OwnerPrincipalID: "owner-9"}
	repo.On("GetByID", ctx, "t-2").Return(owned, nil)
	assert.ErrorIs(t, registry.AssignOwner(ctx, "t-2", "someone-else"), ErrNotOwner)
}
