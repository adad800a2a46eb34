package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fitdesk/fitdesk/internal/audit"
	"github.com/fitdesk/fitdesk/internal/member"
	"github.com/fitdesk/fitdesk/internal/plan"
	"github.com/fitdesk/fitdesk/internal/scope"
	"github.com/fitdesk/fitdesk/internal/tenant"
)

type fakeSubStore struct {
	subs        map[string]*Subscription
	failUpdates int
}

func newFakeSubStore(subs ...*Subscription) *fakeSubStore {
	s := &fakeSubStore{subs: make(map[string]*Subscription)}
	for _, sub := range subs {
		s.subs[sub.ID] = sub
	}
	return s
}

func (s *fakeSubStore) List(_ context.Context, f scope.Filter) ([]*Subscription, error) {
	out := []*Subscription{}
	for _, sub := range s.subs {
		if f.TenantID != "" && sub.TenantID != f.TenantID {
			continue
		}
		if v, ok := f.Fields["status"]; ok && string(sub.Status) != v.(string) {
			continue
		}
		if v, ok := f.Fields["end_date_before"]; ok && !sub.EndDate.Before(v.(time.Time)) {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *fakeSubStore) Get(_ context.Context, id string) (*Subscription, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *fakeSubStore) Insert(_ context.Context, sub *Subscription) error {
	s.subs[sub.ID] = sub
	return nil
}

func (s *fakeSubStore) Update(_ context.Context, sub *Subscription, expectedTenantID string) error {
	if s.failUpdates > 0 {
		s.failUpdates--
		return errors.New("store unavailable")
	}
	existing, ok := s.subs[sub.ID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	if expectedTenantID != "" && existing.TenantID != expectedTenantID {
		return ErrSubscriptionNotFound
	}
	s.subs[sub.ID] = sub
	return nil
}

func (s *fakeSubStore) Delete(_ context.Context, id, expectedTenantID string) error {
	delete(s.subs, id)
	return nil
}

type fakeMemberStore struct {
	members map[string]*member.Member
}

func newFakeMemberStore(members ...*member.Member) *fakeMemberStore {
	s := &fakeMemberStore{members: make(map[string]*member.Member)}
	for _, m := range members {
		s.members[m.ID] = m
	}
	return s
}

func (s *fakeMemberStore) List(_ context.Context, f scope.Filter) ([]*member.Member, error) {
	out := []*member.Member{}
	for _, m := range s.members {
		if f.TenantID != "" && m.TenantID != f.TenantID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *fakeMemberStore) Get(_ context.Context, id string) (*member.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, member.ErrMemberNotFound
	}
	return m, nil
}

func (s *fakeMemberStore) Insert(_ context.Context, m *member.Member) error {
	s.members[m.ID] = m
	return nil
}

func (s *fakeMemberStore) Update(_ context.Context, m *member.Member, expectedTenantID string) error {
	if expectedTenantID != "" && s.members[m.ID] != nil && s.members[m.ID].TenantID != expectedTenantID {
		return member.ErrMemberNotFound
	}
	s.members[m.ID] = m
	return nil
}

func (s *fakeMemberStore) Delete(_ context.Context, id, expectedTenantID string) error {
	delete(s.members, id)
	return nil
}

type fakePlanStore struct {
	plans map[string]*plan.Plan
}

func newFakePlanStore(plans ...*plan.Plan) *fakePlanStore {
	s := &fakePlanStore{plans: make(map[string]*plan.Plan)}
	for _, p := range plans {
		s.plans[p.ID] = p
	}
	return s
}

func (s *fakePlanStore) List(_ context.Context, f scope.Filter) ([]*plan.Plan, error) {
	out := []*plan.Plan{}
	for _, p := range s.plans {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakePlanStore) Get(_ context.Context, id string) (*plan.Plan, error) {
	p, ok := s.plans[id]
	if !ok {
		return nil, plan.ErrPlanNotFound
	}
	return p, nil
}

func (s *fakePlanStore) Insert(_ context.Context, p *plan.Plan) error {
	s.plans[p.ID] = p
	return nil
}

func (s *fakePlanStore) Update(_ context.Context, p *plan.Plan, expectedTenantID string) error {
	s.plans[p.ID] = p
	return nil
}

func (s *fakePlanStore) Delete(_ context.Context, id, expectedTenantID string) error {
	delete(s.plans, id)
	return nil
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func quietAudit() *mockAudit {
	a := new(mockAudit)
	a.On("Log", mock.Anything, mock.Anything).Return()
	return a
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusActive))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusActive, StatusExpired))
	assert.True(t, CanTransition(StatusActive, StatusCancelled))

	assert.False(t, CanTransition(StatusPending, StatusExpired))
	assert.False(t, CanTransition(StatusExpired, StatusActive))
	assert.False(t, CanTransition(StatusCancelled, StatusActive))
	assert.False(t, CanTransition(StatusExpired, StatusCancelled))
	assert.False(t, CanTransition(StatusActive, StatusPending))
}

func TestService_Create_DerivesWindowFromPlan(t *testing.T) {
	subs := newFakeSubStore()
	members := newFakeMemberStore(&member.Member{ID: "m-1", TenantID: "t-1"})
	plans := newFakePlanStore(&plan.Plan{ID: "p-1", TenantID: "t-1", DurationDays: 30})
	service := NewService(subs, members, plans, quietAudit())

	repo := scope.NewRepository[*Subscription](subs, nil, tenant.Resolved{TenantID: "t-1"}, nil)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	sub, err := service.Create(context.Background(), repo, "m-1", "p-1", start)
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, sub.Status)
	assert.Equal(t, start.AddDate(0, 0, 30), sub.EndDate)
	assert.Equal(t, "t-1", sub.TenantID)
}

// TestPurpose: Validates that activation promotes the member and rejects repeats.
// Scope: Unit Test
// Security: The state machine is the billing integrity boundary; repeated activation must not double-apply.
// Expected: First activation succeeds and activates the member; the second returns ErrInvalidTransition.
// Test Case ID: SUB-01
func TestService_Activate_PromotesMemberAndRejectsRepeat(t *testing.T) {
	m := &member.Member{ID: "m-1", TenantID: "t-1", Status: member.StatusInactive}
	sub := &Subscription{ID: "s-1", TenantID: "t-1", MemberID: "m-1", PlanID: "p-1", Status: StatusPending}
	subs := newFakeSubStore(sub)
	members := newFakeMemberStore(m)
	plans := newFakePlanStore(&plan.Plan{ID: "p-1", TenantID: "t-1", DurationDays: 30})
	service := NewService(subs, members, plans, quietAudit())

	assert.NoError(t, service.Activate(context.Background(), sub))
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, member.StatusActive, members.members["m-1"].Status)

	err := service.Activate(context.Background(), sub)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusActive, sub.Status)
}

// TestPurpose: Validates that a tenant mismatch across records halts the transition.
// Scope: Unit Test
// Security: A subscription pointing at another center's member is data corruption, surfaced never repaired.
// Expected: ErrTenantConsistency, a consistency-fault audit event, state unchanged.
// Test Case ID: SUB-02
func TestService_Activate_TenantConsistencyFault(t *testing.T) {
	sub := &Subscription{ID: "s-1", TenantID: "t-1", MemberID: "m-1", PlanID: "p-1", Status: StatusPending}
	subs := newFakeSubStore(sub)
	members := newFakeMemberStore(&member.Member{ID: "m-1", TenantID: "t-OTHER"})
	plans := newFakePlanStore(&plan.Plan{ID: "p-1", TenantID: "t-1", DurationDays: 30})

	auditLogger := new(mockAudit)
	auditLogger.On("Log", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeTenantConsistencyFault && e.Resource == "s-1"
	})).Return()
	service := NewService(subs, members, plans, auditLogger)

	err := service.Activate(context.Background(), sub)
	assert.ErrorIs(t, err, ErrTenantConsistency)
	assert.Equal(t, StatusPending, sub.Status)
	auditLogger.AssertExpectations(t)
}

// TestPurpose: Validates that a failed activation is completed by a retry.
// Scope: Unit Test
// Security: A half-applied activation must never strand an active subscription on an unpromoted member.
// Expected: After the store write fails, the subscription is still pending and a second Activate succeeds.
// Test Case ID: SUB-03
func TestService_Activate_RetryAfterStoreFailure(t *testing.T) {
	m := &member.Member{ID: "m-1", TenantID: "t-1", Status: member.StatusInactive}
	sub := &Subscription{ID: "s-1", TenantID: "t-1", MemberID: "m-1", PlanID: "p-1", Status: StatusPending}
	subs := newFakeSubStore(sub)
	subs.failUpdates = 1
	members := newFakeMemberStore(m)
	plans := newFakePlanStore(&plan.Plan{ID: "p-1", TenantID: "t-1", DurationDays: 30})
	service := NewService(subs, members, plans, quietAudit())

	err := service.Activate(context.Background(), sub)
	assert.Error(t, err)
	assert.Equal(t, StatusPending, sub.Status)
	assert.Equal(t, StatusPending, subs.subs["s-1"].Status)
	// The member promotion landed first and is idempotent.
	assert.Equal(t, member.StatusActive, members.members["m-1"].Status)

	assert.NoError(t, service.Activate(context.Background(), sub))
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, StatusActive, subs.subs["s-1"].Status)
	assert.Equal(t, member.StatusActive, members.members["m-1"].Status)
}

func TestService_Cancel_FromPendingAndActive(t *testing.T) {
	members := newFakeMemberStore(&member.Member{ID: "m-1", TenantID: "t-1", Status: member.StatusActive})
	plans := newFakePlanStore(&plan.Plan{ID: "p-1", TenantID: "t-1", DurationDays: 30})

	pending := &Subscription{ID: "s-1", TenantID: "t-1", MemberID: "m-1", PlanID: "p-1", Status: StatusPending}
	active := &Subscription{ID: "s-2", TenantID: "t-1", MemberID: "m-1", PlanID: "p-1", Status: StatusActive}
	cancelled := &Subscription{ID: "s-3", TenantID: "t-1", MemberID: "m-1", PlanID: "p-1", Status: StatusCancelled}
	subs := newFakeSubStore(pending, active, cancelled)
	service := NewService(subs, members, plans, quietAudit())

	assert.NoError(t, service.Cancel(context.Background(), pending))
	assert.NoError(t, service.Cancel(context.Background(), active))
	assert.ErrorIs(t, service.Cancel(context.Background(), cancelled), ErrInvalidTransition)
}

func TestService_Expire_LeavesMemberAlone(t *testing.T) {
	m := &member.Member{ID: "m-1", TenantID: "t-1", Status: member.StatusActive}
	sub := &Subscription{ID: "s-1", TenantID: "t-1", MemberID: "m-1", PlanID: "p-1", Status: StatusActive}
	subs := newFakeSubStore(sub)
	members := newFakeMemberStore(m)
	plans := newFakePlanStore(&plan.Plan{ID: "p-1", TenantID: "t-1", DurationDays: 30})
	service := NewService(subs, members, plans, quietAudit())

	assert.NoError(t, service.Expire(context.Background(), sub))
	assert.Equal(t, StatusExpired, sub.Status)
	// The member may hold other live subscriptions; expiry does not touch them.
	assert.Equal(t, member.StatusActive, members.members["m-1"].Status)
}

func TestService_SweepExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := &member.Member{ID: "m-1", TenantID: "t-1", Status: member.StatusActive}
	p := &plan.Plan{ID: "p-1", TenantID: "t-1", DurationDays: 30}

	due := &Subscription{ID: "s-due", TenantID: "t-1", MemberID: "m-1", PlanID: "p-1", Status: StatusActive, EndDate: now.AddDate(0, 0, -1)}
	notDue := &Subscription{ID: "s-live", TenantID: "t-1", MemberID: "m-1", PlanID: "p-1", Status: StatusActive, EndDate: now.AddDate(0, 0, 5)}
	pending := &Subscription{ID: "s-pending", TenantID: "t-1", MemberID: "m-1", PlanID: "p-1", Status: StatusPending, EndDate: now.AddDate(0, 0, -2)}

	subs := newFakeSubStore(due, notDue, pending)
	service := NewService(subs, newFakeMemberStore(m), newFakePlanStore(p), quietAudit())

	expired, err := service.SweepExpired(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, StatusExpired, due.Status)
	assert.Equal(t, StatusActive, notDue.Status)
	assert.Equal(t, StatusPending, pending.Status)
}
