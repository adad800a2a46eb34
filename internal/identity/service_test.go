package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fitdesk/fitdesk/internal/audit"
)

type mockPrincipalRepo struct {
	mock.Mock
}

func (m *mockPrincipalRepo) Create(ctx context.Context, p *Principal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPrincipalRepo) GetByID(ctx context.Context, id string) (*Principal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*Principal), args.Error(1)
}

func (m *mockPrincipalRepo) GetByEmail(ctx context.Context, email string) (*Principal, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(*Principal), args.Error(1)
}

func (m *mockPrincipalRepo) ListByTenant(ctx context.Context, tenantID string) ([]*Principal, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*Principal), args.Error(1)
}

type mockCredentials struct {
	mock.Mock
}

func (m *mockCredentials) Verify(ctx context.Context, principalID, password string) error {
	args := m.Called(ctx, principalID, password)
	return args.Error(0)
}

func (m *mockCredentials) Register(ctx context.Context, principalID, password string) error {
	args := m.Called(ctx, principalID, password)
	return args.Error(0)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func testIssuer() *TokenIssuer {
	return NewTokenIssuer([]byte("test-secret-32-bytes-long-enough"), "fitdesk-test", time.Hour)
}

func newTestService(repo *mockPrincipalRepo, creds *mockCredentials, auditLogger *mockAudit) *Service {
	return NewService(repo, creds, creds, testIssuer(), auditLogger)
}

// TestPurpose: Validates that provisioning binds a principal to its home center permanently.
// Scope: Unit Test
// Security: The home tenant set here is the single source of the guard's boundary decision.
// Expected: A principal with a UUIDv7 ID, lowercased email and the given home tenant.
// Test Case ID: IDN-01
func TestService_Provision(t *testing.T) {
	repo := new(mockPrincipalRepo)
	creds := new(mockCredentials)
	auditLogger := new(mockAudit)
	service := newTestService(repo, creds, auditLogger)
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "staff@powerfit.example").Return((*Principal)(nil), ErrPrincipalNotFound)
	repo.On("Create", ctx, mock.MatchedBy(func(p *Principal) bool {
		uid, err := uuid.Parse(p.ID)
		if err != nil {
			return false
		}
		return uid.Version() == 7 && p.HomeTenantID == "t-1" && p.Role == RoleCoach && !p.SuperAdmin
	})).Return(nil)
	creds.On("Register", ctx, mock.Anything, "secret123").Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypePrincipalProvisioned && e.TenantID == "t-1"
	})).Return()

	p, err := service.Provision(ctx, " Staff@PowerFit.example ", "secret123", "t-1", RoleCoach, false, "admin-1")
	assert.NoError(t, err)
	assert.Equal(t, "staff@powerfit.example", p.Email)
	repo.AssertExpectations(t)
	creds.AssertExpectations(t)
}

func TestService_Provision_Validation(t *testing.T) {
	service := newTestService(new(mockPrincipalRepo), new(mockCredentials), new(mockAudit))
	ctx := context.Background()

	_, err := service.Provision(ctx, "not-an-email", "pw", "t-1", RoleCoach, false, "")
	assert.Error(t, err)

	_, err = service.Provision(ctx, "a@b.example", "pw", "", RoleCoach, false, "")
	assert.ErrorIs(t, err, ErrHomeTenantRequired)

	_, err = service.Provision(ctx, "a@b.example", "pw", "t-1", RoleCoach, true, "")
	assert.Error(t, err) // super administrators carry no home tenant

	_, err = service.Provision(ctx, "a@b.example", "pw", "t-1", Role("janitor"), false, "")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestService_Provision_DuplicateEmail(t *testing.T) {
	repo := new(mockPrincipalRepo)
	service := newTestService(repo, new(mockCredentials), new(mockAudit))
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "taken@example.com").Return(&Principal{ID: "p-1"}, nil)

	_, err := service.Provision(ctx, "taken@example.com", "pw", "t-1", RoleCoach, false, "")
	assert.ErrorIs(t, err, ErrPrincipalExists)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that failed logins are indistinguishable and audited.
// Scope: Unit Test
// Security: Unknown principals and wrong passwords must produce the same error, with an audit trail.
// Expected: ErrInvalidCredentials in both cases, plus a login_failed audit event.
// Test Case ID: IDN-02
func TestService_Login_FailuresAuditedAndUniform(t *testing.T) {
	repo := new(mockPrincipalRepo)
	creds := new(mockCredentials)
	auditLogger := new(mockAudit)
	service := newTestService(repo, creds, auditLogger)
	ctx := context.Background()

	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeLoginFailed
	})).Return()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return((*Principal)(nil), ErrPrincipalNotFound)
	_, _, unknownErr := service.Login(ctx, "ghost@example.com", "pw", "10.0.0.1")
	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)

	p := &Principal{ID: "p-1", Email: "real@example.com", HomeTenantID: "t-1", Role: RoleCoach}
	repo.On("GetByEmail", ctx, "real@example.com").Return(p, nil)
	creds.On("Verify", ctx, "p-1", "wrong").Return(ErrInvalidCredentials)
	_, _, wrongErr := service.Login(ctx, "real@example.com", "wrong", "10.0.0.1")
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)

	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	auditLogger.AssertNumberOfCalls(t, "Log", 2)
}

func TestService_Login_IssuesParsableToken(t *testing.T) {
	repo := new(mockPrincipalRepo)
	creds := new(mockCredentials)
	auditLogger := new(mockAudit)
	service := newTestService(repo, creds, auditLogger)
	ctx := context.Background()

	p := &Principal{ID: "p-1", Email: "real@example.com", HomeTenantID: "t-1", Role: RoleAdministrator}
	repo.On("GetByEmail", ctx, "real@example.com").Return(p, nil)
	creds.On("Verify", ctx, "p-1", "pw").Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeLoginSuccess && e.ActorID == "p-1"
	})).Return()

	token, loggedIn, err := service.Login(ctx, "real@example.com", "pw", "10.0.0.1")
	assert.NoError(t, err)
	assert.Equal(t, "p-1", loggedIn.ID)

	authed, err := service.Authenticate(ctx, token)
	assert.NoError(t, err)
	assert.Equal(t, "p-1", authed.ID)
	assert.Equal(t, "t-1", authed.HomeTenantID)
	assert.Equal(t, RoleAdministrator, authed.Role)
}

func TestTokenIssuer_RejectsForgedAndForeignTokens(t *testing.T) {
	issuer := testIssuer()
	p := &Principal{ID: "p-1", Email: "a@b.example", HomeTenantID: "t-1", Role: RoleCoach}

	token, err := issuer.Issue(p)
	assert.NoError(t, err)

	// Wrong secret.
	forged := NewTokenIssuer([]byte("another-secret-that-is-also-long"), "fitdesk-test", time.Hour)
	_, err = forged.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Wrong issuer claim.
	otherIssuer := NewTokenIssuer([]byte("test-secret-32-bytes-long-enough"), "someone-else", time.Hour)
	_, err = otherIssuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Garbage.
	_, err = issuer.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_Refresh_ReReadsPrincipal(t *testing.T) {
	repo := new(mockPrincipalRepo)
	service := newTestService(repo, new(mockCredentials), new(mockAudit))
	ctx := context.Background()

	p := &Principal{ID: "p-1", Email: "a@b.example", HomeTenantID: "t-1", Role: RoleCoach}
	token, err := testIssuer().Issue(p)
	assert.NoError(t, err)

	// The stored principal has been promoted since the token was issued; the
	// refreshed token must carry the current role.
	promoted := &Principal{ID: "p-1", Email: "a@b.example", HomeTenantID: "t-1", Role: RoleAdministrator}
	repo.On("GetByID", ctx, "p-1").Return(promoted, nil)

	refreshed, err := service.Refresh(ctx, token)
	assert.NoError(t, err)

	authed, err := service.Authenticate(ctx, refreshed)
	assert.NoError(t, err)
	assert.Equal(t, RoleAdministrator, authed.Role)
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(8*1024, 1, 1, 16, 32)

	hash, err := hasher.Hash("correct horse battery staple")
	assert.NoError(t, err)

	ok, err := hasher.Compare("correct horse battery staple", hash)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Compare("wrong password", hash)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = hasher.Compare("anything", "not-a-hash")
	assert.Error(t, err)
}

func TestService_Refresh_InvalidToken(t *testing.T) {
	service := newTestService(new(mockPrincipalRepo), new(mockCredentials), new(mockAudit))

	_, err := service.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
