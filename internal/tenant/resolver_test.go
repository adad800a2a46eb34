package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func headerMap(h map[string]string) func(string) string {
	return func(name string) string { return h[name] }
}

func noHeaders(string) string { return "" }

func TestHostStrategy_Candidate(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"subdomain", "powerfit.fitdesk.example", "powerfit"},
		{"subdomain with port", "powerfit.fitdesk.example:8443", "powerfit"},
		{"uppercase host", "PowerFit.FitDesk.example", "powerfit"},
		{"apex domain", "fitdesk.example", ""},
		{"www prefix", "www.fitdesk.example", ""},
		{"bare host", "localhost", ""},
		{"bare host with port", "localhost:8080", ""},
		{"empty", "", ""},
		{"deep subdomain keeps first label", "powerfit.eu.fitdesk.example", "powerfit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HostStrategy{}.Candidate(tt.host, noHeaders))
		})
	}
}

func TestHeaderStrategy_Candidate(t *testing.T) {
	s := HeaderStrategy{}
	assert.Equal(t, "powerfit", s.Candidate("", headerMap(map[string]string{RoutingKeyHeader: " PowerFit "})))
	assert.Equal(t, "", s.Candidate("irrelevant.host.example", noHeaders))
}

// TestPurpose: Validates that an explicit routing header takes precedence over the host subdomain.
// Scope: Unit Test
// Security: Trusted internal callers must be able to pin the tenant deterministically.
// Expected: The header candidate wins when both signals are present.
// Test Case ID: RES-01
func TestResolver_HeaderWinsOverHost(t *testing.T) {
	repo := new(mockRepo)
	registry := NewRegistry(repo, new(mockAudit))
	resolver := NewResolver(registry)
	ctx := context.Background()

	repo.On("GetByRoutingKey", ctx, "headerfit").Return(&Tenant{ID: "t-h", RoutingKey: "headerfit", Active: true}, nil)

	resolved, ok := resolver.Resolve(ctx, "hostfit.fitdesk.example", headerMap(map[string]string{RoutingKeyHeader: "headerfit"}))
	assert.True(t, ok)
	assert.Equal(t, "t-h", resolved.TenantID)
	assert.Equal(t, "headerfit", resolved.RoutingKey)
	repo.AssertNotCalled(t, "GetByRoutingKey", ctx, "hostfit")
}

// TestPurpose: Validates that unknown subdomains and inactive centers do not resolve.
// Scope: Unit Test
// Security: An unresolvable tenant must degrade to no tenant context, never to a guessed one.
// Expected: Resolve returns ok=false for unknown keys and for deactivated centers.
// Test Case ID: RES-02
func TestResolver_UnknownAndInactive(t *testing.T) {
	repo := new(mockRepo)
	registry := NewRegistry(repo, new(mockAudit))
	resolver := NewResolver(registry)
	ctx := context.Background()

	repo.On("GetByRoutingKey", ctx, "ghost").Return((*Tenant)(nil), ErrTenantNotFound)
	_, ok := resolver.Resolve(ctx, "ghost.fitdesk.example", noHeaders)
	assert.False(t, ok)

	repo.On("GetByRoutingKey", ctx, "closed").Return(&Tenant{ID: "t-c", RoutingKey: "closed", Active: false}, nil)
	_, ok = resolver.Resolve(ctx, "closed.fitdesk.example", noHeaders)
	assert.False(t, ok)
}

func TestResolver_ReservedLabelDoesNotResolve(t *testing.T) {
	repo := new(mockRepo)
	registry := NewRegistry(repo, new(mockAudit))
	resolver := NewResolver(registry)

	_, ok := resolver.Resolve(context.Background(), "api.fitdesk.example", noHeaders)
	assert.False(t, ok)
	repo.AssertNotCalled(t, "GetByRoutingKey", mock.Anything, mock.Anything)
}

func TestResolver_RegistryErrorDegradesToUnresolved(t *testing.T) {
	repo := new(mockRepo)
	registry := NewRegistry(repo, new(mockAudit))
	resolver := NewResolver(registry)
	ctx := context.Background()

	repo.On("GetByRoutingKey", ctx, "powerfit").Return((*Tenant)(nil), errors.New("connection refused"))

	_, ok := resolver.Resolve(ctx, "powerfit.fitdesk.example", noHeaders)
	assert.False(t, ok)
}

func TestResolvedContextRoundTrip(t *testing.T) {
	ctx := WithResolved(context.Background(), Resolved{TenantID: "t-1", RoutingKey: "powerfit"})

	resolved, ok := ResolvedFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "t-1", resolved.TenantID)

	_, ok = ResolvedFromContext(context.Background())
	assert.False(t, ok)
}
