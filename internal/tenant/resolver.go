// Copyright 2026 The FitDesk Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tenant

import (
	"context"
	"net"
	"strings"
)

// RoutingKeyHeader lets trusted internal callers (tests, service-to-service
// calls) bypass DNS-based routing. When present it wins over the host.
const RoutingKeyHeader = "X-Center-Key"

// Strategy extracts a candidate routing key from request metadata. An empty
// string means the strategy found no candidate.
type Strategy interface {
	Candidate(host string, header func(string) string) string
}

// HostStrategy derives the routing key from the leftmost subdomain label.
// "powerfit.fitdesk.example:8443" yields "powerfit"; a bare apex domain or a
// "www." prefix yields nothing. Malformed hosts never fail, they just don't
// resolve.
type HostStrategy struct{}

func (HostStrategy) Candidate(host string, _ func(string) string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}

	candidate := NormalizeRoutingKey(labels[0])
	if candidate == "" || candidate == "www" {
		return ""
	}
	return candidate
}

// HeaderStrategy derives the routing key from an explicit header.
type HeaderStrategy struct {
	Header string
}

func (s HeaderStrategy) Candidate(_ string, header func(string) string) string {
	name := s.Header
	if name == "" {
		name = RoutingKeyHeader
	}
	return NormalizeRoutingKey(header(name))
}

// Resolver turns inbound request signals into a Resolved tenant. Strategies
// are consulted in order; the first candidate wins, so placing HeaderStrategy
// first gives trusted callers precedence over host-derived routing.
type Resolver struct {
	registry   *Registry
	strategies []Strategy
}

// NewResolver creates a resolver with the default strategy order: explicit
// header first, then host subdomain.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{
		registry:   registry,
		strategies: []Strategy{HeaderStrategy{}, HostStrategy{}},
	}
}

// NewResolverWithStrategies creates a resolver with a custom strategy chain.
func NewResolverWithStrategies(registry *Registry, strategies ...Strategy) *Resolver {
	return &Resolver{registry: registry, strategies: strategies}
}

// Resolve inspects the host and headers and produces the request's tenant, or
// (Resolved{}, false) when no active tenant is implied. It is pure over
// registry state and never fails on malformed input; registry I/O errors are
// treated as unresolved so that root-domain traffic keeps working.
func (r *Resolver) Resolve(ctx context.Context, host string, header func(string) string) (Resolved, bool) {
	var candidate string
	for _, s := range r.strategies {
		if candidate = s.Candidate(host, header); candidate != "" {
			break
		}
	}
	if candidate == "" || IsReservedRoutingKey(candidate) {
		return Resolved{}, false
	}

	t, err := r.registry.LookupActive(ctx, candidate)
	if err != nil {
		return Resolved{}, false
	}

	return Resolved{TenantID: t.ID, RoutingKey: t.RoutingKey}, true
}
