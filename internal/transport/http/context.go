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

package http

import (
	"context"

	"github.com/fitdesk/fitdesk/internal/identity"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, p *identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal, or nil for
// unauthenticated requests.
func PrincipalFromContext(ctx context.Context) *identity.Principal {
	if p, ok := ctx.Value(principalKey).(*identity.Principal); ok {
		return p
	}
	return nil
}
