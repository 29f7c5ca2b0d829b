package ports

import (
	"context"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/google/uuid"
)

// UserGateway abstracts find/get/patch against the backing user store.
// FindOne yields exactly one record or a typed error; it never silently
// picks among multiple matches. Query keys are restricted to the store's
// allow-listed columns.
type UserGateway interface {
	FindOne(ctx context.Context, query map[string]string) (*account.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*account.User, error)
	Patch(ctx context.Context, id uuid.UUID, p *account.Patch) (*account.User, error)
	Count(ctx context.Context, field, value string, excludeID *uuid.UUID) (int, error)
}

// FindStrategy customizes how a workflow locates its user record.
type FindStrategy func(ctx context.Context, gw UserGateway, query map[string]string) (*account.User, error)

// PatchStrategy customizes how a workflow writes its record mutation.
type PatchStrategy func(ctx context.Context, gw UserGateway, id uuid.UUID, p *account.Patch) (*account.User, error)

// CallStrategies bundles the per-workflow find and patch strategies. They
// replace runtime interception of gateway calls: custom behavior is injected
// at construction time instead.
type CallStrategies struct {
	Find  FindStrategy
	Patch PatchStrategy
}

// DefaultStrategies calls the gateway directly.
func DefaultStrategies() CallStrategies {
	return CallStrategies{
		Find: func(ctx context.Context, gw UserGateway, query map[string]string) (*account.User, error) {
			return gw.FindOne(ctx, query)
		},
		Patch: func(ctx context.Context, gw UserGateway, id uuid.UUID, p *account.Patch) (*account.User, error) {
			return gw.Patch(ctx, id, p)
		},
	}
}
