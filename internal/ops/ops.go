// Package ops implements C9: a single internal operation dispatcher
// shared by the REST and MCP entrypoints (internal/api, internal/mcp).
// Each operation resolves team names to UUIDs, checks the caller's
// scopes via internal/authz, validates the payload via internal/model,
// delegates to internal/store inside whatever transaction the
// repository method itself owns, and returns a uniform OperationResult.
// Refreshing the affected xDS resource set (C9 step 4) happens for free:
// every mutating store.Store call already runs the store's OnChange
// hook, which the composition root (cmd/controlplane) wires to
// internal/xds.Publisher.Notify.
//
// Grounded on original_source/src/internal_api/{clusters,routes,filters,
// types}.rs for the operation shape (resolve -> validate -> persist ->
// uniform result); the resolve-name-to-UUID, scope-check, then
// delegate-to-repository sequence below mirrors ClusterOperations::create
// one-for-one, generalized across every resource kind spec.md names.
package ops

import (
	"context"
	"log/slog"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

// OperationResult is the uniform envelope every operation returns,
// formatted by the REST/MCP entrypoints however suits their wire
// protocol (spec.md 4.9 step 5).
type OperationResult[T any] struct {
	Data    T
	Message string
}

func Result[T any](data T) OperationResult[T] {
	return OperationResult[T]{Data: data}
}

func ResultWithMessage[T any](data T, message string) OperationResult[T] {
	return OperationResult[T]{Data: data, Message: message}
}

// Dispatcher is the shared internal API surface: ClusterOperations,
// RouteConfigOperations, etc. below are all methods on *Dispatcher so
// every operation shares one store handle, one filter-schema registry
// (for dynamic filter validation), and one logger.
type Dispatcher struct {
	Store   store.Store
	Schemas *filters.SchemaRegistry
	Log     *slog.Logger
}

func NewDispatcher(st store.Store, schemas *filters.SchemaRegistry, log *slog.Logger) *Dispatcher {
	return &Dispatcher{Store: st, Schemas: schemas, Log: log}
}

// resolveTeam turns a team name into its TeamID within the caller's org.
// A blank name resolves to nil (a global/system resource), which only
// admin:all callers are allowed to create (enforced by each operation's
// own scope check, not here).
func (d *Dispatcher) resolveTeam(ctx context.Context, ac authz.Context, teamName string) (*model.TeamID, error) {
	if teamName == "" {
		return nil, nil
	}
	if ac.OrgID == nil {
		return nil, apierr.Validationf("team", "team", "caller has no org context to resolve team %q against", teamName)
	}
	team, err := d.Store.Teams().GetByName(ctx, *ac.OrgID, teamName)
	if err != nil {
		return nil, err
	}
	id := team.ID
	return &id, nil
}
