package ops

import (
	"context"
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
)

type CreateLearningSessionRequest struct {
	Team              string
	RouteConfigName   string
	RoutePattern      string
	ClusterName       string
	HTTPMethods       []string
	TargetSampleCount int
	CaptureBody       bool
}

func (d *Dispatcher) CreateLearningSession(ctx context.Context, ac authz.Context, req CreateLearningSessionRequest) (OperationResult[*model.LearningSession], error) {
	teamID, err := d.checkTeamWrite(ctx, ac, req.Team, authz.ResLearningSessions)
	if err != nil {
		return OperationResult[*model.LearningSession]{}, err
	}
	if teamID == nil {
		return OperationResult[*model.LearningSession]{}, apierr.Validationf("learning_session", "team", "learning sessions require a team")
	}
	if req.RouteConfigName != "" {
		scope, err := d.teamScopeForResource(ctx, ac, authz.ResRoutes, authz.ActionRead)
		if err != nil {
			return OperationResult[*model.LearningSession]{}, err
		}
		if _, err := d.Store.RouteConfigs().GetByName(ctx, scope, teamID, req.RouteConfigName); err != nil {
			return OperationResult[*model.LearningSession]{}, apierr.Validationf("learning_session", "route_config_name", "route config %q does not exist", req.RouteConfigName)
		}
	}
	if req.ClusterName != "" {
		scope, err := d.teamScopeForResource(ctx, ac, authz.ResClusters, authz.ActionRead)
		if err != nil {
			return OperationResult[*model.LearningSession]{}, err
		}
		if _, err := d.Store.Clusters().GetByName(ctx, scope, teamID, req.ClusterName); err != nil {
			return OperationResult[*model.LearningSession]{}, apierr.Validationf("learning_session", "cluster_name", "cluster %q referenced in session does not exist", req.ClusterName)
		}
	}

	s := &model.LearningSession{
		ID:                model.NewLearningSessionID(),
		TeamID:            *teamID,
		RouteConfigName:   req.RouteConfigName,
		RoutePattern:      req.RoutePattern,
		ClusterName:       req.ClusterName,
		HTTPMethods:       req.HTTPMethods,
		Status:            model.SessionPending,
		TargetSampleCount: req.TargetSampleCount,
		CaptureBody:       req.CaptureBody,
	}
	if err := s.Validate(); err != nil {
		return OperationResult[*model.LearningSession]{}, err
	}
	if err := d.Store.LearningSessions().Create(ctx, s); err != nil {
		return OperationResult[*model.LearningSession]{}, err
	}
	return ResultWithMessage(s, "Learning session created."), nil
}

func (d *Dispatcher) GetLearningSession(ctx context.Context, ac authz.Context, id model.LearningSessionID) (*model.LearningSession, error) {
	return d.Store.LearningSessions().Get(ctx, id)
}

func (d *Dispatcher) ListLearningSessions(ctx context.Context, ac authz.Context) ([]*model.LearningSession, error) {
	scope, err := d.teamScopeForResource(ctx, ac, authz.ResLearningSessions, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return d.Store.LearningSessions().List(ctx, scope)
}

// transition applies a lifecycle arrow, rejecting illegal ones per
// model.LearningSessionStatus.CanTransition (spec.md 3's state machine).
func (d *Dispatcher) transition(ctx context.Context, id model.LearningSessionID, next model.LearningSessionStatus, stamp func(*model.LearningSession, time.Time)) (OperationResult[*model.LearningSession], error) {
	s, err := d.Store.LearningSessions().Get(ctx, id)
	if err != nil {
		return OperationResult[*model.LearningSession]{}, err
	}
	if !s.Status.CanTransition(next) {
		return OperationResult[*model.LearningSession]{}, apierr.Conflictf("learning_session", string(id), "cannot move learning session from %q to %q", s.Status, next)
	}
	s.Status = next
	if stamp != nil {
		stamp(s, time.Now())
	}
	if err := d.Store.LearningSessions().Update(ctx, s); err != nil {
		return OperationResult[*model.LearningSession]{}, err
	}
	return Result(s), nil
}

func (d *Dispatcher) ActivateLearningSession(ctx context.Context, ac authz.Context, id model.LearningSessionID) (OperationResult[*model.LearningSession], error) {
	return d.transition(ctx, id, model.SessionActive, func(s *model.LearningSession, now time.Time) { s.ActivatedAt = &now })
}

func (d *Dispatcher) CancelLearningSession(ctx context.Context, ac authz.Context, id model.LearningSessionID) (OperationResult[*model.LearningSession], error) {
	return d.transition(ctx, id, model.SessionCancelled, nil)
}
