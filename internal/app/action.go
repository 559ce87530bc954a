package app

import (
	"context"
	"fmt"

	"github.com/okian/visionauth/internal/domain/model"
)

// ActionKind names a user action.
type ActionKind string

// User actions.
const (
	ActionSelectMode    ActionKind = "select_mode"
	ActionSelectFeature ActionKind = "select_feature"
	ActionStart         ActionKind = "start"
	ActionStop          ActionKind = "stop"
	ActionReset         ActionKind = "reset"
)

// Action is one user interaction. Mode and Feature are read only by the
// matching select action.
type Action struct {
	Kind    ActionKind    `json:"action"`
	Mode    model.Mode    `json:"mode,omitempty"`
	Feature model.Feature `json:"feature,omitempty"`
}

// OnUserAction dispatches a boundary event to the matching operation.
func (c *Controller) OnUserAction(ctx context.Context, a Action) error {
	switch a.Kind {
	case ActionSelectMode:
		return c.SelectMode(ctx, a.Mode)
	case ActionSelectFeature:
		return c.SelectFeature(ctx, a.Feature)
	case ActionStart:
		return c.Start(ctx)
	case ActionStop:
		c.Stop(ctx)
		return nil
	case ActionReset:
		c.Reset(ctx)
		return nil
	default:
		return opError("action", ErrInvalidArgument, fmt.Errorf("unknown action %q", a.Kind))
	}
}
