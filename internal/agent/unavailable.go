package agent

import (
	"context"

	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/models"
)

// unavailableAgent stands in for an agent whose model failed to load. It
// fails immediately so the pipeline can mark dependents as upstream
// failures instead of blocking on a dead model.
type unavailableAgent struct {
	kind   models.AgentKind
	reason string
}

func (a unavailableAgent) Kind() models.AgentKind { return a.kind }

func (a unavailableAgent) Run(context.Context, *dataset.Frame, map[models.AgentKind]*models.AgentResult) *models.AgentResult {
	return Failed(a.kind, models.ErrorKindModelUnavailable, a.reason)
}
