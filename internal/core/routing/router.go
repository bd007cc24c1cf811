package routing

import (
	"fmt"
	"strings"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

// Route maps a validated event onto a registered workflow using the
// priority order eventType > source > default. The first matching rule
// picks a workflow kind; that choice is final. If the chosen kind is
// absent from the registry or disabled, routing fails closed with
// domain.ErrNoRoute instead of falling through to a lower-priority rule.
func Route(event *domain.Event, table domain.RoutingTable) (domain.RoutingDecision, error) {
	if event == nil {
		return domain.RoutingDecision{}, domain.WrapError(domain.ErrNoRoute, "route event", fmt.Errorf("nil event"))
	}

	eventType := strings.ToLower(event.EventType)
	source := strings.ToLower(event.Source)

	if eventType != "" {
		if kind, ok := table.EventTypeMappings[eventType]; ok {
			return resolve(table, kind, 1.0, "event_type",
				fmt.Sprintf("routed by eventType %q to %s", eventType, kind))
		}
	}
	if source != "" {
		if kind, ok := table.SourceMappings[source]; ok {
			return resolve(table, kind, 0.8, "source",
				fmt.Sprintf("routed by source %q to %s", source, kind))
		}
	}
	if table.DefaultWorkflow != "" {
		return resolve(table, table.DefaultWorkflow, 0.5, "default",
			fmt.Sprintf("routed to default workflow %s", table.DefaultWorkflow))
	}

	return domain.RoutingDecision{}, domain.WrapError(
		domain.ErrNoRoute,
		"route event",
		fmt.Errorf("no workflow for eventType %q and source %q", eventType, source),
	)
}

func resolve(table domain.RoutingTable, kind domain.WorkflowKind, confidence float64, matchedBy, reason string) (domain.RoutingDecision, error) {
	entry, ok := table.Registry[kind]
	if !ok || !entry.Enabled {
		// Deliberately identical outward error for unregistered and
		// disabled targets; the difference is internal only.
		return domain.RoutingDecision{}, domain.WrapError(
			domain.ErrNoRoute,
			"resolve workflow",
			fmt.Errorf("workflow %s is not runnable", kind),
		)
	}
	return domain.RoutingDecision{
		Workflow:   entry,
		Confidence: confidence,
		MatchedBy:  matchedBy,
		Reason:     reason,
	}, nil
}
