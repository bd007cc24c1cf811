package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
	"github.com/akozyrev/event-orchestrator/internal/core/ports"
)

// coordinatorDir is never offered as a dispatch target: the coordinator
// does not dispatch to itself.
const coordinatorDir = "coordinator_workflow"

const incidentWorkflow = "incident_workflow"

// Coordinator dispatches escalation events to the workflow whose JSON
// descriptor lives on disk. Discovery is filesystem-driven so dropping a
// new descriptor directory registers a workflow without a redeploy.
type Coordinator struct {
	baseDir  string
	launcher ports.WorkflowLauncher
	logger   *slog.Logger
}

func New(baseDir string, launcher ports.WorkflowLauncher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		baseDir:  baseDir,
		launcher: launcher,
		logger:   logger.With("component", "coordinator"),
	}
}

// AvailableWorkflows scans baseDir for dispatchable workflows. A workflow
// is a subdirectory <name> holding a <name>.json descriptor; directories
// without one are silently excluded, as is the coordinator itself.
func AvailableWorkflows(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("scan workflows dir %s: %w", baseDir, err)
	}

	var available []string
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == coordinatorDir {
			continue
		}
		descriptor := filepath.Join(baseDir, entry.Name(), entry.Name()+".json")
		if _, err := os.Stat(descriptor); err != nil {
			continue
		}
		available = append(available, entry.Name())
	}
	sort.Strings(available)
	return available, nil
}

// ChooseWorkflow picks the dispatch target for an event type. Only
// incident events dispatch; anything else is a non-retryable failure so
// the caller never spins on an event no workflow will ever take.
func ChooseWorkflow(eventType string, available []string) (string, error) {
	if !strings.EqualFold(eventType, "incident") {
		return "", domain.WrapError(domain.ErrNonRetryable, "choose workflow",
			fmt.Errorf("no available workflow for event type %q", eventType))
	}
	for _, name := range available {
		if name == incidentWorkflow {
			return incidentWorkflow, nil
		}
	}
	return "", domain.WrapError(domain.ErrNonRetryable, "choose workflow",
		fmt.Errorf("workflow %s is not available", incidentWorkflow))
}

// LoadDefinition reads and parses a workflow's JSON descriptor. Both a
// missing file and malformed JSON are non-retryable: retrying cannot fix
// a bad deployment artifact.
func LoadDefinition(baseDir, name string) (map[string]any, error) {
	path := filepath.Join(baseDir, name, name+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrNonRetryable, "load workflow definition",
			fmt.Errorf("descriptor not found for %q: %w", name, err))
	}
	var def map[string]any
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, domain.WrapError(domain.ErrNonRetryable, "load workflow definition",
			fmt.Errorf("descriptor for %q is not valid JSON: %w", name, err))
	}
	return def, nil
}

// Handle runs the full dispatch sequence for one escalation event and
// returns a human-readable outcome.
func (c *Coordinator) Handle(ctx context.Context, event domain.Event) (string, error) {
	c.logger.Info("coordinator triggered", "event_type", event.EventType)

	available, err := AvailableWorkflows(c.baseDir)
	if err != nil {
		return "", err
	}
	if len(available) == 0 {
		return "", domain.WrapError(domain.ErrNonRetryable, "coordinator",
			fmt.Errorf("no available workflows found in %s", c.baseDir))
	}

	chosen, err := ChooseWorkflow(event.EventType, available)
	if err != nil {
		return "", err
	}

	definition, err := LoadDefinition(c.baseDir, chosen)
	if err != nil {
		return "", err
	}

	if chosen == incidentWorkflow {
		childID := "incident-" + uuid.NewString()
		c.logger.Info("starting child workflow", "child_id", childID, "workflow", chosen)
		if err := c.launcher.LaunchIncident(ctx, childID, event.StringField("initial_prompt")); err != nil {
			return "", fmt.Errorf("launch %s: %w", chosen, err)
		}
		return fmt.Sprintf("coordinator finished: started %s as %s", chosen, childID), nil
	}

	c.logger.Info("no child workflow started", "workflow", chosen)
	return fmt.Sprintf("coordinator finished: loaded definition for %s (%d keys)", chosen, len(definition)), nil
}
