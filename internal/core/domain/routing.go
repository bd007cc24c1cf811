package domain

// WorkflowKind is the closed set of workflows the orchestrator can start.
// Routing configuration only selects among these; an unknown name in a
// mapping can never resolve to a runnable workflow.
type WorkflowKind string

const (
	WorkflowDocumentProcessing WorkflowKind = "document_processing_workflow"
	WorkflowDataProcessing     WorkflowKind = "data_processing_workflow"
	WorkflowGeneric            WorkflowKind = "generic_workflow"
	WorkflowIncident           WorkflowKind = "incident_workflow"
)

// ParseWorkflowKind maps a configured workflow name onto the closed kind
// set. Unknown names report ok=false and are treated as disabled entries.
func ParseWorkflowKind(name string) (WorkflowKind, bool) {
	switch WorkflowKind(name) {
	case WorkflowDocumentProcessing, WorkflowDataProcessing, WorkflowGeneric, WorkflowIncident:
		return WorkflowKind(name), true
	default:
		return "", false
	}
}

// WorkflowEntry describes one registered workflow target.
type WorkflowEntry struct {
	Kind        WorkflowKind
	TaskQueue   string
	Description string
	Enabled     bool
}

// RoutingTable is the configuration-driven dispatch table for events.
// Mappings select a workflow kind; the registry decides whether that kind
// is actually runnable. A mapping pointing at an absent or disabled
// registry entry resolves to no match without falling through to a
// lower-priority rule.
type RoutingTable struct {
	EventTypeMappings map[string]WorkflowKind
	SourceMappings    map[string]WorkflowKind
	DefaultWorkflow   WorkflowKind
	Registry          map[WorkflowKind]WorkflowEntry
}

// RoutingDecision records why an event was dispatched where it was.
type RoutingDecision struct {
	Workflow   WorkflowEntry
	Confidence float64
	MatchedBy  string // "event_type", "source" or "default"
	Reason     string
}

// DefaultRoutingTable is the compiled-in routing configuration, used when
// no routing file is configured.
func DefaultRoutingTable() RoutingTable {
	return RoutingTable{
		EventTypeMappings: map[string]WorkflowKind{
			"document-added":    WorkflowDocumentProcessing,
			"document-uploaded": WorkflowDocumentProcessing,
			"data-processing":   WorkflowDataProcessing,
		},
		SourceMappings: map[string]WorkflowKind{
			"s3":         WorkflowDocumentProcessing,
			"azure-blob": WorkflowDocumentProcessing,
			"sharepoint": WorkflowDocumentProcessing,
		},
		DefaultWorkflow: WorkflowDocumentProcessing,
		Registry: map[WorkflowKind]WorkflowEntry{
			WorkflowDocumentProcessing: {
				Kind:        WorkflowDocumentProcessing,
				TaskQueue:   "document_processing-queue",
				Description: "Processes documents from various sources",
				Enabled:     true,
			},
			WorkflowDataProcessing: {
				Kind:        WorkflowDataProcessing,
				TaskQueue:   "data_processing-queue",
				Description: "Handles data transformation and analysis",
				Enabled:     true,
			},
		},
	}
}
