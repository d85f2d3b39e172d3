package ports

import "context"

// FlowSource yields authored flow graphs in their raw key/value shape.
// The compiler, not the source, is responsible for validation; sources
// only locate and decode the document.
type FlowSource interface {
	// Load returns the raw graph for a tenant's template.
	// Returns domain.ErrFlowNotFound when the template does not exist.
	Load(ctx context.Context, tenantID, templateID string) (map[string]any, error)
}
