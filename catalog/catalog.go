// Package catalog merges the tool lists of all providers into one
// addressable namespace: a name→provider map plus the ordered, normalized
// tool definitions exposed to the model. The namespace is built once per
// orchestration run and never refreshed mid-conversation.
package catalog

import (
	"github.com/effective-security/xlog"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/effective-security/biomcp/pkg/llms"
	"github.com/effective-security/biomcp/registry"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/biomcp", "catalog")

// ToolDefinition is one aggregated tool with its owning provider.
type ToolDefinition struct {
	Name        string
	Description string
	// InputSchema is the normalized JSON-schema object (see NormalizeSchema).
	InputSchema map[string]any
	// Provider is the name of the owning provider.
	Provider string
}

// Catalog is the aggregated tool namespace of one orchestration run.
// Immutable after Build.
type Catalog struct {
	byName *orderedmap.OrderedMap[string, *ToolDefinition]
}

// Build aggregates per-provider tool lists into a Catalog. Each tool's
// input schema is normalized for strict function calling. If two providers
// declare the same tool name, the later-registered provider wins; the
// collision is logged.
func Build(lists []registry.ProviderTools) *Catalog {
	byName := orderedmap.New[string, *ToolDefinition]()
	for _, list := range lists {
		for _, tool := range list.Tools {
			def := &ToolDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: NormalizeSchema(tool.InputSchema),
				Provider:    list.Provider,
			}
			if prev, ok := byName.Get(tool.Name); ok {
				logger.KV(xlog.WARNING,
					"status", "tool_name_collision",
					"tool", tool.Name,
					"previous_provider", prev.Provider,
					"provider", list.Provider,
				)
			}
			byName.Set(tool.Name, def)
		}
	}
	return &Catalog{byName: byName}
}

// Resolve returns the owning provider of a tool name.
func (c *Catalog) Resolve(toolName string) (string, bool) {
	def, ok := c.byName.Get(toolName)
	if !ok {
		return "", false
	}
	return def.Provider, true
}

// Get returns the definition of a tool name.
func (c *Catalog) Get(toolName string) (*ToolDefinition, bool) {
	return c.byName.Get(toolName)
}

// Len returns the number of tools in the namespace.
func (c *Catalog) Len() int {
	return c.byName.Len()
}

// Names returns the tool names in registration order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, c.byName.Len())
	for pair := c.byName.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Definitions returns the tool definitions advertised to the model, in
// registration order, as strict function definitions.
func (c *Catalog) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, c.byName.Len())
	for pair := c.byName.Oldest(); pair != nil; pair = pair.Next() {
		def := pair.Value
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Strict:      true,
				Parameters:  def.InputSchema,
			},
		})
	}
	return defs
}
