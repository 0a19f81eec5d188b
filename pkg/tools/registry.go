package tools

import (
	"fmt"
	"log/slog"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
)

// Registry dispatches tool calls against one session's character.
// It is not safe for concurrent use; a turn dispatches one call at a time.
type Registry struct {
	character *character.Character
	logger    *slog.Logger
}

// NewRegistry binds the tool table to c
func NewRegistry(c *character.Character, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{character: c, logger: logger}
}

// Character returns the bound character
func (r *Registry) Character() *character.Character {
	return r.character
}

// Specs returns the schemas of every tool in set
func (r *Registry) Specs(set Set) []chat.ToolSpec {
	ids := set.IDs()
	specs := make([]chat.ToolSpec, 0, len(ids))
	for _, id := range ids {
		specs = append(specs, catalog[id].spec)
	}
	return specs
}

// Dispatch runs the named tool. The action set is searched first, then the
// creation set. Failures of any kind come back as text; Dispatch never
// returns an error and never panics.
func (r *Registry) Dispatch(name string, args map[string]any) string {
	id := ID(name)
	if !ActionSet.Contains(id) && !CreationSet.Contains(id) {
		r.logger.Warn("Unknown tool requested", "tool", name)
		return fmt.Sprintf("Unknown tool '%s'", name)
	}
	return r.invoke(id, args)
}

// DispatchIn runs call only if its tool belongs to set
func (r *Registry) DispatchIn(set Set, call chat.ToolCall) string {
	id := ID(call.Name)
	if !set.Contains(id) {
		if !ActionSet.Contains(id) && !CreationSet.Contains(id) {
			return fmt.Sprintf("Unknown tool '%s'", call.Name)
		}
		r.logger.Warn("Tool outside allowed set", "tool", call.Name, "set", set.String())
		return fmt.Sprintf("Tool '%s' is not available to the %s agent.", call.Name, set)
	}
	return r.invoke(id, call.Arguments)
}

func (r *Registry) invoke(id ID, raw map[string]any) (result string) {
	def := catalog[id]
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Tool panicked", "tool", id, "panic", rec)
			result = fmt.Sprintf("Error executing %s: %v", id, rec)
		}
	}()

	if raw == nil {
		raw = map[string]any{}
	}
	args, err := validate(def.spec.Params, raw)
	if err != nil {
		r.logger.Debug("Tool arguments rejected", "tool", id, "error", err)
		return fmt.Sprintf("Error executing %s: %v", id, err)
	}

	out, err := def.run(r.character, args)
	if err != nil {
		r.logger.Debug("Tool failed", "tool", id, "error", err)
		return fmt.Sprintf("Error executing %s: %v", id, err)
	}
	return out
}

// IsReadOnly reports whether a tool leaves the character unchanged
func IsReadOnly(name string) bool {
	def, ok := catalog[ID(name)]
	return ok && def.readOnly
}
