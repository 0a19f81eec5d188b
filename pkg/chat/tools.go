package chat

// Param types understood by tool schemas
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
)

// Param declares one argument of a tool
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     any
	Enum        []string
	Properties  []Param // for TypeObject
}

// ToolSpec is what a model sees of a tool: name, usage text and arguments
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
}

// JSONSchema renders the parameters as a JSON-schema object, the shape
// OpenAI-compatible APIs expect under "parameters".
func (s ToolSpec) JSONSchema() map[string]any {
	return objectSchema(s.Params)
}

func objectSchema(params []Param) map[string]any {
	props := make(map[string]any, len(params))
	required := []string{}
	for _, p := range params {
		props[p.Name] = paramSchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       TypeObject,
		"properties": props,
		"required":   required,
	}
}

func paramSchema(p Param) map[string]any {
	if p.Type == TypeObject {
		schema := objectSchema(p.Properties)
		if p.Description != "" {
			schema["description"] = p.Description
		}
		return schema
	}
	schema := map[string]any{"type": p.Type}
	if p.Description != "" {
		schema["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		schema["enum"] = p.Enum
	}
	if p.Default != nil {
		schema["default"] = p.Default
	}
	return schema
}
