package tooladapter

// Schemas are plain JSON-Schema-shaped maps, kept as data rather than a
// generated type so tool definitions stay declarative at the call site,
// the same flat-table approach spec.md §9 calls for in place of
// inheritance-based handler classes.

var shellExecuteSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"command":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"directory":   map[string]any{"type": "string"},
		"stdin":       map[string]any{"type": "string"},
		"timeout":     map[string]any{"type": "number", "minimum": 0},
		"envs":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"encoding":    map[string]any{"type": "string"},
		"limit_lines": map[string]any{"type": "integer", "minimum": 1},
	},
	"required": []string{"command", "directory"},
}

var shellBgStartSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"command":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"directory":   map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"labels":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"stdin":       map[string]any{"type": "string"},
		"envs":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"encoding":    map[string]any{"type": "string"},
		"timeout":     map[string]any{"type": "number"},
	},
	"required": []string{"command", "directory", "description"},
}

var shellBgListSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"labels": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"status": map[string]any{"type": "string"},
	},
}

var shellBgStopSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"pid":   map[string]any{"type": "integer"},
		"force": map[string]any{"type": "boolean"},
	},
	"required": []string{"pid"},
}

var shellBgLogsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"pid":                map[string]any{"type": "integer"},
		"with_stdout":        map[string]any{"type": "boolean"},
		"with_stderr":        map[string]any{"type": "boolean"},
		"tail":               map[string]any{"type": "integer", "minimum": 0},
		"since":              map[string]any{"type": "string", "format": "date-time"},
		"until":              map[string]any{"type": "string", "format": "date-time"},
		"add_time_prefix":    map[string]any{"type": "boolean"},
		"time_prefix_format": map[string]any{"type": "string"},
		"follow_seconds":     map[string]any{"type": "number", "minimum": 0},
		"limit_lines":        map[string]any{"type": "integer", "minimum": 1},
	},
	"required": []string{"pid"},
}

var shellBgCleanSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"pids": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
	},
	"required": []string{"pids"},
}

var shellBgDetailSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"pid":         map[string]any{"type": "integer"},
		"limit_lines": map[string]any{"type": "integer", "minimum": 1},
	},
	"required": []string{"pid"},
}
