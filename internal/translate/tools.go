package translate

import (
	"github.com/modelrelay/modelrelay/internal/core/domain"
)

// toolDecl is the canonical tool declaration all three families reduce to.
type toolDecl struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// extractTools normalizes tool/function declarations from whichever slot
// the source family uses, removing the source fields and every
// tool-choice directive (those never survive a conversion).
func extractTools(req map[string]any, src domain.FormatFamily) []toolDecl {
	var decls []toolDecl

	appendDecl := func(name, desc string, params map[string]any) {
		if name == "" {
			return
		}
		decls = append(decls, toolDecl{Name: name, Description: desc, Parameters: params})
	}

	for _, raw := range asSlice(req["tools"]) {
		tool := asMap(raw)
		if tool == nil {
			continue
		}
		if fn := asMap(tool["function"]); fn != nil {
			appendDecl(asString(fn["name"]), asString(fn["description"]), asMap(fn["parameters"]))
			continue
		}
		if fds := asSlice(tool["functionDeclarations"]); fds != nil {
			for _, rawDecl := range fds {
				if fd := asMap(rawDecl); fd != nil {
					appendDecl(asString(fd["name"]), asString(fd["description"]), asMap(fd["parameters"]))
				}
			}
			continue
		}
		// Anthropic's flat shape: name/description/input_schema.
		appendDecl(asString(tool["name"]), asString(tool["description"]), asMap(tool["input_schema"]))
	}

	for _, raw := range asSlice(req["functions"]) {
		fn := asMap(raw)
		if fn == nil {
			continue
		}
		appendDecl(asString(fn["name"]), asString(fn["description"]), asMap(fn["parameters"]))
	}

	for _, raw := range asSlice(req["functionDeclarations"]) {
		fd := asMap(raw)
		if fd == nil {
			continue
		}
		appendDecl(asString(fd["name"]), asString(fd["description"]), asMap(fd["parameters"]))
	}

	delete(req, "tools")
	delete(req, "functions")
	delete(req, "functionDeclarations")
	delete(req, "tool_choice")
	delete(req, "function_call")
	delete(req, "tool_config")
	delete(req, "toolConfig")

	return decls
}

// emitTools writes the canonical declarations in the target's shape.
func emitTools(req map[string]any, decls []toolDecl, dst domain.FormatFamily) {
	if len(decls) == 0 {
		return
	}

	switch dst {
	case domain.FormatOpenAI:
		tools := make([]any, 0, len(decls))
		for _, d := range decls {
			fn := map[string]any{"name": d.Name}
			if d.Description != "" {
				fn["description"] = d.Description
			}
			if d.Parameters != nil {
				fn["parameters"] = d.Parameters
			}
			tools = append(tools, map[string]any{"type": "function", "function": fn})
		}
		req["tools"] = tools

	case domain.FormatAnthropic:
		tools := make([]any, 0, len(decls))
		for _, d := range decls {
			tool := map[string]any{"name": d.Name}
			if d.Description != "" {
				tool["description"] = d.Description
			}
			if d.Parameters != nil {
				tool["input_schema"] = d.Parameters
			}
			tools = append(tools, tool)
		}
		req["tools"] = tools

	case domain.FormatGoogle:
		fds := make([]any, 0, len(decls))
		for _, d := range decls {
			fd := map[string]any{"name": d.Name}
			if d.Description != "" {
				fd["description"] = d.Description
			}
			if d.Parameters != nil {
				fd["parameters"] = d.Parameters
			}
			fds = append(fds, fd)
		}
		req["tools"] = []any{map[string]any{"functionDeclarations": fds}}
	}
}
