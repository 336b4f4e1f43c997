package strut

import (
	"fmt"
	"strings"
)

// templateSegment is one slash-delimited element of a parsed template.
// Exactly one of literal or name is meaningful: variable segments have a
// name, literal segments have text.
type templateSegment struct {
	literal string
	name    string
	wild    bool
}

func (s templateSegment) isVar() bool { return s.name != "" }

// pathTemplate is the parsed form of a route template such as
// "/widgets/{id}" or "/assets/{rest...}". Variable names are unique within
// a template and a wildcard may only appear as the final segment.
type pathTemplate struct {
	raw      string
	segments []templateSegment
	vars     []string // declaration order, wildcard included
	wild     bool
}

// parseTemplate validates and parses a route template. All failures wrap
// ErrTemplateSyntax.
func parseTemplate(raw string) (*pathTemplate, error) {
	if raw == "" || raw[0] != '/' {
		return nil, fmt.Errorf("%w: %q must begin with a slash", ErrTemplateSyntax, raw)
	}

	tmpl := &pathTemplate{raw: raw}
	if raw == "/" {
		return tmpl, nil
	}

	seen := make(map[string]struct{})
	parts := strings.Split(raw[1:], "/")
	for i, part := range parts {
		if tmpl.wild {
			return nil, fmt.Errorf("%w: %q has segments after wildcard", ErrTemplateSyntax, raw)
		}
		if part == "" {
			return nil, fmt.Errorf("%w: %q contains an empty segment", ErrTemplateSyntax, raw)
		}

		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]
			wild := strings.HasSuffix(name, "...")
			if wild {
				name = strings.TrimSuffix(name, "...")
				if i != len(parts)-1 {
					return nil, fmt.Errorf("%w: %q wildcard must be the final segment", ErrTemplateSyntax, raw)
				}
			}
			if !validVarName(name) {
				return nil, fmt.Errorf("%w: %q has invalid variable name %q", ErrTemplateSyntax, raw, name)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("%w: %q declares variable %q twice", ErrTemplateSyntax, raw, name)
			}
			seen[name] = struct{}{}
			tmpl.segments = append(tmpl.segments, templateSegment{name: name, wild: wild})
			tmpl.vars = append(tmpl.vars, name)
			tmpl.wild = tmpl.wild || wild
			continue
		}

		if strings.ContainsAny(part, "{}") {
			return nil, fmt.Errorf("%w: %q has a malformed segment %q", ErrTemplateSyntax, raw, part)
		}
		tmpl.segments = append(tmpl.segments, templateSegment{literal: part})
	}

	return tmpl, nil
}

// validVarName reports whether name is a valid template variable name:
// a non-empty identifier of letters, digits, and underscores that does
// not start with a digit.
func validVarName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// splitPath splits a request path into segments, dropping empties so that
// trailing slashes and doubled slashes do not affect matching.
func splitPath(path string) []string {
	segs := make([]string, 0, strings.Count(path, "/"))
	for seg := range strings.SplitSeq(path, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// openAPIPath renders the template in OpenAPI form: wildcard segments lose
// their ellipsis, everything else is unchanged.
func (t *pathTemplate) openAPIPath() string {
	return strings.ReplaceAll(t.raw, "...", "")
}
