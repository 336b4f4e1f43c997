package strut

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// node is one level of the routing trie. Each node has any number of
// literal children, at most one variable child (all templates sharing the
// position must agree on the variable name), and at most one wildcard
// child. Endpoints hang off the node where their template ends, keyed by
// method.
type node struct {
	literals map[string]*node
	variable *node
	varName  string
	wildcard *node
	wildName string

	endpoints map[string]*endpoint
}

func newNode() *node {
	return &node{}
}

func (n *node) literalChild(seg string) *node {
	if n.literals == nil {
		n.literals = make(map[string]*node)
	}
	child, ok := n.literals[seg]
	if !ok {
		child = newNode()
		n.literals[seg] = child
	}
	return child
}

// methods returns the node's registered methods in sorted order, for the
// Allow header.
func (n *node) methods() []string {
	out := make([]string, 0, len(n.endpoints))
	for m := range n.endpoints {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// router is the registration-time trie. It is append-only: endpoints are
// inserted while the service is being assembled and the structure is never
// mutated once requests are flowing, so lookups take no lock.
type router struct {
	root *node
}

func newRouter() *router {
	return &router{root: newNode()}
}

// insert adds an endpoint to the trie. It fails on a duplicate
// method+template pair and on variable-name disagreements at a shared
// position; both are registration errors, not panics.
func (rt *router) insert(ep *endpoint) error {
	n := rt.root
	for _, seg := range ep.template.segments {
		switch {
		case seg.wild:
			if n.wildcard == nil {
				n.wildcard = newNode()
				n.wildName = seg.name
			} else if n.wildName != seg.name {
				return fmt.Errorf("%w: wildcard {%s...} conflicts with existing {%s...}", ErrVarNameConflict, seg.name, n.wildName)
			}
			n = n.wildcard
		case seg.isVar():
			if n.variable == nil {
				n.variable = newNode()
				n.varName = seg.name
			} else if n.varName != seg.name {
				return fmt.Errorf("%w: variable {%s} conflicts with existing {%s}", ErrVarNameConflict, seg.name, n.varName)
			}
			n = n.variable
		default:
			n = n.literalChild(seg.literal)
		}
	}

	if _, dup := n.endpoints[ep.method]; dup {
		return fmt.Errorf("%w: %s %s is already registered", ErrRouteConflict, ep.method, ep.rawTemplate)
	}
	if n.endpoints == nil {
		n.endpoints = make(map[string]*endpoint)
	}
	n.endpoints[ep.method] = ep
	return nil
}

type matchKind int

const (
	matchNone matchKind = iota
	matchWrongMethod
	matchFound
)

// lookupResult is the outcome of routing one request.
type lookupResult struct {
	kind     matchKind
	endpoint *endpoint
	vars     map[string]string
	allow    []string // populated for matchWrongMethod
}

type pathVar struct {
	name  string
	value string
}

// lookup resolves a method and path against the trie. Path resolution is
// method-blind: the highest-priority node whose template matches the path
// decides, and only then is the method checked. A HEAD request without a
// HEAD endpoint falls back to GET; net/http discards the body for HEAD.
func (rt *router) lookup(method, path string) lookupResult {
	var vars []pathVar
	n := rt.root.find(splitPath(path), &vars)
	if n == nil || len(n.endpoints) == 0 {
		return lookupResult{kind: matchNone}
	}

	ep, ok := n.endpoints[method]
	if !ok && method == http.MethodHead {
		ep, ok = n.endpoints[http.MethodGet]
	}
	if !ok {
		return lookupResult{kind: matchWrongMethod, allow: n.methods()}
	}

	res := lookupResult{kind: matchFound, endpoint: ep}
	if len(vars) > 0 {
		res.vars = make(map[string]string, len(vars))
		for _, v := range vars {
			res.vars[v.name] = v.value
		}
	}
	return res
}

// find walks the trie, consuming segments and recording variable captures.
// Priority at each level is literal child, then variable child, then
// wildcard; captures are rolled back when a branch dead-ends so the next
// candidate sees a clean slate.
func (n *node) find(segs []string, vars *[]pathVar) *node {
	if len(segs) == 0 {
		if len(n.endpoints) > 0 {
			return n
		}
		if n.wildcard != nil && len(n.wildcard.endpoints) > 0 {
			*vars = append(*vars, pathVar{name: n.wildName})
			return n.wildcard
		}
		return nil
	}

	seg := segs[0]
	if child, ok := n.literals[seg]; ok {
		if m := child.find(segs[1:], vars); m != nil {
			return m
		}
	}

	if n.variable != nil {
		*vars = append(*vars, pathVar{name: n.varName, value: seg})
		if m := n.variable.find(segs[1:], vars); m != nil {
			return m
		}
		*vars = (*vars)[:len(*vars)-1]
	}

	if n.wildcard != nil && len(n.wildcard.endpoints) > 0 {
		*vars = append(*vars, pathVar{name: n.wildName, value: strings.Join(segs, "/")})
		return n.wildcard
	}

	return nil
}
