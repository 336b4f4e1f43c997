package strut

import "slices"

// Group is a collection of endpoints under a shared template prefix with
// shared tags. Registration flows through to the parent service, so all
// contract and collision checks see the full, prefixed template.
type Group struct {
	svc    *Service
	prefix string
	tags   []string
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithGroupTags adds default tags to all endpoints registered on the group.
func WithGroupTags(tags ...string) GroupOption {
	return func(g *Group) {
		g.tags = append(g.tags, tags...)
	}
}

// Group creates a new endpoint group with the given prefix and options.
func (s *Service) Group(prefix string, opts ...GroupOption) *Group {
	g := &Group{
		svc:    s,
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Group creates a nested group. Prefixes and tags accumulate.
func (g *Group) Group(prefix string, opts ...GroupOption) *Group {
	sub := &Group{
		svc:    g.svc,
		prefix: g.prefix + prefix,
		tags:   slices.Clone(g.tags),
	}
	for _, opt := range opts {
		opt(sub)
	}
	return sub
}

// register implements Registrar for Group.
func (g *Group) register(ep *endpoint) error {
	ep.rawTemplate = g.prefix + ep.rawTemplate
	if len(g.tags) > 0 {
		ep.tags = append(slices.Clone(g.tags), ep.tags...)
	}
	return g.svc.register(ep)
}
