package rdf

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// NamespaceMap maps prefixes to namespace IRIs.
// The zero value is not usable; use NewNamespaceMap.
type NamespaceMap struct {
	prefixes map[string]string
}

// NewNamespaceMap creates a map preloaded with the rdf and xsd prefixes.
func NewNamespaceMap() *NamespaceMap {
	return &NamespaceMap{prefixes: map[string]string{
		"rdf": RDFNamespace,
		"xsd": XSDNamespace,
	}}
}

// Set binds prefix to namespace, replacing any earlier binding.
func (m *NamespaceMap) Set(prefix, namespace string) {
	m.prefixes[prefix] = namespace
}

// Get returns the namespace bound to prefix.
func (m *NamespaceMap) Get(prefix string) (string, bool) {
	ns, ok := m.prefixes[prefix]
	return ns, ok
}

// Prefixes returns the bound prefixes in sorted order.
func (m *NamespaceMap) Prefixes() []string {
	out := make([]string, 0, len(m.prefixes))
	for p := range m.prefixes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Import copies every binding of other into m.
func (m *NamespaceMap) Import(other *NamespaceMap) {
	if other == nil {
		return
	}
	for p, ns := range other.prefixes {
		m.prefixes[p] = ns
	}
}

// Clone returns an independent copy.
func (m *NamespaceMap) Clone() *NamespaceMap {
	c := &NamespaceMap{prefixes: make(map[string]string, len(m.prefixes))}
	c.Import(m)
	return c
}

// ResolveQName expands prefix:local against ns. The empty prefix without a
// binding falls back to the base IRI.
func ResolveQName(qname string, ns *NamespaceMap, base IRI) (IRI, error) {
	prefix, local, ok := strings.Cut(qname, ":")
	if !ok {
		return "", fmt.Errorf("%q is not a prefixed name", qname)
	}
	if ns != nil {
		if namespace, found := ns.Get(prefix); found {
			return IRI(namespace + local), nil
		}
	}
	if prefix == "" && base != "" {
		return IRI(string(base) + local), nil
	}
	return "", fmt.Errorf("prefix %q is not declared", prefix)
}

// ResolveIRI resolves ref against base. Absolute references are returned
// unchanged. A trailing empty fragment ("ns#") survives resolution.
func ResolveIRI(ref string, base IRI) (IRI, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid IRI %q: %w", ref, err)
	}
	if u.IsAbs() || base == "" {
		return IRI(ref), nil
	}
	b, err := url.Parse(string(base))
	if err != nil {
		return "", fmt.Errorf("invalid base IRI %q: %w", base, err)
	}
	resolved := b.ResolveReference(u)
	out := resolved.String()
	if strings.HasSuffix(ref, "#") && resolved.Fragment == "" && !strings.HasSuffix(out, "#") {
		out += "#"
	}
	return IRI(out), nil
}
