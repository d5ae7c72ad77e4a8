package rdf

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DomainGraph prefixes graph fingerprints. The version suffix allows the
// encoding to change without colliding with older fingerprints.
const DomainGraph = "quarry/graph/v1"

// Key returns the canonical string of a node: its N-Triples form, NFC
// normalised, with the blank-node scope appended when present.
// Two nodes are Equal iff their keys are equal.
func Key(n Node) string {
	if n == nil {
		return ""
	}
	if b, ok := n.(BlankNode); ok && b.Scope != "" {
		return "_:" + b.ID + "@" + b.Scope
	}
	return norm.NFC.String(n.String())
}

// Fingerprint computes a content hash of the graph's triples.
// Format: SHA256(domain + 0x00 + sorted canonical lines).
// Blank nodes are hashed by label only, so a graph and its reloaded copy agree.
func Fingerprint(g *Graph) string {
	h := sha256.New()
	h.Write([]byte(DomainGraph))
	h.Write([]byte{0x00})
	for _, t := range g.Triples() {
		var b strings.Builder
		b.WriteString(norm.NFC.String(t.String()))
		b.WriteByte('\n')
		h.Write([]byte(b.String()))
	}
	return hex.EncodeToString(h.Sum(nil))
}
