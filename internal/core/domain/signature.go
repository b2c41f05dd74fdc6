package domain

import (
	"slices"
	"sort"
	"strings"

	"github.com/gosimple/slug"
)

// FileValueIdentifier derives the duplicate-detection identifier of a
// file value: the slug of the trailing path segment of its url.
func FileValueIdentifier(fileURL string) string {
	segment := fileURL
	if i := strings.LastIndex(fileURL, "/"); i >= 0 {
		segment = fileURL[i+1:]
	}
	return slug.Make(segment)
}

// An AttributeValues maps attribute id to the ordered list of value
// identifiers that attribute contributes to a variant's configuration.
// Value lists preserve order and repeated identical values.
type AttributeValues map[string][]string

// Equal reports exact structural equality: same attribute-id keys and
// the same per-key value list, order-sensitive.
func (av AttributeValues) Equal(other AttributeValues) bool {
	if len(av) != len(other) {
		return false
	}
	for id, vs := range av {
		ovs, ok := other[id]
		if !ok {
			return false
		}
		if !slices.Equal(vs, ovs) {
			return false
		}
	}
	return true
}

// AttributeIDs returns the signature's attribute ids in sorted order.
func (av AttributeValues) AttributeIDs() []string {
	ids := make([]string, 0, len(av))
	for id := range av {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// canonicalEscaper keeps Canonical injective: the separator bytes and
// the escape byte never appear unescaped inside a key or value.
var canonicalEscaper = strings.NewReplacer(
	`\`, `\\`,
	"=", `\=`,
	"|", `\|`,
	";", `\;`,
)

// Canonical serializes the signature deterministically. Signatures
// serialize to the same string exactly when Equal, which makes the
// result usable as a storage-level uniqueness key.
func (av AttributeValues) Canonical() string {
	var b strings.Builder
	for i, id := range av.AttributeIDs() {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(canonicalEscaper.Replace(id))
		b.WriteByte('=')
		for j, v := range av[id] {
			if j > 0 {
				b.WriteByte('|')
			}
			b.WriteString(canonicalEscaper.Replace(v))
		}
	}
	return b.String()
}
