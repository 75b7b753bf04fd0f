package model

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hash is a structural fingerprint of a subtree.
type Hash uint64

func (h Hash) String() string {
	return strconv.FormatUint(uint64(h), 16)
}

// MarshalText renders the hash in hex.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Equal reports whether a and b hold the same content. Mapping key order
// never matters and RefNameKey fields are ignored.
func Equal(a, b Node) bool {
	switch av := a.(type) {
	case *Scalar:
		bv, ok := b.(*Scalar)
		return ok && av.Tag == bv.Tag && av.Value == bv.Value
	case *Sequence:
		bv, ok := b.(*Sequence)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		bv, ok := b.(*Mapping)
		if !ok {
			return false
		}
		if contentLen(av) != contentLen(bv) {
			return false
		}
		for k, f := range av.Fields {
			if k == RefNameKey {
				continue
			}
			g, ok := bv.Fields[k]
			if !ok || !Equal(f, g) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

func contentLen(m *Mapping) int {
	n := len(m.Fields)
	if _, ok := m.Fields[RefNameKey]; ok {
		n--
	}
	return n
}

// Fingerprint hashes the content of n. Nodes that are Equal have equal
// fingerprints.
func Fingerprint(n Node) Hash {
	d := xxhash.New()
	writeCanonical(d, n)
	return Hash(d.Sum64())
}

func writeCanonical(d *xxhash.Digest, n Node) {
	switch v := n.(type) {
	case *Scalar:
		d.WriteString("s")
		writeField(d, v.Tag)
		writeField(d, v.Value)
	case *Sequence:
		d.WriteString("q" + strconv.Itoa(len(v.Items)) + ";")
		for _, it := range v.Items {
			writeCanonical(d, it)
		}
	case *Mapping:
		keys := make([]string, 0, len(v.Fields))
		for k := range v.Fields {
			if k != RefNameKey {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		d.WriteString("m" + strconv.Itoa(len(keys)) + ";")
		for _, k := range keys {
			writeField(d, k)
			writeCanonical(d, v.Fields[k])
		}
	default:
		d.WriteString("n")
	}
}

func writeField(d *xxhash.Digest, s string) {
	d.WriteString(strconv.Itoa(len(s)) + ":")
	d.WriteString(s)
}
