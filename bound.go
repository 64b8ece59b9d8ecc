package cavl

import "cmp"

// boundKind tags a bound as one of the two permanent sentinel values or an
// actual caller-supplied key. Keeping the sentinels out of band like this
// (rather than reserving magic values such as ±100000) means New works for
// any K a caller chooses; see DESIGN.md's "Sentinel values" decision.
type boundKind int8

const (
	negInf boundKind = iota
	finiteKey
	posInf
)

// bound wraps a node's key so that the two sentinels compare below and
// above every real key without needing a reserved value of K.
type bound[K cmp.Ordered] struct {
	kind boundKind
	key  K
}

func negInfBound[K cmp.Ordered]() bound[K] {
	return bound[K]{kind: negInf}
}

func posInfBound[K cmp.Ordered]() bound[K] {
	return bound[K]{kind: posInf}
}

func finiteBound[K cmp.Ordered](k K) bound[K] {
	return bound[K]{kind: finiteKey, key: k}
}

// compareBounds returns a negative number if a orders before b, zero if
// they're equal, and a positive number if a orders after b.
func compareBounds[K cmp.Ordered](a, b bound[K]) int {
	if a.kind != finiteKey || b.kind != finiteKey {
		return int(a.kind) - int(b.kind)
	}
	return cmp.Compare(a.key, b.key)
}
