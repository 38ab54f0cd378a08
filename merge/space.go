// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import "fmt"

// Space classifies a tensor role as absolute parameter values (Base),
// fine-tune offsets (Delta), or both. It is a registration-time contract
// consulted by the execution engine, not a runtime tensor field.
type Space uint8

// Merge spaces.
const (
	Base Space = 1 << iota
	Delta

	// Same accepts either space; all Same-tagged arguments of one operator
	// must unify to a common space, which the operator also returns.
	Same = Base | Delta
)

// String returns a human-readable space name.
func (s Space) String() string {
	switch s {
	case Base:
		return "base"
	case Delta:
		return "delta"
	case Same:
		return "same"
	default:
		return "invalid"
	}
}

// Intersect returns the spaces common to s and other.
func (s Space) Intersect(other Space) Space {
	return s & other
}

// Accepts reports whether an argument declared as s accepts a tensor
// classified as actual.
func (s Space) Accepts(actual Space) bool {
	return s&actual != 0
}

// unifySame folds the actual spaces of all Same-declared arguments.
// Returns an error when they have no space in common.
func unifySame(actuals []Space) (Space, error) {
	unified := Same
	for _, a := range actuals {
		unified = unified.Intersect(a)
		if unified == 0 {
			return 0, fmt.Errorf("merge spaces do not unify: %v", actuals)
		}
	}
	return unified, nil
}
