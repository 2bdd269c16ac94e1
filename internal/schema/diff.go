package schema

import (
	"sort"

	"github.com/flowmesh/controlplane/internal/model"
)

// Diff reports the breaking changes introduced by moving from prev to
// next, per the conservative rule this system applies: a field required
// in prev that is absent from next, or that changed its set of observed
// primitive types, in next is breaking. Widening (adding an optional
// field, adding a new observed type to an existing field) is not.
func Diff(prev, next model.JSONSchema) []string {
	var changes []string
	requiredPrev := toSet(prev.Required)

	for name := range requiredPrev {
		prevField, hadField := prev.Properties[name]
		nextField, stillPresent := next.Properties[name]
		if !stillPresent {
			changes = append(changes, "field "+name+" removed")
			continue
		}
		if hadField && !sameTypes(prevField.Types, nextField.Types) {
			changes = append(changes, "field "+name+" type changed")
		}
	}
	sort.Strings(changes)
	return changes
}

func sameTypes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	setA := toSet(a)
	for _, t := range b {
		if !setA[t] {
			return false
		}
	}
	return true
}
