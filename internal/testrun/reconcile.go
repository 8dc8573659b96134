package testrun

import "sort"

// Reconcile diff-checks the observed failure set against the declared
// expected-failure set. It is a pure function so the expectation semantics
// are testable without any provider collaborator.
//
// An identifier that failed but was not expected, or was expected but did
// not fail, is a mismatch. The tolerated set covers identifiers that did
// not conclusively fail but cannot be proven healthy either (checks with
// status unknown): a tolerated identifier satisfies an expectation but is
// never a failure on its own.
//
// The returned diagnostics cover the union of all three sets, expected
// identifiers first in their declared order, then the rest sorted.
func Reconcile(expected, failed, tolerated []string) ([]Diagnostic, bool) {
	failedSet := toSet(failed)
	toleratedSet := toSet(tolerated)
	expectedSet := toSet(expected)

	var diags []Diagnostic
	pass := true

	for _, id := range dedup(expected) {
		d := Diagnostic{Identifier: id, Expected: true}
		switch {
		case failedSet[id]:
			d.Failed = true
		case toleratedSet[id]:
			// Unknown satisfies the expectation: the identifier could not
			// be proven healthy this run.
			d.Failed = true
			d.Detail = "could not be resolved this run"
		default:
			d.Detail = "expected failure did not occur"
			pass = false
		}
		diags = append(diags, d)
	}

	var rest []string
	for _, id := range dedup(failed) {
		if !expectedSet[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		diags = append(diags, Diagnostic{
			Identifier: id,
			Failed:     true,
			Detail:     "unexpected failure",
		})
		pass = false
	}

	return diags, pass
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
