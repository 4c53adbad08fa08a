// Package authz provides the explicit role authorization policy. Entry points
// call Authorize with the acting subject's roles instead of relying on ambient
// request state, so the policy is trivially testable and has no hidden inputs.
package authz

import "strings"

// Authorize reports whether the actual roles satisfy the required ones. With
// requireAll set, every required role must be held; otherwise one suffices.
// Role names are compared case-insensitively after trimming. An empty
// requirement always passes.
func Authorize(required []string, requireAll bool, actual []string) bool {
	requiredSet := normalize(required)
	if len(requiredSet) == 0 {
		return true
	}

	actualSet := normalize(actual)
	matched := 0
	for role := range requiredSet {
		if _, ok := actualSet[role]; ok {
			matched++
		}
	}

	if requireAll {
		return matched == len(requiredSet)
	}
	return matched > 0
}

func normalize(roles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}
