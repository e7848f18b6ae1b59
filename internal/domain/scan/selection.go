package scan

import "fmt"

// Selection restricts code generation per category. A missing category means "everything",
// an explicit empty list means "nothing".
type Selection map[string][]any

// IsEmpty reports whether the selection restricts nothing at all
func (s Selection) IsEmpty() bool {
	return len(s) == 0
}

// Total returns the number of identity markers across all categories
func (s Selection) Total() int {
	n := 0
	for _, markers := range s {
		n += len(markers)
	}
	return n
}

// Merge overwrites s per category with the lists in other
func (s Selection) Merge(other Selection) Selection {
	out := make(Selection, len(s)+len(other))
	for c, markers := range s {
		out[c] = markers
	}
	for c, markers := range other {
		if markers == nil {
			markers = []any{}
		}
		out[c] = markers
	}
	return out
}

// Identities resolves the markers of category into a set of identity strings.
// The second value is false when the category is unrestricted.
func (s Selection) Identities(category string) (map[string]struct{}, bool) {
	markers, ok := s[category]
	if !ok {
		return nil, false
	}
	set := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		if id := MarkerIdentity(category, m); id != "" {
			set[id] = struct{}{}
		}
	}
	return set, true
}

var identityFields = map[string][]string{
	CategoryUsers:             {"user_name", "arn"},
	CategoryGroups:            {"group_name", "arn"},
	CategoryRoles:             {"role_name", "arn"},
	CategoryPolicies:          {"arn", "policy_name"},
	CategoryPolicyAttachments: {"attachment_id"},
	CategoryRoleDefinitions:   {"id", "role_name"},
	CategoryRoleAssignments:   {"id", "name"},
}

var fallbackIdentityFields = []string{"arn", "id", "name"}

// IdentityKey returns the field that uniquely identifies a record of category
func IdentityKey(category string) string {
	if fields, ok := identityFields[category]; ok {
		return fields[0]
	}
	return "id"
}

// IdentityOf extracts the identity of a record using the category precedence list,
// then the generic arn/id/name fallbacks.
func IdentityOf(category string, fields map[string]any) string {
	for _, key := range identityFields[category] {
		if v := stringField(fields, key); v != "" {
			return v
		}
	}
	for _, key := range fallbackIdentityFields {
		if v := stringField(fields, key); v != "" {
			return v
		}
	}
	return ""
}

// MarkerIdentity turns a selection marker into an identity string. Markers are either raw
// identity strings or objects shaped like records.
func MarkerIdentity(category string, marker any) string {
	switch m := marker.(type) {
	case string:
		return m
	case map[string]any:
		return IdentityOf(category, m)
	case Record:
		return IdentityOf(category, m)
	case fmt.Stringer:
		return m.String()
	default:
		return ""
	}
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}
