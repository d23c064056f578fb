package clinical

import "strings"

// Status is the verification outcome of a sheet.
type Status string

const (
	NonCompliant Status = "non_compliant"
	Partial      Status = "partial"
	Compliant    Status = "compliant"
	Unresolved   Status = "unresolved"
)

// Statuses lists every status in severity order.
var Statuses = []Status{NonCompliant, Partial, Compliant, Unresolved}

// ParseStatus maps a model-reported status to a Status. Hyphenated,
// underscored, and mixed-case spellings are accepted; "unresolved" is not
// a judgement and is rejected alongside unknown values.
func ParseStatus(raw string) (Status, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")

	switch Status(s) {
	case Compliant:
		return Compliant, true
	case Partial:
		return Partial, true
	case NonCompliant:
		return NonCompliant, true
	}
	return "", false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case NonCompliant, Partial, Compliant, Unresolved:
		return true
	}
	return false
}
