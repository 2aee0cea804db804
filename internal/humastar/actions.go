package humastar

import (
	"fmt"
	"strings"
)

// Action is a hypermedia link to an operation that is valid in the current
// state of a resource. Response bodies implementing Actor emit one Link
// header per action, for example:
//
//	</api/v1/workspace/process>; rel="process"; method="POST"; title="Re-run analysis"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
	// Type is the media type of the target, e.g. "application/geo+json".
	Type string
}

// Actor is implemented by response bodies that provide state-dependent actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link header value.
func (a Action) LinkHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<%s>; rel="%s"`, a.Href, a.Rel)
	param := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, `; %s="%s"`, k, strings.ReplaceAll(v, `"`, `'`))
		}
	}
	param("method", a.Method)
	param("title", a.Title)
	param("type", a.Type)
	return b.String()
}

// ActionSet collects the actions of a response body.
type ActionSet []Action

// When appends a if ok holds.
func (s *ActionSet) When(ok bool, a Action) *ActionSet {
	if ok {
		*s = append(*s, a)
	}
	return s
}
