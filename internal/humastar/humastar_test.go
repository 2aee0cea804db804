package humastar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeblew999/droneflow/internal/humastar"
)

func TestActionLinkHeader(t *testing.T) {
	a := humastar.Action{Rel: "process", Href: "/w/process", Method: "POST", Title: `Run "now"`}
	assert.Equal(t, `</w/process>; rel="process"; method="POST"; title="Run 'now'"`, a.LinkHeader())

	a = humastar.Action{Rel: "drainage", Href: "/w/layers/drainage", Type: "application/geo+json"}
	assert.Equal(t, `</w/layers/drainage>; rel="drainage"; type="application/geo+json"`, a.LinkHeader())
}

func TestActionSet(t *testing.T) {
	var set humastar.ActionSet
	set.When(true, humastar.Action{Rel: "a"}).When(false, humastar.Action{Rel: "b"}).When(true, humastar.Action{Rel: "c"})
	assert.Len(t, set, 2)
	assert.Equal(t, "c", set[1].Rel)
}

func TestPaginationLinks(t *testing.T) {
	p := humastar.NewPage([]int{3, 4}, 7, 2, 2)
	assert.Equal(t, []string{
		`</runs?offset=0&limit=2>; rel="first"`,
		`</runs?offset=0&limit=2>; rel="prev"`,
		`</runs?offset=4&limit=2>; rel="next"`,
		`</runs?offset=6&limit=2>; rel="last"`,
	}, p.PaginationLinks("/runs"))

	empty := humastar.NewPage[int](nil, 0, 0, 20)
	assert.NotNil(t, empty.Data)
	assert.Equal(t, []string{
		`</runs?offset=0&limit=20>; rel="first"`,
		`</runs?offset=0&limit=20>; rel="last"`,
	}, empty.PaginationLinks("/runs"))

	assert.Nil(t, humastar.NewPage([]int{1}, 1, 0, 0).PaginationLinks("/runs"))
}
