// Package combo resolves combination columns: attributes whose display
// value derives from other attributes of the same data model. Resolution
// is a pure function of the attribute graph and one record's stored
// values; nothing here touches the database.
package combo

import (
	"sort"
	"strings"

	"github.com/24ep/mdm-sub019/internal/apperr"
	"github.com/24ep/mdm-sub019/internal/attrtype"
	"github.com/24ep/mdm-sub019/internal/model"
)

// Spec is the declarative definition of one combination column.
// AttributeID is zero for a spec that has not been materialized yet.
type Spec struct {
	AttributeID uint
	Code        string
	Strategy    string
	Separator   string
	MemberIDs   []uint
}

// SpecFromAttribute extracts the Spec of a COMBO attribute, members in
// position order.
func SpecFromAttribute(a *model.Attribute) Spec {
	members := make([]model.ComboMember, len(a.ComboMembers))
	copy(members, a.ComboMembers)
	sort.SliceStable(members, func(i, j int) bool { return members[i].Position < members[j].Position })

	ids := make([]uint, len(members))
	for i, m := range members {
		ids[i] = m.MemberAttributeID
	}
	return Spec{
		AttributeID: a.ID,
		Code:        a.Code,
		Strategy:    a.ComboStrategy,
		Separator:   a.ComboSeparator,
		MemberIDs:   ids,
	}
}

// Diagnostic reports a non-fatal resolution problem: a combo member whose
// attribute no longer exists. Rendering substitutes an empty string.
type Diagnostic struct {
	AttributeID uint   `json:"attribute_id"`
	Code        string `json:"code"`
	MemberID    uint   `json:"member_id"`
}

// Graph is a snapshot of one data model's attributes used for cycle
// checking and resolution.
type Graph struct {
	attrs  map[uint]*model.Attribute
	combos map[uint]Spec
}

// NewGraph builds a Graph from a model's full attribute list.
func NewGraph(attrs []model.Attribute) *Graph {
	g := &Graph{
		attrs:  make(map[uint]*model.Attribute, len(attrs)),
		combos: make(map[uint]Spec),
	}
	for i := range attrs {
		a := &attrs[i]
		g.attrs[a.ID] = a
		if attrtype.Kind(a.Type) == attrtype.Combo {
			g.combos[a.ID] = SpecFromAttribute(a)
		}
	}
	return g
}

// ValidateSpec checks a new or edited combo spec against the graph:
// strategy arity, member existence, and acyclicity with the candidate
// overlaid on the stored specs. Called before any persistence; a rejected
// spec leaves the stored graph untouched.
func (g *Graph) ValidateSpec(candidate Spec) error {
	switch candidate.Strategy {
	case model.ComboStrategyLeftRight:
		if len(candidate.MemberIDs) != 2 {
			return apperr.Validation(candidate.Code, "member_count",
				"LEFT_RIGHT requires exactly two members, got %d", len(candidate.MemberIDs))
		}
	case model.ComboStrategyGrouping:
		if len(candidate.MemberIDs) == 0 {
			return apperr.Validation(candidate.Code, "member_count",
				"GROUPING requires at least one member")
		}
	default:
		return apperr.Validation(candidate.Code, "strategy",
			"unknown combo strategy %q", candidate.Strategy)
	}

	for _, id := range candidate.MemberIDs {
		if id == candidate.AttributeID && id != 0 {
			return apperr.Cyclic(candidate.Code, "combination column cannot reference itself")
		}
		if _, ok := g.attrs[id]; !ok {
			return apperr.Validation(candidate.Code, "unknown_member",
				"member attribute %d does not exist on this data model", id)
		}
	}

	// Overlay the candidate and walk depth-first from it. New specs get a
	// synthetic node; edited specs replace their stored definition.
	overlay := make(map[uint]Spec, len(g.combos)+1)
	for id, s := range g.combos {
		overlay[id] = s
	}
	start := candidate.AttributeID
	if start == 0 {
		start = ^uint(0) // synthetic id for a not-yet-materialized spec
		candidate.AttributeID = start
	}
	overlay[start] = candidate

	onPath := map[uint]bool{}
	visited := map[uint]bool{}
	var walk func(id uint) error
	walk = func(id uint) error {
		if onPath[id] {
			return apperr.Cyclic(candidate.Code, "combination column members form a cycle")
		}
		if visited[id] {
			return nil
		}
		spec, isCombo := overlay[id]
		if !isCombo {
			return nil
		}
		onPath[id] = true
		for _, m := range spec.MemberIDs {
			if err := walk(m); err != nil {
				return err
			}
		}
		onPath[id] = false
		visited[id] = true
		return nil
	}
	return walk(start)
}

// Resolve computes the display value of one combo attribute for a record
// whose stored values are given by attribute id. Missing plain values
// resolve to ""; members whose attribute was deleted resolve to "" and
// are reported as diagnostics instead of failing the render.
func (g *Graph) Resolve(attributeID uint, values map[uint]string) (string, []Diagnostic) {
	r := &resolution{graph: g, values: values, memo: map[uint]string{}}
	out := r.resolve(attributeID)
	return out, r.diagnostics
}

// ResolveAll resolves every combo attribute in the graph for one record,
// keyed by attribute id. Sub-combos shared between parents are computed
// once per pass.
func (g *Graph) ResolveAll(values map[uint]string) (map[uint]string, []Diagnostic) {
	r := &resolution{graph: g, values: values, memo: map[uint]string{}}
	out := make(map[uint]string, len(g.combos))
	for id := range g.combos {
		out[id] = r.resolve(id)
	}
	return out, r.diagnostics
}

// resolution is one memoized render pass.
type resolution struct {
	graph       *Graph
	values      map[uint]string
	memo        map[uint]string
	diagnostics []Diagnostic
}

func (r *resolution) resolve(id uint) string {
	if v, ok := r.memo[id]; ok {
		return v
	}
	spec, isCombo := r.graph.combos[id]
	if !isCombo {
		// Plain attribute: the stored value, or empty if never written.
		return r.values[id]
	}

	parts := make([]string, len(spec.MemberIDs))
	for i, m := range spec.MemberIDs {
		if _, exists := r.graph.attrs[m]; !exists {
			r.diagnostics = append(r.diagnostics, Diagnostic{
				AttributeID: spec.AttributeID,
				Code:        spec.Code,
				MemberID:    m,
			})
			parts[i] = ""
			continue
		}
		parts[i] = r.resolve(m)
	}

	// Empty members keep their separator slots; trimming would make the
	// rendered value ambiguous about which member was empty.
	value := strings.Join(parts, spec.Separator)
	r.memo[id] = value
	return value
}
