package resolve

import (
	"encoding/json"
	"fmt"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/unit"
)

// Node is one entry of a resolved document: an operation with an absolute
// start time, or a conditional branch whose children carry their own
// absolute times.
type Node interface {
	isNode()
}

// TimedOp is an operation placed on the absolute time axis. It serializes
// as the operation object with a trailing "start" field.
type TimedOp struct {
	Start unit.Time
	Op    ir.Op
}

func (TimedOp) isNode() {}

// Shift returns a copy displaced by delta.
func (n TimedOp) Shift(delta unit.Time) TimedOp {
	return TimedOp{Start: n.Start.Add(delta), Op: n.Op}
}

func (n TimedOp) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(n.Op)
	if err != nil {
		return nil, err
	}
	start, err := json.Marshal(n.Start)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[len(body)-1] != '}' {
		return nil, fmt.Errorf("operation did not marshal to an object")
	}
	// Splice: {<op fields...>, "start": {...}}
	out := make([]byte, 0, len(body)+len(start)+10)
	out = append(out, body[:len(body)-1]...)
	out = append(out, `,"start":`...)
	out = append(out, start...)
	return append(out, '}'), nil
}

// Branch is a conditional kept in the resolved output because branch
// selection happens on hardware. Its children are fully resolved; the
// grouping node itself carries no start.
type Branch struct {
	Var  ir.VarRef
	Body []Node
	Else []Node
}

func (*Branch) isNode() {}

// Shift returns a copy with every child displaced by delta.
func (b *Branch) Shift(delta unit.Time) *Branch {
	return &Branch{Var: b.Var, Body: shiftNodes(b.Body, delta), Else: shiftNodes(b.Else, delta)}
}

func shiftNodes(nodes []Node, delta unit.Time) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		switch node := n.(type) {
		case TimedOp:
			out[i] = node.Shift(delta)
		case *Branch:
			out[i] = node.Shift(delta)
		}
	}
	return out
}

func (b *Branch) MarshalJSON() ([]byte, error) {
	body := b.Body
	if body == nil {
		body = []Node{}
	}
	w := struct {
		OpType string    `json:"op_type"`
		Var    ir.VarRef `json:"var"`
		Body   []Node    `json:"body"`
		Else   []Node    `json:"else,omitempty"`
	}{OpType: ir.OpIf, Var: b.Var, Body: body, Else: b.Else}
	return json.Marshal(w)
}

// Document is a resolved program: the container flavor it came from and a
// flat list of absolutely timed nodes. Both flavors share the node schema,
// so a resolved schedule parses with the same code as a resolved sequence.
type Document struct {
	Type  string // ir.ProgramSequence or ir.ProgramSchedule
	Items []Node
}

func (d Document) MarshalJSON() ([]byte, error) {
	items := d.Items
	if items == nil {
		items = []Node{}
	}
	return json.Marshal(struct {
		Type  string `json:"type"`
		Items []Node `json:"items"`
	}{Type: d.Type, Items: items})
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var w struct {
		Type  string            `json:"type"`
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != ir.ProgramSequence && w.Type != ir.ProgramSchedule {
		return fmt.Errorf("unknown resolved document type %q", w.Type)
	}
	items, err := unmarshalNodes(w.Items)
	if err != nil {
		return err
	}
	*d = Document{Type: w.Type, Items: items}
	return nil
}

func unmarshalNodes(raws []json.RawMessage) ([]Node, error) {
	nodes := make([]Node, len(raws))
	for i, raw := range raws {
		n, err := unmarshalNode(raw)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		nodes[i] = n
	}
	return nodes, nil
}

func unmarshalNode(data []byte) (Node, error) {
	var probe struct {
		OpType string          `json:"op_type"`
		Start  *unit.Time      `json:"start"`
		Var    ir.VarRef       `json:"var"`
		Body   json.RawMessage `json:"body"`
		Else   json.RawMessage `json:"else"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if probe.OpType == ir.OpIf {
		var rawBody, rawElse []json.RawMessage
		if err := json.Unmarshal(probe.Body, &rawBody); err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		body, err := unmarshalNodes(rawBody)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		var elseNodes []Node
		if probe.Else != nil {
			if err := json.Unmarshal(probe.Else, &rawElse); err != nil {
				return nil, fmt.Errorf("else: %w", err)
			}
			if elseNodes, err = unmarshalNodes(rawElse); err != nil {
				return nil, fmt.Errorf("else: %w", err)
			}
		}
		return &Branch{Var: probe.Var, Body: body, Else: elseNodes}, nil
	}
	if probe.Start == nil {
		return nil, fmt.Errorf("resolved operation lacks start")
	}
	op, err := ir.UnmarshalSequenceItem(data)
	if err != nil {
		return nil, err
	}
	return TimedOp{Start: *probe.Start, Op: op}, nil
}

// ContentID computes the content-addressed identity of a resolved document.
func (d Document) ContentID() (string, error) {
	return ir.ContentID(ir.DomainResolved, d)
}
