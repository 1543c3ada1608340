package compose

import "github.com/maekitalo/sertools/internal/protocol/sinfo"

// TreeComposer is the Composer variant that targets a *sinfo.Info node
// directly (spec §3.2's "tree adapter"). Every BeginMember/BeginElement
// call appends a real child node to the wrapped Info, so the resulting
// tree is a verbatim materialization of whatever the parser drove through
// it.
type TreeComposer struct {
	node *sinfo.Info
}

// NewTreeComposer wraps an existing (typically freshly-created) Info node.
func NewTreeComposer(node *sinfo.Info) *TreeComposer {
	return &TreeComposer{node: node}
}

func (c *TreeComposer) SetCategory(cat sinfo.Category) { c.node.SetCategory(cat) }
func (c *TreeComposer) SetTypeName(t string)            { c.node.SetTypeName(t) }

func (c *TreeComposer) BeginMember(name string) (Composer, error) {
	child := c.node.AddMember(name)
	return &TreeComposer{node: child}, nil
}

func (c *TreeComposer) BeginElement() (Composer, error) {
	child := c.node.AddElement()
	return &TreeComposer{node: child}, nil
}

func (c *TreeComposer) SetValue(v sinfo.Scalar) error {
	c.node.SetValue(v)
	return nil
}

func (c *TreeComposer) SetNull() error {
	c.node.SetNull()
	return nil
}

func (c *TreeComposer) Finalize() error { return nil }

// TreeDecomposer is the Decomposer variant that walks an existing
// *sinfo.Info subtree and emits the corresponding Formatter events.
type TreeDecomposer struct {
	node *sinfo.Info
}

func NewTreeDecomposer(node *sinfo.Info) *TreeDecomposer {
	return &TreeDecomposer{node: node}
}

func (d *TreeDecomposer) Format(f Formatter) error {
	return formatNode(d.node, f)
}

func formatNode(n *sinfo.Info, f Formatter) error {
	switch n.Category() {
	case sinfo.CategoryObject:
		if err := f.BeginObject(n.TypeName()); err != nil {
			return err
		}
		for _, m := range n.Members() {
			if err := f.BeginMember(m.Name()); err != nil {
				return err
			}
			if err := formatNode(m, f); err != nil {
				return err
			}
			if err := f.FinishMember(); err != nil {
				return err
			}
		}
		return f.FinishObject()

	case sinfo.CategoryArray:
		if err := f.BeginArray(n.TypeName()); err != nil {
			return err
		}
		for _, m := range n.Members() {
			if err := formatNode(m, f); err != nil {
				return err
			}
		}
		return f.FinishArray()

	case sinfo.CategoryValue:
		if n.Value().IsNull() {
			return f.AddNull(n.TypeName())
		}
		return f.AddValue(n.TypeName(), n.Value())

	default: // Void, Reference: treated as null (spec §3.1)
		return f.AddNull(n.TypeName())
	}
}
