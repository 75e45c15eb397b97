package preview

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// NodeType distinguishes rendering behavior for a Node.
type NodeType uint8

const (
	NodeContainer NodeType = iota // group node with no visual output
	NodeSprite                    // renders an image
	NodeText                      // renders a text block
	NodeShape                     // renders a filled/stroked polygon fan
)

// nodeIDCounter is a plain counter (the compositor is single-threaded).
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// TextBlock holds text content and styling for a text node.
type TextBlock struct {
	Content     string
	Face        text.Face
	Color       Color
	Align       TextAlign
	LineSpacing float64
	Underline   bool

	// Cached measurement (unexported)
	measureDirty bool
	measuredW    float64
	measuredH    float64
}

// Measure returns the laid-out size of the block, caching until the content
// changes. A nil face measures as zero.
func (tb *TextBlock) Measure() (w, h float64) {
	if !tb.measureDirty {
		return tb.measuredW, tb.measuredH
	}
	tb.measureDirty = false
	if tb.Face == nil || tb.Content == "" {
		tb.measuredW, tb.measuredH = 0, 0
		return 0, 0
	}
	spacing := tb.LineSpacing
	if spacing <= 0 {
		m := tb.Face.Metrics()
		spacing = m.HAscent + m.HDescent + m.HLineGap
	}
	tb.measuredW, tb.measuredH = text.Measure(tb.Content, tb.Face, spacing)
	return tb.measuredW, tb.measuredH
}

// SetContent replaces the block's text and invalidates the measurement cache.
func (tb *TextBlock) SetContent(content string) {
	if tb.Content == content {
		return
	}
	tb.Content = content
	tb.measureDirty = true
}

// ShapeGeometry is the polygon payload of a shape node. Points are in local
// space; the fan triangulation assumes a convex outline.
type ShapeGeometry struct {
	Points      []Vec2
	Fill        Color
	Stroke      Color
	StrokeWidth float64
}

// Node is the visual scene element. A single flat struct is used for all node
// types to avoid interface dispatch on the hot path. Each renderer owns
// exactly one wrapper (container) node and one visual (leaf) node.
type Node struct {
	// Identity
	ID   uint32
	Name string
	Type NodeType

	// Hierarchy
	Parent   *Node
	children []*Node

	// Transform (local)
	X, Y           float64
	ScaleX, ScaleY float64
	Rotation       float64
	PivotX, PivotY float64

	// Animation offset, applied additively to X/Y so entrance animations
	// never fight the element's authored position.
	OffsetX, OffsetY float64

	// Content size in local units (pre-scale).
	Width, Height float64

	// Computed (unexported, refreshed during traversal)
	worldTransform [6]float64
	worldAlpha     float64
	transformDirty bool

	// Visibility & ordering
	Alpha   float64
	Visible bool
	ZIndex  int

	// Clip is a local-space reveal rectangle; nil means no clipping.
	// Used by the wipe-in animation.
	Clip *Rect

	// Payloads
	Image *ebiten.Image  // NodeSprite
	Text  *TextBlock     // NodeText
	Shape *ShapeGeometry // NodeShape

	// Internal
	ownsImage   bool
	clipScratch *ebiten.Image
	disposed    bool
	sortBuf     []*Node
}

// nodeDefaults sets the common default field values shared by all constructors.
func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.ScaleX = 1
	n.ScaleY = 1
	n.Alpha = 1
	n.Visible = true
	n.transformDirty = true
}

// NewContainer creates a container node with no visual representation.
func NewContainer(name string) *Node {
	n := &Node{Name: name, Type: NodeContainer}
	nodeDefaults(n)
	return n
}

// NewSpriteNode creates a sprite node that renders the given image.
// The image is borrowed; use SetOwnedImage to bind its lifetime to the node.
func NewSpriteNode(name string, img *ebiten.Image) *Node {
	n := &Node{Name: name, Type: NodeSprite, Image: img}
	nodeDefaults(n)
	if img != nil {
		b := img.Bounds()
		n.Width = float64(b.Dx())
		n.Height = float64(b.Dy())
	}
	return n
}

// NewTextNode creates a text node with the given content and face.
func NewTextNode(name, content string, face text.Face) *Node {
	n := &Node{
		Name: name,
		Type: NodeText,
		Text: &TextBlock{Content: content, Face: face, Color: ColorWhite, measureDirty: true},
	}
	nodeDefaults(n)
	return n
}

// NewShapeNode creates a shape node from a convex polygon outline.
func NewShapeNode(name string, geom ShapeGeometry) *Node {
	n := &Node{Name: name, Type: NodeShape, Shape: &geom}
	nodeDefaults(n)
	return n
}

// SetOwnedImage attaches an image whose lifetime is bound to the node:
// Dispose deallocates it. Any previously owned image is released first.
func (n *Node) SetOwnedImage(img *ebiten.Image) {
	if n.ownsImage && n.Image != nil && n.Image != img {
		n.Image.Deallocate()
	}
	n.Image = img
	n.ownsImage = img != nil
	if img != nil {
		b := img.Bounds()
		n.Width = float64(b.Dx())
		n.Height = float64(b.Dy())
	}
}

// --- Tree manipulation ---

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("preview: cannot add nil child")
	}
	if isAncestor(child, n) {
		panic("preview: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
	markSubtreeDirty(child)
}

// RemoveChild detaches child from this node. Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("preview: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	markSubtreeDirty(child)
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// Children returns the child list. The returned slice MUST NOT be mutated.
func (n *Node) Children() []*Node {
	return n.children
}

// --- Disposal ---

// Dispose removes this node from its parent, releases owned resources, marks
// it as disposed, and recursively disposes all descendants. Idempotent.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.sortBuf = nil
	n.Parent = nil
	if n.ownsImage && n.Image != nil {
		n.Image.Deallocate()
	}
	n.Image = nil
	n.ownsImage = false
	if n.clipScratch != nil {
		n.clipScratch.Deallocate()
		n.clipScratch = nil
	}
	n.Text = nil
	n.Shape = nil
	n.Clip = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.Parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets transformDirty on node and all its descendants.
func markSubtreeDirty(node *Node) {
	node.transformDirty = true
	for _, child := range node.children {
		markSubtreeDirty(child)
	}
}
