package orderbook

import "github.com/shopspring/decimal"

// Priority orders two prices on one side of the book. A negative result
// means a is more marketable than b, zero means the same price level.
type Priority func(a, b decimal.Decimal) int

// BidPriority ranks higher prices first.
func BidPriority(a, b decimal.Decimal) int { return b.Cmp(a) }

// AskPriority ranks lower prices first.
func AskPriority(a, b decimal.Decimal) int { return a.Cmp(b) }

type color uint8

const (
	red color = iota
	black
)

type node struct {
	key    decimal.Decimal
	level  *PriceLevel
	color  color
	left   *node
	right  *node
	parent *node
}

// RBTree holds the price levels of one side ordered by priority, so the
// leftmost node is always the best level.
type RBTree struct {
	root     *node
	best     *node
	size     int
	priority Priority
}

func NewRBTree(priority Priority) *RBTree {
	return &RBTree{priority: priority}
}

func (t *RBTree) Size() int { return t.size }

func (t *RBTree) Empty() bool { return t.size == 0 }

// Best returns the most marketable level, or nil when the side is empty.
func (t *RBTree) Best() *PriceLevel {
	if t.best == nil {
		return nil
	}
	return t.best.level
}

func (t *RBTree) FindLevel(price decimal.Decimal) *PriceLevel {
	if n := t.search(price); n != nil {
		return n.level
	}
	return nil
}

// UpsertLevel returns the level at price, creating it if needed.
func (t *RBTree) UpsertLevel(price decimal.Decimal) *PriceLevel {
	var y *node
	x := t.root
	for x != nil {
		y = x
		switch c := t.priority(price, x.key); {
		case c < 0:
			x = x.left
		case c > 0:
			x = x.right
		default:
			return x.level
		}
	}

	pl := &PriceLevel{Price: price}
	z := &node{key: price, level: pl, color: red, parent: y}
	if y == nil {
		t.root = z
	} else if t.priority(price, y.key) < 0 {
		y.left = z
	} else {
		y.right = z
	}
	if t.best == nil || t.priority(price, t.best.key) < 0 {
		t.best = z
	}
	t.insertFixup(z)
	t.size++
	return pl
}

func (t *RBTree) DeleteLevel(price decimal.Decimal) bool {
	z := t.search(price)
	if z == nil {
		return false
	}
	if z == t.best {
		t.best = t.next(z)
	}
	t.deleteNode(z)
	t.size--
	return true
}

// ForEach visits levels from best to worst until fn returns false.
func (t *RBTree) ForEach(fn func(*PriceLevel) bool) {
	for n := t.best; n != nil; n = t.next(n) {
		if !fn(n.level) {
			return
		}
	}
}

// ---- internals ----

func (t *RBTree) search(price decimal.Decimal) *node {
	n := t.root
	for n != nil {
		switch c := t.priority(price, n.key); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n
		}
	}
	return nil
}

func (t *RBTree) next(n *node) *node {
	if n.right != nil {
		n = n.right
		for n.left != nil {
			n = n.left
		}
		return n
	}
	p := n.parent
	for p != nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *RBTree) rotateLeft(x *node) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *RBTree) rotateRight(x *node) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (t *RBTree) insertFixup(z *node) {
	for z.parent != nil && z.parent.color == red {
		g := z.parent.parent
		if z.parent == g.left {
			y := g.right
			if isRed(y) {
				z.parent.color = black
				y.color = black
				g.color = red
				z = g
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.rotateLeft(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rotateRight(z.parent.parent)
		} else {
			y := g.left
			if isRed(y) {
				z.parent.color = black
				y.color = black
				g.color = red
				z = g
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rotateRight(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rotateLeft(z.parent.parent)
		}
	}
	t.root.color = black
}

func (t *RBTree) transplant(u, v *node) {
	switch {
	case u.parent == nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	if v != nil {
		v.parent = u.parent
	}
}

func (t *RBTree) deleteNode(z *node) {
	var x, xParent *node
	y := z
	yColor := y.color

	switch {
	case z.left == nil:
		x = z.right
		xParent = z.parent
		t.transplant(z, z.right)
	case z.right == nil:
		x = z.left
		xParent = z.parent
		t.transplant(z, z.left)
	default:
		y = z.right
		for y.left != nil {
			y = y.left
		}
		yColor = y.color
		x = y.right
		if y.parent == z {
			xParent = y
		} else {
			xParent = y.parent
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yColor == black {
		t.deleteFixup(x, xParent)
	}
}

func (t *RBTree) deleteFixup(x, xParent *node) {
	for x != t.root && !isRed(x) {
		if x == xParent.left {
			w := xParent.right
			if isRed(w) {
				w.color = black
				xParent.color = red
				t.rotateLeft(xParent)
				w = xParent.right
			}
			if !isRed(w.left) && !isRed(w.right) {
				w.color = red
				x = xParent
				xParent = x.parent
				continue
			}
			if !isRed(w.right) {
				w.left.color = black
				w.color = red
				t.rotateRight(w)
				w = xParent.right
			}
			w.color = xParent.color
			xParent.color = black
			if w.right != nil {
				w.right.color = black
			}
			t.rotateLeft(xParent)
			x = t.root
		} else {
			w := xParent.left
			if isRed(w) {
				w.color = black
				xParent.color = red
				t.rotateRight(xParent)
				w = xParent.left
			}
			if !isRed(w.left) && !isRed(w.right) {
				w.color = red
				x = xParent
				xParent = x.parent
				continue
			}
			if !isRed(w.left) {
				w.right.color = black
				w.color = red
				t.rotateLeft(w)
				w = xParent.left
			}
			w.color = xParent.color
			xParent.color = black
			if w.left != nil {
				w.left.color = black
			}
			t.rotateRight(xParent)
			x = t.root
		}
	}
	if x != nil {
		x.color = black
	}
}

func isRed(n *node) bool {
	return n != nil && n.color == red
}
