package model

// Walk visits e and its sub-expressions in preorder. Returning false from
// the visitor stops descent below the current node.
func Walk(e *Expression, visit func(*Expression) bool) {
	if !visit(e) {
		return
	}
	for _, a := range e.args {
		Walk(a, visit)
	}
}

// ContainsKind reports whether any node of the given kind occurs in e.
func ContainsKind(e *Expression, kind ExprKind) bool {
	found := false
	Walk(e, func(n *Expression) bool {
		if n.kind == kind {
			found = true
		}
		return !found
	})
	return found
}
