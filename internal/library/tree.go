package library

import "fmt"

// collectDescendants returns root plus every transitive child, walking the
// parent->children adjacency map breadth-first. Iteration bounds stack depth
// on deep trees; a node reached twice means the parent links form a cycle,
// which is reported as a structural error instead of looping forever.
func collectDescendants(root string, children map[string][]string) (map[string]bool, error) {
	set := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if set[child] {
				return nil, fmt.Errorf("cycle in tree at %q", child)
			}
			set[child] = true
			queue = append(queue, child)
		}
	}
	return set, nil
}
