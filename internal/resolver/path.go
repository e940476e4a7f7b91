package resolver

import "github.com/agentx-labs/webbundle/internal/registry"

// Path is the recursion stack of a depth-first walk: the chain of ids from
// the entry down to the resource being expanded.
type Path struct {
	ids   []registry.ID
	index map[registry.ID]int
}

// NewPath returns an empty path.
func NewPath() *Path {
	return &Path{index: make(map[registry.ID]int)}
}

// Push appends id to the path. Pushing an id that is already on the path
// is a cycle; callers check Contains first.
func (p *Path) Push(id registry.ID) {
	if _, ok := p.index[id]; !ok {
		p.index[id] = len(p.ids)
	}
	p.ids = append(p.ids, id)
}

// Pop removes and returns the top of the path.
func (p *Path) Pop() (registry.ID, bool) {
	if len(p.ids) == 0 {
		return registry.ID{}, false
	}
	top := p.ids[len(p.ids)-1]
	p.ids = p.ids[:len(p.ids)-1]
	if i, ok := p.index[top]; ok && i == len(p.ids) {
		delete(p.index, top)
	}
	return top, true
}

// Contains reports whether id is on the path.
func (p *Path) Contains(id registry.ID) bool {
	_, ok := p.index[id]
	return ok
}

// Len returns the depth of the path.
func (p *Path) Len() int { return len(p.ids) }

// IDs returns a copy of the path, bottom first.
func (p *Path) IDs() []registry.ID {
	return append([]registry.ID(nil), p.ids...)
}

// CycleTo returns the chain that closes when id is reached from the top of
// the path: from id's position up to the top, then id again. ok is false
// when id is not on the path.
func (p *Path) CycleTo(id registry.ID) (chain []registry.ID, ok bool) {
	i, found := p.index[id]
	if !found {
		return nil, false
	}
	chain = make([]registry.ID, 0, len(p.ids)-i+1)
	chain = append(chain, p.ids[i:]...)
	chain = append(chain, id)
	return chain, true
}
