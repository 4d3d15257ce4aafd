package bridge

import "sync"

// groupIndex tracks group membership as last seen by this process. It exists
// so the bridge can diff a new member list against the previous one and know
// the full set of groups any member belongs to; Mailcow itself has no group
// object to query. The index is not persisted: after a restart it is empty
// until the identity provider replays its groups, which Authentik does on
// every sync run.
type groupIndex struct {
	mu     sync.RWMutex
	groups map[string]*groupState
}

type groupState struct {
	displayName string
	members     Set[string]
}

func newGroupIndex() *groupIndex {
	return &groupIndex{groups: make(map[string]*groupState)}
}

// Lookup returns the display name and a copy of the member set, or ok=false
// for an unknown group id.
func (x *groupIndex) Lookup(id string) (displayName string, members Set[string], ok bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var g *groupState
	if g, ok = x.groups[id]; ok {
		displayName = g.displayName
		members = g.members.Copy()
	}
	return
}

func (x *groupIndex) Set(id, displayName string, members Set[string]) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.groups[id] = &groupState{displayName: displayName, members: members.Copy()}
}

func (x *groupIndex) Delete(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.groups, id)
}

// GroupNamesFor returns the display names of every indexed group the member
// belongs to, sorted.
func (x *groupIndex) GroupNamesFor(member string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var names = NewSet[string]()
	for _, g := range x.groups {
		if g.members.Has(member) {
			names.Add(g.displayName)
		}
	}
	return SortedStrings(names)
}

// All returns a snapshot of every indexed group id.
func (x *groupIndex) All() (ids []string) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for id := range x.groups {
		ids = append(ids, id)
	}
	return
}
