package network

import (
	"sort"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
)

// Topology owns polder configs and connections by id; nothing in this
// package holds a pointer to a polder or connection directly, only the
// id strings, so the graph can never become a reference cycle.
type Topology struct {
	polders     map[string]PolderConfig
	connections map[string]Connection
}

// NewTopology returns an empty topology.
func NewTopology() *Topology {
	return &Topology{
		polders:     make(map[string]PolderConfig),
		connections: make(map[string]Connection),
	}
}

// AddPolder inserts a polder config, rejecting an invalid or duplicate
// id.
func (t *Topology) AddPolder(cfg PolderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, exists := t.polders[cfg.ID]; exists {
		return domain.AlreadyExistsf("polder %s already exists", cfg.ID)
	}
	t.polders[cfg.ID] = cfg
	return nil
}

// AddConnection inserts a connection, rejecting self-loops, negative
// capacity, a duplicate id, unknown endpoints, or an anti-parallel edge
// (a connection already exists in the opposite direction between the
// same two polders).
func (t *Topology) AddConnection(c Connection) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, exists := t.connections[c.ID]; exists {
		return domain.AlreadyExistsf("connection %s already exists", c.ID)
	}
	if _, ok := t.polders[c.SourceID]; !ok {
		return domain.Invalidf("connection %s: unknown source polder %s", c.ID, c.SourceID)
	}
	if _, ok := t.polders[c.DestinationID]; !ok {
		return domain.Invalidf("connection %s: unknown destination polder %s", c.ID, c.DestinationID)
	}
	for _, existing := range t.connections {
		if existing.SourceID == c.DestinationID && existing.DestinationID == c.SourceID {
			return domain.ConstraintViolationf(
				"connection %s: anti-parallel to existing connection %s (%s<->%s)",
				c.ID, existing.ID, c.SourceID, c.DestinationID)
		}
	}
	t.connections[c.ID] = c
	return nil
}

// Polder looks up a polder config by id.
func (t *Topology) Polder(id string) (PolderConfig, error) {
	p, ok := t.polders[id]
	if !ok {
		return PolderConfig{}, domain.NotFoundf("polder %s not found", id)
	}
	return p, nil
}

// Connection looks up a connection by id.
func (t *Topology) Connection(id string) (Connection, error) {
	c, ok := t.connections[id]
	if !ok {
		return Connection{}, domain.NotFoundf("connection %s not found", id)
	}
	return c, nil
}

// PolderIDs returns all polder ids in a stable, sorted order.
func (t *Topology) PolderIDs() []string {
	ids := make([]string, 0, len(t.polders))
	for id := range t.polders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Connections returns all connections in a stable order, sorted by id.
func (t *Topology) Connections() []Connection {
	out := make([]Connection, 0, len(t.connections))
	for _, c := range t.connections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate checks that the undirected projection of the graph is
// connected: a BFS from any polder must visit every polder. An empty
// topology (no polders) is trivially valid.
func (t *Topology) Validate() error {
	if len(t.polders) == 0 {
		return nil
	}

	adjacency := make(map[string][]string, len(t.polders))
	for _, c := range t.connections {
		adjacency[c.SourceID] = append(adjacency[c.SourceID], c.DestinationID)
		adjacency[c.DestinationID] = append(adjacency[c.DestinationID], c.SourceID)
	}

	ids := t.PolderIDs()
	start := ids[0]
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	if len(visited) != len(t.polders) {
		return domain.ConstraintViolationf("topology is not connected: %d of %d polders reachable from %s",
			len(visited), len(t.polders), start)
	}
	return nil
}
