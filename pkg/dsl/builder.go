package dsl

import (
	"fmt"

	"github.com/aretw0/parley/internal/validator"
	"github.com/aretw0/parley/pkg/domain"
)

// Builder manages the dialogue construction.
type Builder struct {
	id           string
	name         string
	start        []string
	participants []string
	variables    []domain.VariableDecl
	order        []string
	nodes        map[string]*NodeBuilder
}

// New creates a new dialogue builder.
func New(id string) *Builder {
	return &Builder{
		id:    id,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Name sets the display name of the dialogue.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Start declares start nodes, in priority order.
// Without it, the first added node is the only start node.
func (b *Builder) Start(ids ...string) *Builder {
	b.start = append(b.start, ids...)
	return b
}

// Participants declares participant names.
func (b *Builder) Participants(names ...string) *Builder {
	b.participants = append(b.participants, names...)
	return b
}

// Var declares a variable with its default value.
func (b *Builder) Var(name string, def domain.Value) *Builder {
	b.variables = append(b.variables, domain.VariableDecl{Name: name, Default: def})
	return b
}

// Add creates a new node in the dialogue, as a text node by default.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id, Kind: domain.NodeText},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build assembles and validates the dialogue.
func (b *Builder) Build() (*domain.Dialogue, error) {
	nodes := make([]*domain.Node, 0, len(b.order))
	for _, id := range b.order {
		n := b.nodes[id].Build()
		nodes = append(nodes, &n)
	}

	start := b.start
	if len(start) == 0 && len(b.order) > 0 {
		start = []string{b.order[0]}
	}

	d := domain.NewDialogue(b.id, b.name, start, nodes...)
	d.Participants = append([]string(nil), b.participants...)
	d.Variables = append([]domain.VariableDecl(nil), b.variables...)

	if err := validator.Validate(d); err != nil {
		return nil, fmt.Errorf("failed to build dialogue %q: %w", b.id, err)
	}
	return d, nil
}

// MustBuild is like Build but panics on error. Intended for tests and static tables.
func (b *Builder) MustBuild() *domain.Dialogue {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}
