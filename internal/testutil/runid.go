package testutil

// DefaultRunID is used when a fixed generator is built without a run id.
const DefaultRunID = "run-00000000"

// FixedRunIDGenerator returns the same run id on every call, so fixture ids
// derived from it are stable across runs and golden traces match.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator returns a generator for id, or DefaultRunID when id
// is empty.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
