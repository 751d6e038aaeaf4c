package mocks

import (
	"sync"
)

// SequenceGenerator выдаёт коды по списку, затем повторяет последний
type SequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func NewSequenceGenerator(codes ...string) *SequenceGenerator {
	return &SequenceGenerator{codes: codes}
}

func (g *SequenceGenerator) Generate(length int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	code := g.codes[len(g.codes)-1]
	if g.next < len(g.codes) {
		code = g.codes[g.next]
		g.next++
	}
	return code, nil
}
