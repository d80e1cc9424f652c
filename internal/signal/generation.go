package signal

// Generation is the switch-latest cancellation token.
//
// Every triggering value advances the generation. A Task completion is
// stamped with the generation that started it, and is only honoured if
// that generation is still current. Superseded completions are discarded
// even if they arrive long after the newer Task was started.
//
// Generation is touched only on the delivery thread, so it needs no
// synchronisation.
type Generation struct {
	n uint64
}

// Next advances the generation and returns the new token.
func (g *Generation) Next() uint64 {
	g.n++
	return g.n
}

// Current returns the latest token without advancing.
func (g *Generation) Current() uint64 {
	return g.n
}

// IsCurrent reports whether token is still the latest generation.
func (g *Generation) IsCurrent(token uint64) bool {
	return token == g.n
}
