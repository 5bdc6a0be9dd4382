package tactus

import "sync"

// Pattern is the step grid of a sequencer channel: a three-dimensional
// boolean array indexed by (bank 0, bank 1, step). The dimensions are fixed
// per machine, e.g. 4×12×64 for a drum.
type Pattern struct {
	mu   sync.RWMutex
	dim  [3]int
	bits []bool
}

// NewPattern creates an all-off pattern. Non-positive dimensions are
// treated as 1.
func NewPattern(bank0, bank1, steps int) *Pattern {
	d := [3]int{max(bank0, 1), max(bank1, 1), max(steps, 1)}
	return &Pattern{dim: d, bits: make([]bool, d[0]*d[1]*d[2])}
}

// Dim returns the bank 0, bank 1 and step dimensions.
func (p *Pattern) Dim() (bank0, bank1, steps int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dim[0], p.dim[1], p.dim[2]
}

func (p *Pattern) index(i, j, step int) (int, bool) {
	if i < 0 || j < 0 || step < 0 || i >= p.dim[0] || j >= p.dim[1] || step >= p.dim[2] {
		return 0, false
	}
	return (i*p.dim[1]+j)*p.dim[2] + step, true
}

// Get returns the bit at (i, j, step); out-of-range indices read as off.
func (p *Pattern) Get(i, j, step int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	k, ok := p.index(i, j, step)
	return ok && p.bits[k]
}

// Set sets the bit at (i, j, step). Out-of-range writes are ignored and
// reported as false.
func (p *Pattern) Set(i, j, step int, on bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	k, ok := p.index(i, j, step)
	if ok {
		p.bits[k] = on
	}
	return ok
}

// Toggle flips the bit at (i, j, step) and returns the new value.
func (p *Pattern) Toggle(i, j, step int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	k, ok := p.index(i, j, step)
	if !ok {
		return false
	}
	p.bits[k] = !p.bits[k]
	return p.bits[k]
}

// Clear switches every step of bank (i, j) off.
func (p *Pattern) Clear(i, j int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for step := 0; step < p.dim[2]; step++ {
		if k, ok := p.index(i, j, step); ok {
			p.bits[k] = false
		}
	}
}

// Steps returns the indices of the set steps of bank (i, j).
func (p *Pattern) Steps(i, j int) []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var ret []int
	for step := 0; step < p.dim[2]; step++ {
		if k, ok := p.index(i, j, step); ok && p.bits[k] {
			ret = append(ret, step)
		}
	}
	return ret
}
