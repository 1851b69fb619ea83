package diag

type Bag struct {
	items []Diagnostic
}

func NewBag(capacity int) *Bag {
	if capacity < 0 {
		capacity = 0
	}
	return &Bag{items: make([]Diagnostic, 0, capacity)}
}

// Add appends d and keeps insertion order.
func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Items returns a copy of the collected diagnostics.
func (b *Bag) Items() []Diagnostic {
	if b == nil {
		return nil
	}
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	return out
}

// Concat returns a new slice holding first followed by rest, in order.
func Concat(first []Diagnostic, rest ...[]Diagnostic) []Diagnostic {
	n := len(first)
	for _, r := range rest {
		n += len(r)
	}
	out := make([]Diagnostic, 0, n)
	out = append(out, first...)
	for _, r := range rest {
		out = append(out, r...)
	}
	return out
}
