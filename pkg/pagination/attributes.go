package pagination

// Attribute holds the ranking data the top-articles source reported for a title.
type Attribute struct {
	Rank  int   `json:"rank"`
	Views int64 `json:"views"`
}

// Attributes maps request titles to their Attribute, remembering insertion order.
// The order defines the title universe handed to the content endpoint.
type Attributes struct {
	order []string
	byKey map[string]Attribute
}

// NewAttributes creates an empty attribute set.
func NewAttributes() *Attributes {
	return &Attributes{
		byKey: make(map[string]Attribute),
	}
}

// Add records attr for title. Re-adding a title overwrites its attribute
// but keeps its original position.
func (a *Attributes) Add(title string, attr Attribute) {
	if _, exists := a.byKey[title]; !exists {
		a.order = append(a.order, title)
	}
	a.byKey[title] = attr
}

// Lookup returns the attribute for title and whether it exists.
func (a *Attributes) Lookup(title string) (Attribute, bool) {
	if a == nil {
		return Attribute{}, false
	}
	attr, ok := a.byKey[title]
	return attr, ok
}

// Titles returns a copy of the titles in insertion order.
func (a *Attributes) Titles() []string {
	if a == nil {
		return nil
	}
	titles := make([]string, len(a.order))
	copy(titles, a.order)
	return titles
}

// Len returns the number of titles.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.order)
}
