package domain

import "fmt"

// View a dashboard page.
type View int

const (
	ViewIntro View = iota
	ViewLivePrices
	ViewSimulation
	ViewPriceHistory
)

var viewKeys = map[View]string{
	ViewIntro:        "intro",
	ViewLivePrices:   "prices",
	ViewSimulation:   "simulate",
	ViewPriceHistory: "history",
}

// Views returns every view in menu order.
func Views() []View {
	return []View{ViewIntro, ViewLivePrices, ViewSimulation, ViewPriceHistory}
}

// ParseView resolves a view key.
func ParseView(key string) (View, error) {
	for v, k := range viewKeys {
		if k == key {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown view %q", key)
}

// String returns the view key.
func (v View) String() string {
	if k, ok := viewKeys[v]; ok {
		return k
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// Title returns a human-readable representation.
func (v View) Title() string {
	switch v {
	case ViewIntro:
		return "About"
	case ViewLivePrices:
		return "Live prices"
	case ViewSimulation:
		return "DCA simulation"
	case ViewPriceHistory:
		return "Price history"
	default:
		return "Unknown"
	}
}
