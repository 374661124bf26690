package bonus

// Selection is the shopper's transient choice of bonus to spend on the
// current cart. It is never persisted.
type Selection struct {
	Amount int64 `json:"amount"`
}

func (s *Selection) Apply(p Policy, raw string) int64 {
	s.Amount = p.Apply(raw)
	return s.Amount
}

func (s *Selection) UseMax(p Policy) int64 {
	s.Amount = p.UseMax()
	return s.Amount
}

func (s *Selection) Clear() {
	s.Amount = 0
}

// Fit re-clamps the selection after the bounds changed, e.g. after a cart refresh.
func (s *Selection) Fit(p Policy) int64 {
	s.Amount = p.Clamp(s.Amount)
	return s.Amount
}
