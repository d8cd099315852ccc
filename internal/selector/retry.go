package selector

// Status is the result kind of a selection.
type Status uint8

const (
	StatusSelected Status = iota
	StatusExhausted
)

func (s Status) String() string {
	if s == StatusSelected {
		return "selected"
	}
	return "exhausted"
}

// RetryPolicy bounds how many full bin scans a selection may take.
type RetryPolicy struct {
	MaxAttempts int
}

// DefaultRetryPolicy allows three scans per unit.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3}

// Run calls attempt until it selects something or the bound is reached.
func (p RetryPolicy) Run(attempt func() Outcome) Outcome {
	limit := p.MaxAttempts
	if limit < 1 {
		limit = 1
	}
	var out Outcome
	for i := 1; i <= limit; i++ {
		out = attempt()
		out.Attempts = i
		if out.Status == StatusSelected {
			return out
		}
	}
	out.Status = StatusExhausted
	return out
}
