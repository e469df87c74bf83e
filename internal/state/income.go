package state

import "time"

// IncomeWindow selects the reporting period for Income.
type IncomeWindow string

const (
	WindowToday     IncomeWindow = "today"
	WindowYesterday IncomeWindow = "yesterday"
	WindowLast7Days IncomeWindow = "7d"
)

// ParseIncomeWindow maps the /income argument onto a window,
// defaulting to today. "7d", "7days" and "last7" are synonyms, as in
// the original command.
func ParseIncomeWindow(s string) IncomeWindow {
	switch s {
	case "yesterday":
		return WindowYesterday
	case "7d", "7days", "last7":
		return WindowLast7Days
	default:
		return WindowToday
	}
}

// Label returns the report heading for the window.
func (w IncomeWindow) Label() string {
	switch w {
	case WindowYesterday:
		return "Yesterday"
	case WindowLast7Days:
		return "Last 7 days"
	default:
		return "Today"
	}
}

// IncomeSummary aggregates purchases inside a window. INR and USD are
// kept separate; crypto settles in USD, everything else in INR.
type IncomeSummary struct {
	Window   IncomeWindow
	Orders   int
	TotalINR float64
	TotalUSD float64
}

// bounds computes the half-open [start, end) interval for the window,
// with day boundaries taken in IST.
func (w IncomeWindow) bounds(now time.Time) (time.Time, time.Time) {
	now = now.In(IST)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, IST)
	switch w {
	case WindowYesterday:
		start := midnight.AddDate(0, 0, -1)
		return start, midnight
	case WindowLast7Days:
		return now.AddDate(0, 0, -7), now
	default:
		return midnight, midnight.AddDate(0, 0, 1)
	}
}

// Income summarizes the purchase log over the given window.
func (s *Store) Income(w IncomeWindow, now time.Time) IncomeSummary {
	start, end := w.bounds(now)

	sum := IncomeSummary{Window: w}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		t := p.Time.Time
		if t.IsZero() || t.Before(start) || !t.Before(end) {
			continue
		}
		sum.Orders++
		switch p.Currency {
		case "INR":
			sum.TotalINR += p.Amount
		case "USD":
			sum.TotalUSD += p.Amount
		}
	}
	return sum
}
