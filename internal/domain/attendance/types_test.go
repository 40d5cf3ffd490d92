package attendance

import (
	"testing"
	"time"
)

func TestNextType(t *testing.T) {
	if got := NextType(nil); got != ClockIn {
		t.Errorf("empty log: expected clock_in, got %s", got)
	}
	if got := NextType(&Event{Type: ClockIn}); got != ClockOut {
		t.Errorf("after clock_in: expected clock_out, got %s", got)
	}
	if got := NextType(&Event{Type: ClockOut}); got != ClockIn {
		t.Errorf("after clock_out: expected clock_in, got %s", got)
	}
}

func TestFilterMatchBounds(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	cid, eid := int64(1), int64(2)
	f := Filter{CompanyID: &cid, EmployeeID: &eid, From: &from, To: &to}

	in := &Event{CompanyID: 1, EmployeeID: 2, OccurredAt: from}
	if !f.Match(in) {
		t.Error("From must be inclusive")
	}
	atTo := &Event{CompanyID: 1, EmployeeID: 2, OccurredAt: to}
	if f.Match(atTo) {
		t.Error("To must be exclusive")
	}
	other := &Event{CompanyID: 3, EmployeeID: 2, OccurredAt: from}
	if f.Match(other) {
		t.Error("company filter not applied")
	}
}
