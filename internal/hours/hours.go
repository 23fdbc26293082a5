// Package hours classifies timestamps against the support team's service window.
package hours

import (
	"fmt"
	"time"
)

// Joint business-hours status values. They are persisted and displayed verbatim.
const (
	StatusInside      = "Dentro do horário"
	StatusCustomerOut = "Cliente fora do horário"
	StatusAgentOut    = "Atendente fora do horário"
	StatusBothOutside = "Ambos fora do horário"
)

const (
	minutesPerDay       = 24 * 60
	defaultWeekdayOpen  = 8 * 60
	defaultWeekdayClose = 18 * 60
	defaultSaturdayOpen = 8 * 60
	defaultSaturdayEnd  = 12 * 60
)

// Window is a half-open range [Open, Close) in minutes since local midnight.
type Window struct {
	Open  int
	Close int
}

// Contains reports whether minute m falls inside the window.
func (w Window) Contains(m int) bool {
	return m >= w.Open && m < w.Close
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Open/60, w.Open%60, w.Close/60, w.Close%60)
}

// Schedule maps every weekday to at most one service window.
// A nil entry means the day is closed.
type Schedule struct {
	loc  *time.Location
	days [7]*Window
}

// Classification is the joint status of a customer message and its reply.
type Classification struct {
	Status          string
	CustomerOutside bool
	AgentOutside    bool
}

// Default returns Mon-Fri 08:00-18:00, Sat 08:00-12:00, Sunday closed.
func Default(loc *time.Location) *Schedule {
	if loc == nil {
		loc = time.UTC
	}
	s := &Schedule{loc: loc}
	for d := time.Monday; d <= time.Friday; d++ {
		s.days[d] = &Window{Open: defaultWeekdayOpen, Close: defaultWeekdayClose}
	}
	s.days[time.Saturday] = &Window{Open: defaultSaturdayOpen, Close: defaultSaturdayEnd}
	return s
}

// Location returns the timezone the schedule is evaluated in.
func (s *Schedule) Location() *time.Location {
	return s.loc
}

// Window returns the service window for a weekday, or nil when closed.
func (s *Schedule) Window(day time.Weekday) *Window {
	return s.days[day]
}

// SetWindow replaces the window for a weekday. A nil window closes the day.
func (s *Schedule) SetWindow(day time.Weekday, w *Window) error {
	if w != nil {
		if w.Open < 0 || w.Close > minutesPerDay || w.Open >= w.Close {
			return fmt.Errorf("invalid window %s for %s", w, day)
		}
	}
	s.days[day] = w
	return nil
}

// OutsideHours reports whether t falls outside the service window.
func (s *Schedule) OutsideHours(t time.Time) bool {
	local := t.In(s.loc)
	w := s.days[local.Weekday()]
	if w == nil {
		return true
	}
	return !w.Contains(local.Hour()*60 + local.Minute())
}

// Classify returns the joint status for a customer message and the agent reply.
func (s *Schedule) Classify(customerAt, agentAt time.Time) Classification {
	c := Classification{
		CustomerOutside: s.OutsideHours(customerAt),
		AgentOutside:    s.OutsideHours(agentAt),
	}
	c.Status = JointStatus(c.CustomerOutside, c.AgentOutside)
	return c
}

// Status is Classify reduced to the persisted status string.
func (s *Schedule) Status(customerAt, agentAt time.Time) string {
	return s.Classify(customerAt, agentAt).Status
}

// JointStatus maps the two outside-hours flags to the persisted status string.
func JointStatus(customerOutside, agentOutside bool) string {
	switch {
	case customerOutside && agentOutside:
		return StatusBothOutside
	case customerOutside:
		return StatusCustomerOut
	case agentOutside:
		return StatusAgentOut
	default:
		return StatusInside
	}
}
