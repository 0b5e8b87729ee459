package model

import (
	"fmt"
	"strings"
	"time"
)

type Quadrant string

const (
	Daily   Quadrant = "daily"
	Weekly  Quadrant = "weekly"
	Monthly Quadrant = "monthly"
	Yearly  Quadrant = "yearly"
)

// Quadrants lists every quadrant in display order.
var Quadrants = []Quadrant{Daily, Weekly, Monthly, Yearly}

func ParseQuadrant(value string) (Quadrant, error) {
	q := Quadrant(strings.ToLower(strings.TrimSpace(value)))
	if !q.Valid() {
		return "", fmt.Errorf("unknown quadrant %q", value)
	}
	return q, nil
}

func (q Quadrant) Valid() bool {
	switch q {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (q Quadrant) String() string {
	return string(q)
}

func (q Quadrant) Title() string {
	switch q {
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly"
	case Monthly:
		return "Monthly"
	case Yearly:
		return "Yearly"
	default:
		return string(q)
	}
}

// DefaultSubtitle is shown when the user has not customized a quadrant.
func DefaultSubtitle(q Quadrant, now time.Time) string {
	switch q {
	case Daily:
		return "Today's Focus"
	case Weekly:
		return "This Week"
	case Monthly:
		return "This Month"
	case Yearly:
		return fmt.Sprintf("%d Goals", now.Year())
	default:
		return ""
	}
}

type Task struct {
	ID        string
	Text      string
	Completed bool
	Quadrant  Quadrant
	CreatedAt time.Time
}
