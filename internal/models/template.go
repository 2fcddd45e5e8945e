package models

// RecurrenceFrequencies are the accepted template recurrence frequencies.
var RecurrenceFrequencies = []string{"weekly", "monthly", "yearly"}

// Recurrence schedules a template to resurface periodically.
type Recurrence struct {
	// Frequency is one of RecurrenceFrequencies.
	Frequency string `json:"frequency"`

	// NextOccurrence is a YYYY-MM-DD date string.
	NextOccurrence string `json:"nextOccurrence"`

	// ReminderDaysBefore is how many days ahead to surface a reminder.
	ReminderDaysBefore int `json:"reminderDaysBefore,omitempty"`
}

// TransactionTemplate is a reusable blueprint used to pre-fill new splits.
// Templates never enter the balance computation.
type TransactionTemplate struct {
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Total        float64       `json:"total,omitempty"`
	Payer        string        `json:"payer,omitempty"`
	Category     string        `json:"category,omitempty"`
	Recurrence   *Recurrence   `json:"recurrence,omitempty"`
	CreatedAt    int64         `json:"createdAt,omitempty"`
}

// Clone returns a deep copy of the template.
func (t TransactionTemplate) Clone() TransactionTemplate {
	c := t
	if t.Participants != nil {
		c.Participants = append([]Participant(nil), t.Participants...)
	}
	if t.Recurrence != nil {
		r := *t.Recurrence
		c.Recurrence = &r
	}
	return c
}
