package models

// Snapshot is the aggregate root: the full application state that gets
// persisted and exported. Invariant: SelectedID is either empty or the id
// of a friend present in Friends.
type Snapshot struct {
	Friends      []Friend              `json:"friends"`
	SelectedID   string                `json:"selectedId,omitempty"`
	Transactions []Transaction         `json:"transactions"`
	Templates    []TransactionTemplate `json:"templates,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{SelectedID: s.SelectedID}
	if s.Friends != nil {
		c.Friends = append([]Friend(nil), s.Friends...)
	}
	if s.Transactions != nil {
		c.Transactions = make([]Transaction, len(s.Transactions))
		for i, t := range s.Transactions {
			c.Transactions[i] = t.Clone()
		}
	}
	if s.Templates != nil {
		c.Templates = make([]TransactionTemplate, len(s.Templates))
		for i, t := range s.Templates {
			c.Templates[i] = t.Clone()
		}
	}
	return c
}

// FriendByID returns the friend with the given id, if present.
func (s Snapshot) FriendByID(id string) (Friend, bool) {
	for _, f := range s.Friends {
		if f.ID == id {
			return f, true
		}
	}
	return Friend{}, false
}

// TransactionByID returns the index of the transaction with the given id,
// or -1 if absent.
func (s Snapshot) TransactionByID(id string) int {
	for i, t := range s.Transactions {
		if t.ID == id {
			return i
		}
	}
	return -1
}
