package domain

import "fmt"

// Reservation binds a username to a hostname.
type Reservation struct {
	Hostname string            `json:"hostname"`
	Username string            `json:"username"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (r Reservation) String() string {
	return fmt.Sprintf("Reservation[hostname=%s, username=%s]", r.Hostname, r.Username)
}

// MergeReservation applies r to the host's list: an entry with the same
// username is replaced in place, otherwise r is appended.
func MergeReservation(list []Reservation, r Reservation) []Reservation {
	for i := range list {
		if list[i].Username == r.Username {
			out := make([]Reservation, len(list))
			copy(out, list)
			out[i] = r
			return out
		}
	}
	out := make([]Reservation, len(list), len(list)+1)
	copy(out, list)
	return append(out, r)
}
