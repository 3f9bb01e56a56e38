package domain

import "testing"

func TestMergeReservation(t *testing.T) {
	alice := Reservation{Hostname: "h1", Username: "alice"}
	bob := Reservation{Hostname: "h1", Username: "bob"}
	alice2 := Reservation{Hostname: "h1", Username: "alice", Metadata: map[string]string{"slot": "2"}}

	tests := []struct {
		name  string
		list  []Reservation
		in    Reservation
		users []string
	}{
		{name: "empty list", list: nil, in: alice, users: []string{"alice"}},
		{name: "new username appends", list: []Reservation{alice}, in: bob, users: []string{"alice", "bob"}},
		{name: "same username replaces", list: []Reservation{alice, bob}, in: alice2, users: []string{"alice", "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeReservation(tt.list, tt.in)
			if len(got) != len(tt.users) {
				t.Fatalf("MergeReservation() len = %d, want %d", len(got), len(tt.users))
			}
			for i, u := range tt.users {
				if got[i].Username != u {
					t.Errorf("MergeReservation()[%d] = %s, want %s", i, got[i].Username, u)
				}
			}
		})
	}
}

func TestMergeReservation_DoesNotMutateInput(t *testing.T) {
	list := []Reservation{{Hostname: "h1", Username: "alice"}}
	MergeReservation(list, Reservation{Hostname: "h1", Username: "alice", Metadata: map[string]string{"k": "v"}})
	if list[0].Metadata != nil {
		t.Errorf("input list was modified: %v", list[0])
	}
}
