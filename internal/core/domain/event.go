package domain

// Event types broadcast to websocket clients.
const (
	EventSystemUpdate      = "system_update"
	EventSystemsReset      = "systems_reset"
	EventReservationUpdate = "reservation_update"
	EventSystemStale       = "system_stale"
	EventSystemOnline      = "system_online"
)
