package types

import "time"

// AlertType classifies a geofence alert raised by the backend.
type AlertType string

const (
	AlertWarning       AlertType = "warning"
	AlertExceededLimit AlertType = "exceeded_limit"
	AlertReturned      AlertType = "returned"
)

// Event is the subset of an event the feed needs to decide whether to poll it.
type Event struct {
	ID                      string `json:"id"`
	Title                   string `json:"title,omitempty"`
	Status                  string `json:"status"`
	LocationTrackingEnabled bool   `json:"locationTrackingEnabled"`
}

// Tracked reports whether the event is active with location tracking on.
func (e Event) Tracked() bool {
	return e.Status == "active" && e.LocationTrackingEnabled
}

// Alert represents an unacknowledged geofence alert for one participant.
// EventID is not part of the backend payload; the feed tags it after fetching.
type Alert struct {
	AlertID            string    `json:"alertId"`
	StatusID           string    `json:"statusId"`
	ParticipantName    string    `json:"participantName"`
	ParticipantEmail   string    `json:"participantEmail"`
	EventTitle         string    `json:"eventTitle"`
	EventID            string    `json:"eventId"`
	Type               AlertType `json:"type"`
	Timestamp          time.Time `json:"timestamp"`
	Acknowledged       bool      `json:"acknowledged"`
	CurrentStatus      string    `json:"currentStatus,omitempty"`
	IsWithinGeofence   bool      `json:"isWithinGeofence"`
	CurrentTimeOutside int64     `json:"currentTimeOutside"`
}
