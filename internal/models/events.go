package models

// EventType tags a hub broadcast. Clients switch on the tag; most events carry
// no payload and just signal a re-fetch of authoritative state.
type EventType string

const (
	EventAddSong        EventType = "ADD_SONG"
	EventRemoveSong     EventType = "REMOVE_SONG"
	EventRequestModeOn  EventType = "REQUEST_MODE_ON"
	EventRequestModeOff EventType = "REQUEST_MODE_OFF"
	EventScoreUpdate    EventType = "SCORE_UPDATE"
	EventMainframeRelay EventType = "MAINFRAME_RELAY"
)

// Event is the value broadcast to every live subscriber.
type Event struct {
	Type EventType    `json:"type"`
	Song *QueueEntry  `json:"song,omitempty"`
	SRS  *QueueStatus `json:"srs,omitempty"`
}
