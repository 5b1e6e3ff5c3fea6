package protocol

// Message is the typed envelope of one decoded inbound protocol message.
// The values payload is not carried here, it is re-read from the raw bytes
// by whoever dispatches on (category, request).
type Message struct {
	Category    Category
	Request     Request
	Status      StatusCode
	ID          CallID
	Description string
}

// HasID reports whether the message carries a correlation id.
func (m Message) HasID() bool {
	return m.ID >= 0
}

// IsNotification reports whether the message is an unsolicited server push
// rather than a reply to a call.
func (m Message) IsNotification() bool {
	switch m.Status {
	case StatusCalibrationChange, StatusDisplayChange, StatusTrackerStateChange:
		return true
	default:
		return false
	}
}
