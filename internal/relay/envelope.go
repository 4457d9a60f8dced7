package relay

// Envelope is the outbound wire shape delivered to every recipient of a
// broadcast. Payload carries whatever the sender put under "payload", or the
// whole inbound object when that key is absent.
type Envelope struct {
	Type    string `json:"type"`
	From    string `json:"from"`
	Room    string `json:"room"`
	Payload any    `json:"payload"`
}

// DefaultType is used when an inbound message carries no "type" key.
const DefaultType = "update"

// NewEnvelope derives the outbound envelope from one inbound message. The
// inbound shape is not validated beyond being a JSON object; "type" and
// "payload" are the only keys the relay interprets.
func NewEnvelope(roomID, from string, msg map[string]any) Envelope {
	env := Envelope{
		Type:    DefaultType,
		From:    from,
		Room:    roomID,
		Payload: any(msg),
	}
	if t, ok := msg["type"].(string); ok && t != "" {
		env.Type = t
	}
	if p, ok := msg["payload"]; ok {
		env.Payload = p
	}
	return env
}
