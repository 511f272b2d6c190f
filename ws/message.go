package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// AuthMsg is sent by the client with a participant token.
type AuthMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// StartTrialMsg deals a new trial. Config fields that are present override the
// server defaults; absent fields keep them.
type StartTrialMsg struct {
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

// RevealCardMsg is sent when the participant clicks a face-down card.
type RevealCardMsg struct {
	Type     string `json:"type"`
	Position *int   `json:"position"`
}

// EndRoundMsg is sent when the participant presses the stop control.
type EndRoundMsg struct {
	Type string `json:"type"`
}

// --- Server-to-Client messages ---

// ErrorMsg is sent when a client action is invalid.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AuthOKMsg confirms the participant identity.
type AuthOKMsg struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participantId"`
}
