package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/crusade-tracker/internal/domain"
)

type MessageType string

const (
	// Client to Server
	MessageTypeSubscribe   MessageType = "SUBSCRIBE"
	MessageTypeUnsubscribe MessageType = "UNSUBSCRIBE"

	// Server to Client
	MessageTypeSubscribed    MessageType = "SUBSCRIBED"
	MessageTypeCampaignEvent MessageType = "CAMPAIGN_EVENT"
	MessageTypeError         MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Client to Server payloads

type SubscribePayload struct {
	CampaignID string `json:"campaignId"`
}

// Server to Client payloads

type SubscribedPayload struct {
	CampaignID string `json:"campaignId"`
}

type CampaignEventPayload struct {
	CampaignID string       `json:"campaignId"`
	Event      domain.Event `json:"event"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
