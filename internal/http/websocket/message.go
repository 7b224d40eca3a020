package websocket

import (
	"fmt"

	"github.com/google/uuid"
)

type SocketMessageType int

const (
	Update SocketMessageType = iota
	Command
	Response
	ErrorResponse
	Welcome
)

// SocketMessage is the unit of communication between the server and its
// websocket clients. The Id field can be used when replying to a message
// so the receiving client knows which of its messages the reply is for.
// Origin serves much the same purpose on the server side, recording which
// client a received message arrived from so replies can be routed back.
type SocketMessage struct {
	Title  string                 `json:"title"`
	Body   map[string]interface{} `json:"arguments"`
	Id     int                    `json:"id"`
	Type   SocketMessageType      `json:"type"`
	Origin *uuid.UUID             `json:"-"`
	Target *uuid.UUID             `json:"-"`
}

// ValidateArguments checks the messages body against the required
// arguments provided, where the map key is the argument name and the value
// is the expected primitive type ("string" or "number"/"int").
func (message *SocketMessage) ValidateArguments(required map[string]string) error {
	for key, expectedType := range required {
		value, ok := message.Body[key]
		if !ok {
			return fmt.Errorf("failed to validate argument '%v' - argument is missing", key)
		}

		switch expectedType {
		case "number", "int":
			// JSON numbers always decode to float64
			if _, ok := value.(float64); !ok {
				return fmt.Errorf("failed to validate argument '%v' with type '%v' - %#v", key, expectedType, value)
			}
		case "string":
			if str, ok := value.(string); !ok || str == "" {
				return fmt.Errorf("failed to validate argument '%v' with type '%v' - %#v", key, expectedType, value)
			}
		default:
			return fmt.Errorf("failed to validate argument '%v' - unknown required type '%v'", key, expectedType)
		}
	}

	return nil
}

// FormReply returns a NEW message with the same id as the original, and
// targeted at the client the original message came from. The body of the
// command being replied to is embedded in to the reply body.
func (message *SocketMessage) FormReply(replyTitle string, replyBody map[string]interface{}, replyType SocketMessageType) *SocketMessage {
	if replyBody != nil {
		replyBody["command"] = message.Body
	}

	return &SocketMessage{
		Title:  replyTitle,
		Body:   replyBody,
		Type:   replyType,
		Id:     message.Id,
		Target: message.Origin,
	}
}
