package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lyra-media/lyra/pkg/logger"
)

// socketClient pairs an upgraded websocket connection with the UUID the
// hub assigned to it.
type socketClient struct {
	id     *uuid.UUID
	socket *websocket.Conn
}

// SendMessage marshals the message provided and writes it to the clients
// socket connection.
func (client *socketClient) SendMessage(message *SocketMessage) error {
	if err := client.socket.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to send message to client {%v}: %w", client.id, err)
	}

	return nil
}

// Read runs the clients read loop, decoding each inbound payload and
// stamping it with this clients ID before forwarding it on the channel
// provided. Payloads which cannot be decoded are dropped with a warning;
// the loop only returns once the underlying connection errors or closes.
func (client *socketClient) Read(receiveCh chan *SocketMessage) error {
	for {
		_, payload, err := client.socket.ReadMessage()
		if err != nil {
			return fmt.Errorf("read from client {%v} failed: %w", client.id, err)
		}

		var message SocketMessage
		if err := json.Unmarshal(payload, &message); err != nil {
			socketLogger.Emit(logger.WARNING, "Discarding malformed message from client {%v}: %v\n", client.id, err.Error())
			continue
		}

		message.Origin = client.id
		receiveCh <- &message
	}
}

func (client *socketClient) Close() error {
	return client.socket.Close()
}
