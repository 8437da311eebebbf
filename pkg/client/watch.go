package client

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/davesnowdon/go-nao-bridge/pkg/operation"
)

// SubscribeOperations opens the bridge's operation event stream and delivers
// every update on the returned channel. The channel closes when the context
// ends or the connection drops.
func (c *Client) SubscribeOperations(ctx context.Context) (<-chan operation.Operation, error) {
	wsURL := strings.Replace(c.base, "http", "ws", 1) + "/ws/operations"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	updates := make(chan operation.Operation)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(updates)
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var op operation.Operation
			if err := json.Unmarshal(msg, &op); err != nil {
				continue
			}
			select {
			case updates <- op:
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates, nil
}
