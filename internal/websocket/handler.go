package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection and blocks until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn) {
	client := NewClient(hub, c)
	select {
	case hub.register <- client:
	case <-hub.stop:
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
