package webserver

import (
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

type wsClient struct {
	ws     *websocket.Conn
	remote string
	send   chan []byte
	// unregisters the client from the hub
	remove func(*wsClient)
}

func (c *wsClient) write() {
	defer c.ws.Close()

	for message := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
			c.remove(c)
			// drain until the hub closes send
			for range c.send {
			}
			return
		}
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// read discards incoming messages; it only detects the disconnect.
func (c *wsClient) read() {
	defer c.remove(c)

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
