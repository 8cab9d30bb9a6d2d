package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts a websocket to domain.Connection. Only the owner goroutine
// writes to it.
type wsConn struct {
	conn         *websocket.Conn
	account      uint32
	writeTimeout time.Duration
}

func (c *wsConn) SendFrame(frame []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (c *wsConn) AccountID() uint32 { return c.account }

// close sends a close frame with code and closes the socket.
func (c *wsConn) close(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = c.conn.Close()
}
