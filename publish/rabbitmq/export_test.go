package rabbitmq

import "io"

// SetConn attaches a connection for OnShutdown to close.
func (p *Publisher) SetConn(c io.Closer) { p.conn = c }
