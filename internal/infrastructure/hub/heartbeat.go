package hub

import (
	"context"
	"time"
)

// runHeartbeat writes a keep-alive probe through the transport on a fixed
// interval. A failed probe is the primary detector of a client that
// disappeared without a clean close; it triggers the connection's single
// teardown and the loop exits. The loop also exits when teardown happens
// elsewhere, via the connection context.
func (c *Connection) runHeartbeat(interval, writeTimeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.transport.KeepAlive(ctx)
			cancel()

			if err != nil {
				c.logger.Warnf("heartbeat write failed: %v", err)
				c.Teardown(CloseReasonHeartbeat)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
