package snmp

import (
	"context"
	"fmt"
	"sync"

	"github.com/gosnmp/gosnmp"
)

type getter interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
}

// Session is one device's transport. Fetches on a session are sequential.
type Session struct {
	device string
	client *gosnmp.GoSNMP
	getter getter
	engine *Engine

	closeOnce sync.Once
	closeErr  error
}

// Device returns the address the session talks to.
func (s *Session) Device() string {
	return s.device
}

// Fetch sends a single get for oid and classifies the reply. It never
// returns an error; every failure is encoded in the Outcome.
func (s *Session) Fetch(ctx context.Context, oid string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = ProtocolError(fmt.Sprintf("malformed reply for %s: %v", oid, r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return TransportError(err.Error())
	}
	packet, err := s.getter.Get([]string{oid})
	return classify(oid, packet, err)
}

// Close releases the underlying socket. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.client != nil && s.client.Conn != nil {
			s.closeErr = s.client.Conn.Close()
		}
		if s.engine != nil {
			s.engine.release(s)
		}
	})
	return s.closeErr
}
