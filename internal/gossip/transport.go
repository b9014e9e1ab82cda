package gossip

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// readTimeout bounds each blocking UDP read so the receive loop can
// periodically notice a closed stopCh even though net.PacketConn has no
// native cancellation — the same SetReadDeadline-and-poll shape the
// teacher's gossip.Protocol.receiveLoop uses.
const readTimeout = time.Second

// Handler processes a decoded datagram payload. Engine.HandleDatagram
// satisfies this.
type Handler interface {
	HandleDatagram(raw string)
}

// Transport owns the node's UDP socket: it binds on 0.0.0.0:udpPort,
// dispatches inbound datagrams to a Handler, and sends best-effort
// datagrams to 127.0.0.1:port for any peer. It implements Sender.
type Transport struct {
	port int
	conn *net.UDPConn

	stopCh chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewTransport creates a Transport bound to udpPort. The socket is bound
// eagerly so setup failures (spec's SocketSetupFailed, fatal) surface
// before the node starts its activities.
func NewTransport(udpPort int) (*Transport, error) {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: udpPort}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("gossip: bind udp %d: %w", udpPort, err)
	}
	return &Transport{port: udpPort, conn: conn, stopCh: make(chan struct{})}, nil
}

// Serve runs the receive loop until Close is called. It blocks, so callers
// run it in its own goroutine.
func (t *Transport) Serve(h Handler) {
	t.wg.Add(1)
	defer t.wg.Done()

	buf := make([]byte, MaxDatagramSize*4)
	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		t.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-t.stopCh:
				return
			default:
				log.Printf("gossip: recv error: %v", err)
				continue
			}
		}

		h.HandleDatagram(string(buf[:n]))
	}
}

// Send delivers payload to 127.0.0.1:int(to), best-effort. Satisfies
// Sender.
func (t *Transport) Send(to OriginID, payload string) error {
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(to)}
	_, err := t.conn.WriteToUDP([]byte(payload), addr)
	return err
}

// Close stops the receive loop and releases the socket. Idempotent.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		close(t.stopCh)
		t.conn.Close()
	})
	t.wg.Wait()
}
