// Package control implements the line-delimited TCP control channel (C6)
// an external client uses to submit chat messages, request a chat log
// dump, and trigger orderly shutdown.
package control

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/chatgossip/node/internal/gossip"
)

// Publisher is the subset of the gossip engine the control channel needs:
// appending a locally-submitted message and pushing it toward a peer.
type Publisher interface {
	PushLocal(text string) (gossip.SeqNum, error)
}

// ChatLogReader is the subset of the Database the control channel needs to
// answer "get chatLog".
type ChatLogReader interface {
	ChatLog() []string
}

// Listener accepts control connections on a TCP port and serves the
// command protocol described in spec §4.6 on each one. Shutdown mirrors
// the accept-loop-plus-closed-listener shape used elsewhere in this
// codebase's gossip transport: closing the listener unblocks Accept, and a
// WaitGroup tracks in-flight connection handlers so Stop can join them.
type Listener struct {
	ln net.Listener

	publisher Publisher
	reader    ChatLogReader
	onCrash   func()

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New binds a Listener on tcpPort. Bind failure is spec's
// SocketSetupFailed: fatal, surfaced to the caller to exit nonzero.
func New(tcpPort int, publisher Publisher, reader ChatLogReader, onCrash func()) (*Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", tcpPort))
	if err != nil {
		return nil, fmt.Errorf("control: bind tcp %d: %w", tcpPort, err)
	}
	return &Listener{ln: ln, publisher: publisher, reader: reader, onCrash: onCrash}, nil
}

// Serve accepts connections until Stop closes the listener. Blocks; run in
// its own goroutine.
func (l *Listener) Serve() {
	l.wg.Add(1)
	defer l.wg.Done()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			// Accept fails because Stop closed the listener; that's the
			// expected unblocking path, not a runtime error to report.
			return
		}
		l.wg.Add(1)
		go l.handleConn(conn)
	}
}

// Addr returns the listener's bound address, useful when tcpPort was 0 and
// the OS assigned an ephemeral port.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Stop closes the listener, unblocking Accept, and waits for every
// in-flight connection handler to finish. Idempotent.
func (l *Listener) Stop() {
	l.closeOnce.Do(func() {
		l.ln.Close()
	})
	l.wg.Wait()
}

func (l *Listener) handleConn(conn net.Conn) {
	defer l.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if !l.processCommand(conn, line) {
			return
		}
	}
}

// processCommand executes one line and reports whether the connection
// should stay open.
func (l *Listener) processCommand(conn net.Conn, line string) bool {
	switch {
	case strings.HasPrefix(line, "msg "):
		rest := strings.TrimPrefix(line, "msg ")
		idEnd := strings.IndexByte(rest, ' ')
		if idEnd < 0 {
			log.Printf("control: malformed msg command: %q", line)
			return true
		}
		text := rest[idEnd+1:]
		if _, err := l.publisher.PushLocal(text); err != nil {
			log.Printf("control: rejected message: %v", err)
		}
		return true

	case line == "get chatLog":
		writeChatLog(conn, l.reader.ChatLog())
		return true

	case line == "crash":
		if l.onCrash != nil {
			l.onCrash()
		}
		return false

	default:
		log.Printf("control: unknown command: %q", line)
		return true
	}
}

func writeChatLog(conn net.Conn, messages []string) {
	var reply string
	if len(messages) == 0 {
		reply = "chatLog <Empty>\n"
	} else {
		reply = "chatLog " + strings.Join(messages, ",") + "\n"
	}
	if _, err := conn.Write([]byte(reply)); err != nil {
		log.Printf("control: failed to write chat log: %v", err)
	}
}
