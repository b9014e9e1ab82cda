// Package node wires the gossip engine, transport, control channel, and
// optional introspection server into a single process lifecycle (C7),
// mirroring how the teacher's cmd/dynamo/main.go assembles storage,
// replication, and api.Server around one *config.Config.
package node

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chatgossip/node/internal/config"
	"github.com/chatgossip/node/internal/control"
	"github.com/chatgossip/node/internal/gossip"
	"github.com/chatgossip/node/internal/introspect"
)

// Node owns every resource a running chat-gossip process holds: the UDP
// gossip socket, the TCP control listener, the periodic anti-entropy
// ticker, and (optionally) the read-only HTTP introspection surface.
type Node struct {
	cfg *config.Config

	store     *gossip.Database
	transport *gossip.Transport
	engine    *gossip.Engine
	ticker    *gossip.AntiEntropyTicker
	control   *control.Listener
	introspec *introspect.Server

	shutdownOnce sync.Once
	stopped      chan struct{}
}

// New constructs a Node from a validated Config. It binds the UDP and TCP
// sockets eagerly, so a SocketSetupFailed condition on either is reported
// before the node starts gossiping. The introspection HTTP listener, if
// enabled, is only bound by Start; a failure there is logged.
func New(cfg *config.Config) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("node: invalid config: %w", err)
	}

	self := gossip.OriginID(cfg.UDPPort())
	store := gossip.NewDatabase(self)

	transport, err := gossip.NewTransport(cfg.UDPPort())
	if err != nil {
		return nil, err
	}

	engine := gossip.NewEngine(cfg.Index, cfg.ClusterSize, config.RootID, store, transport, gossip.NewDefaultRand())
	ticker := gossip.NewAntiEntropyTicker(engine, time.Duration(cfg.AntiEntropyIntervalSeconds)*time.Second)

	n := &Node{cfg: cfg, store: store, transport: transport, engine: engine, ticker: ticker, stopped: make(chan struct{})}

	ctl, err := control.New(cfg.TCPPort, engine, store, n.triggerCrash)
	if err != nil {
		transport.Close()
		return nil, err
	}
	n.control = ctl

	if cfg.IntrospectPort != 0 {
		n.introspec = introspect.NewServer(fmt.Sprintf("127.0.0.1:%d", cfg.IntrospectPort), self, store)
	}

	return n, nil
}

// Start launches every background loop and returns immediately. Callers
// wait on Done to learn when a "crash" command or Shutdown ends the
// node's life.
func (n *Node) Start() {
	go n.transport.Serve(n.engine)
	go n.ticker.Serve()
	go n.control.Serve()

	if n.introspec != nil {
		go func() {
			if err := n.introspec.Start(); err != nil {
				log.Printf("node: introspection server stopped: %v", err)
			}
		}()
	}

	log.Printf("node: started index=%d udpPort=%d tcpPort=%d", n.cfg.Index, n.cfg.UDPPort(), n.cfg.TCPPort)
}

// Done is closed once the node has been told to shut down, either via the
// control channel's "crash" command or an external Shutdown call.
func (n *Node) Done() <-chan struct{} {
	return n.stopped
}

// triggerCrash is passed to the control listener as the "crash" command's
// callback; it runs shutdown in its own goroutine so the control
// connection handler that invoked it isn't blocked on its own
// listener.Stop().
func (n *Node) triggerCrash() {
	go n.Shutdown()
}

// Shutdown stops every background loop. Idempotent and safe to call
// concurrently with triggerCrash.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		log.Printf("node: shutting down index=%d", n.cfg.Index)

		n.ticker.Stop()
		n.transport.Close()
		n.control.Stop()

		if n.introspec != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := n.introspec.Stop(ctx); err != nil {
				log.Printf("node: introspection server shutdown error: %v", err)
			}
		}

		close(n.stopped)
	})
}

// Store returns the node's replicated log store, for tests that need to
// inspect convergence directly.
func (n *Node) Store() *gossip.Database {
	return n.store
}
