// Command chatnode runs a single gossip chat node. Startup is
// positional-args only, per spec: no flags, no config file, no
// environment variables.
//
//	chatnode <index> <clusterSize> <tcpPort> [introspectPort]
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/chatgossip/node/internal/config"
	"github.com/chatgossip/node/internal/node"
)

func main() {
	cfg, err := parseArgs(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintf(os.Stderr, "usage: %s <index> <clusterSize> <tcpPort> [introspectPort]\n", os.Args[0])
		os.Exit(1)
	}

	n, err := node.New(cfg)
	if err != nil {
		log.Fatalf("chatnode: %v", err)
	}

	n.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Println("chatnode: signal received, shutting down")
		n.Shutdown()
	case <-n.Done():
		log.Println("chatnode: crashed via control channel")
	}
}

// parseArgs mirrors the original implementation's strict argc check:
// exactly 3 positional arguments, plus an optional 4th this codebase adds
// for the introspection server.
func parseArgs(argv []string) (*config.Config, error) {
	args := argv[1:]
	if len(args) != 3 && len(args) != 4 {
		return nil, fmt.Errorf("chatnode: expected 3 or 4 arguments, got %d", len(args))
	}

	index, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("chatnode: invalid index %q: %w", args[0], err)
	}
	clusterSize, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, fmt.Errorf("chatnode: invalid cluster size %q: %w", args[1], err)
	}
	tcpPort, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, fmt.Errorf("chatnode: invalid tcp port %q: %w", args[2], err)
	}

	cfg := config.New(index, clusterSize, tcpPort)

	if len(args) == 4 {
		introspectPort, err := strconv.Atoi(args[3])
		if err != nil {
			return nil, fmt.Errorf("chatnode: invalid introspect port %q: %w", args[3], err)
		}
		cfg.IntrospectPort = introspectPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("chatnode: %w", err)
	}
	return cfg, nil
}
