package gossip

import "log"

// Sender delivers an encoded payload to a peer, best-effort. Failures are
// logged and swallowed by the engine (spec §4.4's failure semantics); the
// next timer tick or incoming message drives the next attempt.
type Sender interface {
	Send(to OriginID, payload string) error
}

// Engine is the gossip reconciliation state machine (C4): it handles
// inbound rumor and status datagrams and drives the periodic anti-entropy
// broadcast, mutating only the Database it was built with.
//
// Its sender and rand collaborators are interfaces, so it can run entirely
// in-process against a fake Sender in tests, the way the teacher's
// Coordinator depends on a storage.Engine interface instead of a concrete
// Bitcask. The store is the concrete *Database.
type Engine struct {
	self  OriginID
	index int
	n     int
	root  int

	store  *Database
	sender Sender
	rand   Rand
}

// NewEngine builds an Engine for node index in a cluster of n, whose
// gossip identity is root+index.
func NewEngine(index, n, root int, store *Database, sender Sender, r Rand) *Engine {
	return &Engine{
		self:   OriginID(root + index),
		index:  index,
		n:      n,
		root:   root,
		store:  store,
		sender: sender,
		rand:   r,
	}
}

func (e *Engine) neighbors() []OriginID {
	return Neighbors(e.index, e.n, e.root)
}

func (e *Engine) pickNeighbor(exclude OriginID, hasExclude bool) (OriginID, bool) {
	return PickOne(e.neighbors(), exclude, hasExclude, e.rand)
}

func (e *Engine) send(to OriginID, payload string) {
	if err := e.sender.Send(to, payload); err != nil {
		log.Printf("gossip: send to %d failed: %v", to, err)
	}
}

// HandleDatagram decodes raw and dispatches it. Malformed datagrams are
// logged and dropped; they never propagate an error to the caller or the
// network (spec §7).
func (e *Engine) HandleDatagram(raw string) {
	msg, err := Decode(raw)
	if err != nil {
		log.Printf("gossip: dropping malformed datagram: %v", err)
		return
	}
	switch m := msg.(type) {
	case RumorMessage:
		e.HandleRumor(m)
	case StatusMessage:
		e.HandleStatus(m)
	}
}

// HandleRumor implements spec §4.4's rumor handling: insert (idempotent)
// then reply to the sender with a status Digest naming this origin first,
// telling the sender exactly how far this node got.
func (e *Engine) HandleRumor(m RumorMessage) {
	e.store.Insert(m.Origin, m.Seq, m.Text)

	reply := e.store.StatusVectorFor(m.Origin)
	e.send(m.Sender, EncodeStatus(e.self, reply))
}

// HandleStatus implements spec §4.4's reconciliation state machine. Pairs
// are compared in order; the first case that fires decides the reply and
// the handler returns immediately ("stop"). Only if every pair is aligned
// does the hushing coin flip run.
func (e *Engine) HandleStatus(m StatusMessage) {
	for _, pair := range m.Pairs {
		myLow, known := e.store.LowestMissing(pair.Origin)

		switch {
		case !known && pair.Low > 0:
			// Case A: unknown origin, sender has something. Bootstrap the
			// entry and ask for it.
			e.store.EnsureOrigin(pair.Origin)
			e.send(m.Sender, EncodeStatus(e.self, e.store.StatusVectorFor(pair.Origin)))
			return

		case !known && pair.Low == 0:
			// Case A': unknown origin, nothing to fetch yet. Bootstrap and
			// keep scanning the rest of the vector.
			e.store.EnsureOrigin(pair.Origin)
			continue

		case known && myLow < pair.Low:
			// Case B: sender knows more than we do about this origin. Ask.
			e.send(m.Sender, EncodeStatus(e.self, e.store.StatusVectorFor(pair.Origin)))
			return

		case known && myLow > pair.Low:
			// Case C: we know more than the sender. Push the message they're
			// missing.
			if text, ok := e.store.Get(pair.Origin, pair.Low); ok {
				e.send(m.Sender, EncodeRumor(e.self, pair.Origin, pair.Low, text))
			}
			return

		default:
			// Case D: aligned on this origin, keep scanning.
			continue
		}
	}

	// Every pair aligned: the hushing coin flip (spec §4.4, §9).
	if e.rand.Intn(2) == 0 {
		return
	}
	if next, ok := e.pickNeighbor(m.Sender, true); ok {
		e.send(next, EncodeStatus(e.self, e.store.StatusVector()))
	}
}

// BroadcastStatus sends this node's full status Digest to every neighbor.
// Driven by the periodic anti-entropy ticker (C5); the liveness mechanism
// that bounds convergence time even if every unicast reply is lost.
func (e *Engine) BroadcastStatus() {
	payload := EncodeStatus(e.self, e.store.StatusVector())
	for _, peer := range e.neighbors() {
		e.send(peer, payload)
	}
}

// PushLocal appends text to the self origin's log and, if a neighbor
// exists, pushes the new message to a randomly chosen one. Used by the
// control channel's "msg" command.
func (e *Engine) PushLocal(text string) (SeqNum, error) {
	seq, err := e.store.AppendLocal(text)
	if err != nil {
		return 0, err
	}
	if peer, ok := e.pickNeighbor(0, false); ok {
		e.send(peer, EncodeRumor(e.self, e.self, seq, text))
	}
	return seq, nil
}

// Self returns this node's gossip identity.
func (e *Engine) Self() OriginID {
	return e.self
}

// Store returns the underlying Database, for the control and introspection
// layers that need read/append access alongside the engine.
func (e *Engine) Store() *Database {
	return e.store
}
