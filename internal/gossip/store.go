package gossip

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidText is returned by AppendLocal when the message text contains
// one of the wire format's structural separators. The codec does not
// escape these characters (spec's text-encoding constraint), so rejecting
// them at the point of local submission is how this implementation avoids
// emitting a datagram that would desync on decode.
var ErrInvalidText = errors.New("message text contains a reserved wire character")

// InsertResult reports whether insert established a new entry.
type InsertResult int

const (
	// Inserted means the (origin, seq) pair was new.
	Inserted InsertResult = iota
	// Duplicate means messages[origin][seq] already existed; no mutation
	// occurred (invariant L3: immutability).
	Duplicate
)

// OriginLog is the per-origin sub-database: a sparse map from sequence
// number to text plus the lowest sequence number not yet present.
type OriginLog struct {
	messages      map[SeqNum]string
	lowestMissing SeqNum
}

func newOriginLog() *OriginLog {
	return &OriginLog{messages: make(map[SeqNum]string)}
}

// insert establishes (seq, text) if absent and advances lowestMissing past
// any now-contiguous run. Caller must hold the Database's write lock.
func (l *OriginLog) insert(seq SeqNum, text string) InsertResult {
	if _, exists := l.messages[seq]; exists {
		return Duplicate
	}
	l.messages[seq] = text
	if seq == l.lowestMissing {
		l.lowestMissing++
		for {
			if _, ok := l.messages[l.lowestMissing]; !ok {
				break
			}
			l.lowestMissing++
		}
	}
	return Inserted
}

// containsReservedChar reports whether text uses one of the wire format's
// unescaped structural separators.
func containsReservedChar(text string) bool {
	return strings.ContainsAny(text, ",:{}\n")
}

// Database maps OriginID to that origin's OriginLog. It is the node's
// single invariant-bearing data structure, exclusively owned by the node
// and protected by one mutual-exclusion discipline: at most one mutator or
// consistent reader runs at a time.
type Database struct {
	mu   sync.RWMutex
	self OriginID
	logs map[OriginID]*OriginLog
}

// NewDatabase creates a Database with the self origin's log already
// present, per spec's lifecycle rule.
func NewDatabase(self OriginID) *Database {
	return &Database{
		self: self,
		logs: map[OriginID]*OriginLog{self: newOriginLog()},
	}
}

// logFor returns the OriginLog for origin, lazily creating an empty one if
// absent. Caller must hold the write lock.
func (d *Database) logFor(origin OriginID) *OriginLog {
	l, ok := d.logs[origin]
	if !ok {
		l = newOriginLog()
		d.logs[origin] = l
	}
	return l
}

// Insert establishes origin's OriginLog if absent, then stores (seq, text)
// if not already present.
func (d *Database) Insert(origin OriginID, seq SeqNum, text string) InsertResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logFor(origin).insert(seq, text)
}

// EnsureOrigin lazily creates an empty OriginLog for origin if it doesn't
// already exist, without inserting any message. Used by the status
// handler's cases A/A'.
func (d *Database) EnsureOrigin(origin OriginID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logFor(origin)
}

// AppendLocal allocates the next sequence number for the self origin,
// inserts (seq, text), and returns seq. Because the self log only grows
// contiguously through this path, lowestMissing advances by exactly one
// per call.
func (d *Database) AppendLocal(text string) (SeqNum, error) {
	if containsReservedChar(text) {
		return 0, ErrInvalidText
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	self := d.logFor(d.self)
	seq := self.lowestMissing
	self.insert(seq, text)
	return seq, nil
}

// Get returns the text stored for (origin, seq), if any.
func (d *Database) Get(origin OriginID, seq SeqNum) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	l, ok := d.logs[origin]
	if !ok {
		return "", false
	}
	text, ok := l.messages[seq]
	return text, ok
}

// LowestMissing returns (lowestMissing, true) for a known origin, or
// (0, false) if the origin has never been observed.
func (d *Database) LowestMissing(origin OriginID) (SeqNum, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	l, ok := d.logs[origin]
	if !ok {
		return 0, false
	}
	return l.lowestMissing, true
}

// StatusVector returns a consistent snapshot Digest of the Database, the
// self origin first, used both to build outbound status messages and for
// introspection.
func (d *Database) StatusVector() Digest {
	return d.StatusVectorFor(d.self)
}

// StatusVectorFor returns a Digest with originFirst's pair first, followed
// by every other known origin. Used by the rumor handler's reply and by
// the status handler's cases A/B requests, which must name the origin
// they're asking about first (spec §4.4, §9's "status response target
// origin" open question). originFirst need not already exist; an unknown
// origin simply reports lowestMissing == 0 without being created (callers
// that need the origin to exist call EnsureOrigin/Insert first).
func (d *Database) StatusVectorFor(originFirst OriginID) Digest {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var firstLow SeqNum
	if l, ok := d.logs[originFirst]; ok {
		firstLow = l.lowestMissing
	}

	pairs := make([]StatusPair, 0, len(d.logs)+1)
	pairs = append(pairs, StatusPair{Origin: originFirst, Low: firstLow})
	for origin, l := range d.logs {
		if origin == originFirst {
			continue
		}
		pairs = append(pairs, StatusPair{Origin: origin, Low: l.lowestMissing})
	}
	return Digest(pairs)
}

// ChatLog returns every stored message's text, iterated across all
// origins and sequence numbers in a stable (origin, then seq) order.
func (d *Database) ChatLog() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	origins := make([]OriginID, 0, len(d.logs))
	for origin := range d.logs {
		origins = append(origins, origin)
	}
	sort.Slice(origins, func(i, j int) bool { return origins[i] < origins[j] })

	out := make([]string, 0)
	for _, origin := range origins {
		l := d.logs[origin]
		seqs := make([]SeqNum, 0, len(l.messages))
		for seq := range l.messages {
			seqs = append(seqs, seq)
		}
		sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
		for _, seq := range seqs {
			out = append(out, l.messages[seq])
		}
	}
	return out
}

// MessageCount returns the number of stored messages for origin.
func (d *Database) MessageCount(origin OriginID) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	l, ok := d.logs[origin]
	if !ok {
		return 0
	}
	return len(l.messages)
}
