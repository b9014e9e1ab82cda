package gossip

import "testing"

func TestDatabaseAppendLocalAssignsContiguousSeq(t *testing.T) {
	db := NewDatabase(40000)

	for i, text := range []string{"hello", "world", "!"} {
		seq, err := db.AppendLocal(text)
		if err != nil {
			t.Fatalf("AppendLocal(%q): unexpected error: %v", text, err)
		}
		if int(seq) != i {
			t.Fatalf("AppendLocal(%q): got seq %d, want %d", text, seq, i)
		}
	}

	low, ok := db.LowestMissing(40000)
	if !ok || low != 3 {
		t.Fatalf("LowestMissing(self) = (%d, %v), want (3, true)", low, ok)
	}
}

func TestDatabaseAppendLocalRejectsReservedChars(t *testing.T) {
	db := NewDatabase(40000)

	for _, text := range []string{"a,b", "a:b", "a{b", "a}b", "a\nb"} {
		if _, err := db.AppendLocal(text); err != ErrInvalidText {
			t.Errorf("AppendLocal(%q): got err %v, want ErrInvalidText", text, err)
		}
	}
}

func TestDatabaseInsertIsIdempotent(t *testing.T) {
	db := NewDatabase(40000)

	if res := db.Insert(40001, 0, "hi"); res != Inserted {
		t.Fatalf("first insert: got %v, want Inserted", res)
	}
	if res := db.Insert(40001, 0, "hi-again"); res != Duplicate {
		t.Fatalf("second insert: got %v, want Duplicate", res)
	}

	text, ok := db.Get(40001, 0)
	if !ok || text != "hi" {
		t.Fatalf("Get after duplicate insert: got (%q, %v), want (%q, true)", text, ok, "hi")
	}
}

func TestDatabaseInsertOutOfOrderAdvancesLowestMissingOnlyOnFill(t *testing.T) {
	db := NewDatabase(40000)

	db.Insert(40001, 1, "second")
	if low, _ := db.LowestMissing(40001); low != 0 {
		t.Fatalf("after inserting seq 1 only: LowestMissing = %d, want 0", low)
	}

	db.Insert(40001, 0, "first")
	if low, _ := db.LowestMissing(40001); low != 2 {
		t.Fatalf("after filling seq 0: LowestMissing = %d, want 2", low)
	}
}

func TestDatabaseLowestMissingUnknownOrigin(t *testing.T) {
	db := NewDatabase(40000)

	if _, ok := db.LowestMissing(99999); ok {
		t.Fatalf("LowestMissing(unknown origin) reported known, want unknown")
	}
}

func TestDatabaseStatusVectorForDoesNotCreateUnknownOrigin(t *testing.T) {
	db := NewDatabase(40000)

	digest := db.StatusVectorFor(99999)
	if len(digest) != 2 {
		t.Fatalf("StatusVectorFor(unknown): len = %d, want 2 (subject + self)", len(digest))
	}
	if digest[0].Origin != 99999 || digest[0].Low != 0 {
		t.Fatalf("StatusVectorFor(unknown): first pair = %+v, want {99999 0}", digest[0])
	}

	if _, ok := db.LowestMissing(99999); ok {
		t.Fatalf("StatusVectorFor must not create an entry for an unknown origin")
	}
}

func TestDatabaseStatusVectorSelfFirst(t *testing.T) {
	db := NewDatabase(40000)
	db.Insert(40001, 0, "a")
	db.AppendLocal("b")

	digest := db.StatusVector()
	if digest[0].Origin != 40000 {
		t.Fatalf("StatusVector: first origin = %d, want self (40000)", digest[0].Origin)
	}
}

func TestDatabaseChatLogOrdering(t *testing.T) {
	db := NewDatabase(40000)
	db.Insert(40002, 1, "c1")
	db.Insert(40002, 0, "c0")
	db.AppendLocal("a0")
	db.Insert(40001, 0, "b0")

	got := db.ChatLog()
	want := []string{"a0", "b0", "c0", "c1"}
	if len(got) != len(want) {
		t.Fatalf("ChatLog() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ChatLog()[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestDatabaseChatLogEmpty(t *testing.T) {
	db := NewDatabase(40000)
	got := db.ChatLog()
	if len(got) != 0 {
		t.Fatalf("ChatLog() on fresh database = %v, want empty", got)
	}
}

func TestDatabaseEnsureOriginIsNoopOnExisting(t *testing.T) {
	db := NewDatabase(40000)
	db.Insert(40001, 0, "a")
	db.EnsureOrigin(40001)

	text, ok := db.Get(40001, 0)
	if !ok || text != "a" {
		t.Fatalf("EnsureOrigin on a known origin clobbered existing data: got (%q, %v)", text, ok)
	}
}
