package scopez

import "testing"

func TestNewCallsiteMetadata(t *testing.T) {
	cs := NewCallsite("db.query", "scopez/test/store", LevelDebug,
		[]string{"table", "rows"})

	meta := cs.Metadata()
	if meta.Name() != "db.query" {
		t.Errorf("expected name db.query, got %s", meta.Name())
	}
	if meta.Target() != "scopez/test/store" {
		t.Errorf("expected target scopez/test/store, got %s", meta.Target())
	}
	if meta.Level() != LevelDebug {
		t.Errorf("expected level DEBUG, got %s", meta.Level())
	}
	if meta.Callsite() != cs {
		t.Error("metadata must back-reference its callsite")
	}
	if got := meta.Fields().Names(); len(got) != 2 || got[0] != "table" || got[1] != "rows" {
		t.Errorf("unexpected field names %v", got)
	}
}

func TestNewEventCallsitePrependsMessage(t *testing.T) {
	cs := NewEventCallsite("ready", "scopez/test", LevelInfo, []string{"count"})

	names := cs.Metadata().Fields().Names()
	if len(names) != 2 || names[0] != "message" || names[1] != "count" {
		t.Errorf("expected [message count], got %v", names)
	}
}

func TestFieldNamesAreKeys(t *testing.T) {
	declared := []Key{"table", "rows"}
	cs := NewCallsite("keyed", "scopez/test", LevelInfo, declared)

	names := cs.Metadata().Fields().Names()
	if len(names) != 2 || names[0] != Key("table") || names[1] != Key("rows") {
		t.Errorf("unexpected keys %v", names)
	}
	if _, ok := cs.Metadata().Fields().Field(Key("rows")); !ok {
		t.Error("declared key must resolve to its field")
	}
}

func TestFieldLookup(t *testing.T) {
	cs := NewCallsite("lookup", "scopez/test", LevelInfo, []string{"a", "b"})
	fields := cs.Metadata().Fields()

	f, ok := fields.Field("b")
	if !ok {
		t.Fatal("expected to find declared field b")
	}
	if f.Name() != "b" || f.Index() != 1 {
		t.Errorf("unexpected field identity %s/%d", f.Name(), f.Index())
	}
	if f.Metadata() != cs.Metadata() {
		t.Error("field must reference its declaring metadata")
	}

	if _, ok := fields.Field("missing"); ok {
		t.Error("undeclared field must not resolve")
	}
	if _, ok := fields.At(2); ok {
		t.Error("out-of-range index must not resolve")
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	cs := NewCallsite("idempotent", "scopez/test", LevelInfo, nil)

	before := len(registeredCallsites())
	cs.Register()
	cs.AddInterest(InterestAlways)
	cs.Register()
	cs.Register()
	after := len(registeredCallsites())

	if after != before+1 {
		t.Errorf("expected exactly one registry entry, got %d new", after-before)
	}
	if got := cs.Interest(); !got.IsAlways() {
		t.Errorf("re-registration must not reset cached interest, got %s", got)
	}
}

func TestDefaultInterestIsNever(t *testing.T) {
	cs := NewCallsite("untouched", "scopez/test", LevelError, nil)

	if got := cs.Interest(); !got.IsNever() {
		t.Errorf("callsite with no subscriber must be never, got %s", got)
	}
}

func TestWithStateCellSubstitution(t *testing.T) {
	cell := &countingCell{}
	cs := NewCallsite("cell", "scopez/test", LevelInfo, nil, WithStateCell(cell))

	cs.Register()
	cs.AddInterest(InterestSometimes)
	_ = cs.Interest()

	cell.mu.Lock()
	loads, stores := cell.loads, cell.stores
	cell.mu.Unlock()
	if loads == 0 || stores == 0 {
		t.Errorf("substituted cell must carry all accesses, loads=%d stores=%d",
			loads, stores)
	}
}
