package datapipe

import "fmt"

// Tape is the ordered log a pipeline serializes its position onto.
// Writes append to the end; reads consume sequentially from a cursor.
// There is no random access: the sequence of writes performed by
// RecordPosition over a pipeline and the sequence of reads performed by
// ReloadPosition over a structurally identical pipeline must match in
// count and type, or the read fails explicitly rather than silently
// misaligning.
//
// Entries are primitive values (bool, int64, uint64, string) plus opaque
// payloads recorded by strict-mode sources (Shuffle's pending buffer).
// The byte-level encoding of a tape is deliberately out of scope; callers
// that persist checkpoints encode Entries themselves.
type Tape struct {
	entries []any
	pos     int
}

// NewTape returns an empty tape.
func NewTape() *Tape {
	return &Tape{}
}

// RestoredTape builds a tape from previously persisted entries, with the
// read cursor at the start. The entries are used as-is, so integer values
// must round-trip as int64/uint64 through whatever encoding was used.
func RestoredTape(entries []any) *Tape {
	return &Tape{entries: entries}
}

// Append writes a value to the end of the tape.
func (t *Tape) Append(v any) {
	t.entries = append(t.entries, v)
}

// ReadBool consumes the next entry, which must be a bool.
func (t *Tape) ReadBool() (bool, error) {
	v, err := t.read()
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, t.typeErr("bool", v)
	}
	return b, nil
}

// ReadInt consumes the next entry, which must be an int64.
func (t *Tape) ReadInt() (int64, error) {
	v, err := t.read()
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, t.typeErr("int64", v)
	}
	return n, nil
}

// ReadUint consumes the next entry, which must be a uint64.
func (t *Tape) ReadUint() (uint64, error) {
	v, err := t.read()
	if err != nil {
		return 0, err
	}
	n, ok := v.(uint64)
	if !ok {
		return 0, t.typeErr("uint64", v)
	}
	return n, nil
}

// ReadString consumes the next entry, which must be a string.
func (t *Tape) ReadString() (string, error) {
	v, err := t.read()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", t.typeErr("string", v)
	}
	return s, nil
}

// ReadAny consumes the next entry without a type constraint. Used for
// opaque payloads a source recorded in strict mode.
func (t *Tape) ReadAny() (any, error) {
	return t.read()
}

// Rewind moves the read cursor back to the start of the tape.
func (t *Tape) Rewind() {
	t.pos = 0
}

// Len returns the number of entries on the tape.
func (t *Tape) Len() int {
	return len(t.entries)
}

// Pos returns the read cursor position.
func (t *Tape) Pos() int {
	return t.pos
}

// Entries returns a copy of the full log, independent of the read cursor.
func (t *Tape) Entries() []any {
	out := make([]any, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Tape) read() (any, error) {
	if t.pos >= len(t.entries) {
		return nil, fmt.Errorf("%w: read past entry %d", ErrTapeExhausted, len(t.entries))
	}
	v := t.entries[t.pos]
	t.pos++
	return v, nil
}

func (t *Tape) typeErr(want string, got any) error {
	return fmt.Errorf("%w: expected %s, got %T at entry %d", ErrTapeType, want, got, t.pos-1)
}
