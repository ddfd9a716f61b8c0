package datapipe

import "context"

// Count is an infinite leaf source yielding start, start+step,
// start+2*step, and so on forever. It is the simplest source whose
// Infinite report is true, which makes it the canonical way to exercise
// unbounded pipelines (and the length-query guards around them).
type Count struct {
	name    Name
	start   int64
	step    int64
	current int64
}

// NewCount creates an infinite counter starting at start and advancing by
// step. A step of zero yields start forever.
func NewCount(name Name, start, step int64) *Count {
	return &Count{name: name, start: start, step: step, current: start}
}

// Next implements the Source interface. It never exhausts.
func (c *Count) Next(_ context.Context) (int64, bool, error) {
	v := c.current
	c.current += c.step
	return v, true, nil
}

// Reset implements the Source interface.
func (c *Count) Reset() error {
	c.current = c.start
	return nil
}

// RecordPosition implements the Source interface.
func (c *Count) RecordPosition(_ context.Context, t *Tape, _ Mode) error {
	t.Append(c.current)
	return nil
}

// ReloadPosition implements the Source interface.
func (c *Count) ReloadPosition(_ context.Context, t *Tape, _ Mode) error {
	v, err := t.ReadInt()
	if err != nil {
		return positionErr(c.name, err)
	}
	c.current = v
	return nil
}

// Infinite implements the Source interface.
func (*Count) Infinite() bool {
	return true
}

// Name returns the name of this source.
func (c *Count) Name() Name {
	return c.name
}

// Close implements the Source interface.
func (*Count) Close() error {
	return nil
}
