// Package sources provides leaf data sources over real backing stores:
// Kafka topics, Postgres queries, and S3-compatible object listings.
// Each implements datapipe.Source with a position mapped onto whatever
// cursor the store natively supports (offset, row count, object key) and
// takes its store client through a small interface so tests can fake it.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"

	"github.com/sysuresh/datapipe"
)

// KafkaReader is the subset of *kafka.Reader this source uses. The seam
// exists so tests can substitute a fake without a broker.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	SetOffset(offset int64) error
	Offset() int64
	Close() error
}

// Kafka is an infinite leaf source over a single-partition Kafka topic.
// Items are kafka.Message values; the position is the reader's next
// offset, which makes checkpoints exact and cheap.
//
// The reader must be offset-managed (no GroupID): group-managed readers
// cannot seek, so RecordPosition fails under Strict and writes a skip
// marker under BestEffort, leaving the committed group offset as the
// effective position.
//
// A live topic never exhausts; ReadMessage blocks until a message
// arrives or the context ends. Next surfaces io.EOF from a closed reader
// as exhaustion rather than an error.
type Kafka struct {
	reader KafkaReader
	name   datapipe.Name
	start  int64
}

// NewKafka wraps reader. The reader's offset at construction time
// becomes the Reset target. Ownership transfers: closing the source
// closes the reader.
func NewKafka(name datapipe.Name, reader KafkaReader) *Kafka {
	return &Kafka{name: name, reader: reader, start: reader.Offset()}
}

// Next implements the Source interface.
func (k *Kafka) Next(ctx context.Context) (kafka.Message, bool, error) {
	msg, err := k.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return kafka.Message{}, false, nil
		}
		return kafka.Message{}, false, err
	}
	return msg, true, nil
}

// Reset implements the Source interface, seeking back to the offset the
// reader had at construction.
func (k *Kafka) Reset() error {
	if k.groupManaged() {
		return fmt.Errorf("source %q: cannot reset a group-managed reader", k.name)
	}
	return k.reader.SetOffset(k.start)
}

// RecordPosition implements the Source interface.
func (k *Kafka) RecordPosition(_ context.Context, t *datapipe.Tape, mode datapipe.Mode) error {
	if k.groupManaged() {
		if mode == datapipe.Strict {
			return fmt.Errorf("source %q: %w: reader is group-managed", k.name, datapipe.ErrPositionUnsupported)
		}
		t.Append(false)
		return nil
	}
	t.Append(true)
	t.Append(k.reader.Offset())
	return nil
}

// ReloadPosition implements the Source interface.
func (k *Kafka) ReloadPosition(_ context.Context, t *datapipe.Tape, _ datapipe.Mode) error {
	recorded, err := t.ReadBool()
	if err != nil {
		return fmt.Errorf("source %q: %w", k.name, err)
	}
	if !recorded {
		// Best-effort recording skipped the offset; the group's
		// committed offset stands.
		return nil
	}
	offset, err := t.ReadInt()
	if err != nil {
		return fmt.Errorf("source %q: %w", k.name, err)
	}
	if err := k.reader.SetOffset(offset); err != nil {
		return fmt.Errorf("source %q: seek to offset %d: %w", k.name, offset, err)
	}
	return nil
}

// Infinite implements the Source interface. A live topic can always
// receive more messages.
func (*Kafka) Infinite() bool {
	return true
}

// Name returns the name of this source.
func (k *Kafka) Name() datapipe.Name {
	return k.name
}

// Close shuts down the reader.
func (k *Kafka) Close() error {
	return k.reader.Close()
}

// groupManaged reports whether the reader is group-managed, which
// kafka-go signals by a negative Offset.
func (k *Kafka) groupManaged() bool {
	return k.reader.Offset() < 0
}
