package tape

import (
	"context"
	"io"
	"log/slog"
	"os"

	"market_guard/internal/event"
	"market_guard/pkg/quant"
)

// Feeder pushes a tape into the sequencer inbox.
// Unlike the live gateways it never drops: a lockstep pipeline cannot skip steps.
type Feeder struct {
	r     *Reader
	inbox chan<- event.Event
	seq   *uint64
}

// NewFeeder creates a feeder sharing the sequence counter seq.
func NewFeeder(r *Reader, inbox chan<- event.Event, seq *uint64) *Feeder {
	return &Feeder{r: r, inbox: inbox, seq: seq}
}

// Feed sends every row and returns the number of events sent.
// It stops early on a malformed row or when ctx is cancelled.
func (f *Feeder) Feed(ctx context.Context) (int, error) {
	n := 0
	for {
		row, err := f.r.Next()
		if err == io.EOF {
			slog.Info("Tape exhausted", slog.Int("events", n))
			return n, nil
		}
		if err != nil {
			return n, err
		}

		// The sequence number is taken only once the row is known to be valid.
		ev := row.Event(quant.NextSeq(f.seq))
		select {
		case f.inbox <- ev:
			n++
		case <-ctx.Done():
			event.Release(ev)
			return n, ctx.Err()
		}
	}
}

// FeedFile opens path and feeds it through q.
func FeedFile(ctx context.Context, path string, q Quantizer, inbox chan<- event.Event, seq *uint64) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return NewFeeder(NewReader(file, q), inbox, seq).Feed(ctx)
}
