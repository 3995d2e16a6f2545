package tape

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"market_guard/internal/domain"
	"market_guard/internal/event"
	"market_guard/pkg/quant"

	"github.com/shopspring/decimal"
)

// Row is one parsed tape line before sequencing.
type Row struct {
	Line   int
	Preset bool // A preset switch rather than a market event
	Market domain.MarketEvent
	Value  domain.Preset
	Ts     quant.TimeStamp // Zero when the row carries no timestamp
}

// Reader parses a CSV tape of `kind,value[,ts_ms]` rows.
// Blank lines and lines starting with '#' are skipped, as is a leading
// `kind,value` header. The kind `preset` switches the rule thresholds.
type Reader struct {
	csv    *csv.Reader
	q      Quantizer
	header bool
}

// NewReader wraps r.
func NewReader(r io.Reader, q Quantizer) *Reader {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{csv: cr, q: q}
}

// Next returns the next row, or io.EOF at the end of the tape.
func (r *Reader) Next() (Row, error) {
	for {
		rec, err := r.csv.Read()
		if err == io.EOF {
			return Row{}, io.EOF
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return Row{}, &domain.TapeError{Line: line, Err: err}
		}
		line, _ := r.csv.FieldPos(0)

		if !r.header {
			r.header = true
			if strings.EqualFold(strings.TrimSpace(rec[0]), "kind") {
				continue
			}
		}

		row, err := r.parse(rec)
		if err != nil {
			return Row{}, &domain.TapeError{Line: line, Err: err}
		}
		row.Line = line
		return row, nil
	}
}

func (r *Reader) parse(rec []string) (Row, error) {
	if len(rec) < 2 || len(rec) > 3 {
		return Row{}, fmt.Errorf("expected 2 or 3 fields, got %d", len(rec))
	}

	var row Row
	if len(rec) == 3 {
		ts, err := strconv.ParseInt(strings.TrimSpace(rec[2]), 10, 64)
		if err != nil {
			return Row{}, fmt.Errorf("invalid timestamp %q: %w", rec[2], err)
		}
		row.Ts = quant.TimeStamp(ts)
	}

	kindField := strings.TrimSpace(rec[0])
	valueField := strings.TrimSpace(rec[1])

	if strings.EqualFold(kindField, "preset") {
		p, err := strconv.ParseUint(valueField, 10, 8)
		if err != nil || p > 3 {
			return Row{}, fmt.Errorf("invalid preset %q", valueField)
		}
		row.Preset = true
		row.Value = domain.Preset(p)
		return row, nil
	}

	kind, err := domain.ParseEventKind(kindField)
	if err != nil {
		return Row{}, err
	}
	v, err := decimal.NewFromString(valueField)
	if err != nil {
		return Row{}, fmt.Errorf("invalid value %q: %w", valueField, err)
	}
	row.Market = r.q.Event(kind, v)
	return row, nil
}

// Event turns a row into a sequenced event. Rows without a timestamp are
// stamped with the current wall clock.
func (row Row) Event(seq uint64) event.Event {
	ts := row.Ts
	if ts == 0 {
		ts = quant.TimeStamp(time.Now().UnixMilli())
	}
	if row.Preset {
		ev := &event.PresetEvent{Preset: row.Value}
		ev.Seq, ev.Ts = seq, ts
		return ev
	}
	ev := event.AcquireTickEvent()
	ev.Seq, ev.Ts = seq, ts
	ev.Market = row.Market
	return ev
}
