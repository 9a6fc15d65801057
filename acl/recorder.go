package acl

import (
	"fmt"
	"io"
	"log"
	"os"
	"slices"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Recording buffer geometry: each compartment owns a fixed buffer holding a
// header and as many intervals as fit.
const (
	RECORD_COMPARTMENTS = 56
	RECORD_BUFFER_SIZE  = 1024
	RECORD_SLOTS        = (RECORD_BUFFER_SIZE - 8) / 8
)

type recordBuffer struct {
	used  bool
	slots []Interval
}

// Recorder permits every write and records, per compartment, word-aligned
// intervals covering each address it is asked about. Adjacent intervals
// are coalesced, so the final set does not depend on the order in which
// addresses were observed.
type Recorder struct {
	Verbose bool // Set to enable verbose logging.

	Session string // Identifier of the current recording session.

	buffers [RECORD_COMPARTMENTS]recordBuffer
}

// NewRecorder returns an empty recorder with a fresh session.
func NewRecorder() (rec *Recorder) {
	rec = &Recorder{}
	rec.Clear()
	return
}

// Clear discards all recorded intervals and starts a new session.
func (rec *Recorder) Clear() {
	for n := range rec.buffers {
		rec.buffers[n] = recordBuffer{}
	}
	rec.Session = xid.New().String()
}

// Check implements Checker. It fails only when the compartment has no
// buffer or its buffer is full.
func (rec *Recorder) Check(id uint8, addr uint32) (err error) {
	if int(id) >= len(rec.buffers) {
		err = ErrRecordFull
		return
	}

	buf := &rec.buffers[id]
	if !buf.used {
		buf.used = true
		buf.slots = make([]Interval, 0, RECORD_SLOTS)
	}

	// Interval ends are exclusive, so the top word has no representable end.
	if addr&^3 == 0xffff_fffc {
		err = ErrRecordRange
		return
	}

	word := Interval{Start: addr &^ 3, End: (addr &^ 3) + 4}

	for _, iv := range buf.slots {
		if iv.Covers(word) {
			return
		}
	}

	for n := range buf.slots {
		iv := &buf.slots[n]
		switch {
		case iv.End == word.Start:
			iv.End = word.End
		case iv.Start == word.End:
			iv.Start = word.Start
		default:
			continue
		}
		if rec.Verbose {
			log.Printf("acl: record %d extend %v", id, *iv)
		}
		buf.coalesce(n)
		return
	}

	if len(buf.slots) == RECORD_SLOTS {
		err = ErrRecordFull
		return
	}

	if rec.Verbose {
		log.Printf("acl: record %d new %v", id, word)
	}
	buf.slots = append(buf.slots, word)
	return
}

// coalesce merges every interval touching slot n into it.
func (buf *recordBuffer) coalesce(n int) {
	for merged := true; merged; {
		merged = false
		for m := range buf.slots {
			if m == n || !buf.slots[n].Adjacent(buf.slots[m]) {
				continue
			}
			buf.slots[n].Start = min(buf.slots[n].Start, buf.slots[m].Start)
			buf.slots[n].End = max(buf.slots[n].End, buf.slots[m].End)
			buf.slots = slices.Delete(buf.slots, m, m+1)
			if m < n {
				n--
			}
			merged = true
			break
		}
	}
}

// Intervals returns the recorded intervals of compartment id in address
// order.
func (rec *Recorder) Intervals(id uint8) (table []Interval) {
	if int(id) >= len(rec.buffers) {
		return
	}

	table = slices.Clone(rec.buffers[id].slots)
	Sort(table)
	return
}

// Compartments returns the ids that have recorded at least one interval.
func (rec *Recorder) Compartments() (ids []uint8) {
	for n, buf := range rec.buffers {
		if buf.used && len(buf.slots) > 0 {
			ids = append(ids, uint8(n))
		}
	}
	return
}

// Enforcer returns an enforcer whose tables are the recorded intervals.
func (rec *Recorder) Enforcer() (enf *Enforcer) {
	enf = NewEnforcer()
	for _, id := range rec.Compartments() {
		enf.Set(id, rec.Intervals(id))
	}
	return
}

// WriteCSV writes every recorded interval, one per line.
func (rec *Recorder) WriteCSV(w io.Writer) (err error) {
	_, err = fmt.Fprintf(w, "Session, Compartment, Start, End\n")
	if err != nil {
		return
	}

	for _, id := range rec.Compartments() {
		for _, iv := range rec.Intervals(id) {
			_, err = fmt.Fprintf(w, "%s, %d, %#08x, %#08x\n", rec.Session, id, iv.Start, iv.End)
			if err != nil {
				return
			}
		}
	}

	return
}

// DefaultExportPath returns the export file name for the current session.
func (rec *Recorder) DefaultExportPath() string {
	return "ucomp_record_" + rec.Session + ".csv"
}

// Export writes the recorded intervals to path, or to the default export
// path when path is empty. An existing file is not overwritten.
func (rec *Recorder) Export(path string) (err error) {
	if path == "" {
		path = rec.DefaultExportPath()
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return
	}
	defer func() {
		cerr := file.Close()
		if err == nil {
			err = cerr
		}
	}()

	return rec.WriteCSV(file)
}

// ExportOnExit arranges for Export(path) to run when the program exits
// through atexit.
func (rec *Recorder) ExportOnExit(path string) {
	atexit.Register(func() {
		err := rec.Export(path)
		if err != nil {
			log.Printf("acl: export: %v", err)
		}
	})
}
