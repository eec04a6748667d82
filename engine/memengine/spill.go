package memengine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
)

// spiller writes spill files into one directory and keeps the engine's
// external byte count current.
type spiller struct {
	dir      string
	external *atomic.Int64
}

// run is a spill file holding count fixed-size records, read back in the
// order they were written.
type run struct {
	path      string
	size      int64
	recSize   int
	remaining int
	external  *atomic.Int64

	f  *os.File
	zr *lz4.Reader
}

// runBlockSize is the lz4 block size of spill files. A reader holds about
// runReaderBytes of buffers while a run is open.
const (
	runBlockSize   = lz4.Block64Kb
	runReaderBytes = 2 * int(runBlockSize)
)

// runWriter streams records into a new spill file.
type runWriter struct {
	s       *spiller
	path    string
	recSize int
	count   int
	f       *os.File
	zw      *lz4.Writer
}

// create opens a new, empty spill file for records of recSize bytes.
func (s *spiller) create(recSize int) (*runWriter, error) {
	path := filepath.Join(s.dir, "tpgo-"+uuid.NewString()+".run")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("memengine: creating spill file: %w", err)
	}
	zw := lz4.NewWriter(f)
	if err := zw.Apply(lz4.BlockSizeOption(runBlockSize)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("memengine: configuring spill file: %w", err)
	}
	return &runWriter{s: s, path: path, recSize: recSize, f: f, zw: zw}, nil
}

// write appends records, whose length must be a multiple of recSize.
func (w *runWriter) write(records []byte) error {
	if _, err := w.zw.Write(records); err != nil {
		return fmt.Errorf("memengine: writing spill file: %w", err)
	}
	w.count += len(records) / w.recSize
	return nil
}

// finish closes the file and returns it as a run ready to be read.
func (w *runWriter) finish() (*run, error) {
	if err := w.zw.Close(); err != nil {
		w.abort()
		return nil, fmt.Errorf("memengine: flushing spill file: %w", err)
	}
	st, err := w.f.Stat()
	if err != nil {
		w.abort()
		return nil, err
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.path)
		return nil, err
	}

	w.s.external.Add(st.Size())
	return &run{
		path:      w.path,
		size:      st.Size(),
		recSize:   w.recSize,
		remaining: w.count,
		external:  w.s.external,
	}, nil
}

// abort discards a run that was never finished.
func (w *runWriter) abort() {
	_ = w.f.Close()
	_ = os.Remove(w.path)
}

// writeRun writes records, which must be a whole number of recSize-byte
// records, to a new spill file.
func (s *spiller) writeRun(records []byte, recSize int) (*run, error) {
	w, err := s.create(recSize)
	if err != nil {
		return nil, err
	}
	if err := w.write(records); err != nil {
		w.abort()
		return nil, err
	}
	return w.finish()
}

// next reads the next record into dst. It returns io.EOF when the run is
// exhausted, at which point the file has already been removed.
func (r *run) next(dst []byte) error {
	if r.remaining == 0 {
		return io.EOF
	}
	if r.zr == nil {
		f, err := os.Open(r.path)
		if err != nil {
			return fmt.Errorf("memengine: opening spill file: %w", err)
		}
		r.f = f
		r.zr = lz4.NewReader(f)
	}
	if _, err := io.ReadFull(r.zr, dst[:r.recSize]); err != nil {
		return fmt.Errorf("memengine: reading spill file: %w", err)
	}
	r.remaining--
	if r.remaining == 0 {
		return r.remove()
	}
	return nil
}

// readAll reads every remaining record and removes the file.
func (r *run) readAll(dst []byte) ([]byte, error) {
	n := r.remaining * r.recSize
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for off := 0; off < n; off += r.recSize {
		if err := r.next(dst[off : off+r.recSize]); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	}
	return dst, nil
}

// remove closes and deletes the spill file. Safe to call more than once.
func (r *run) remove() error {
	if r.path == "" {
		return nil
	}
	if r.f != nil {
		_ = r.f.Close()
		r.f = nil
		r.zr = nil
	}
	err := os.Remove(r.path)
	r.external.Add(-r.size)
	r.path = ""
	r.remaining = 0
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("memengine: removing spill file: %w", err)
	}
	return nil
}
