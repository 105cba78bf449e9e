// Package backtest replays recorded market data through the engine with a
// simulated clock, so a strategy sees exactly the event sequence it would
// have seen live.
package backtest

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/resources"
)

const maxLineBytes = 4 << 20

// Reader streams market book snapshots from a JSON-lines recording, one
// snapshot per line, ordered by publish time within the file.
type Reader struct {
	path    string
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner

	next *resources.MarketBook
	err  error
}

// Open prepares a recording for reading. Files ending in .gz are
// decompressed on the fly.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{path: path, file: f}

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "open recording "+path)
		}
		r.gz = gz
		src = gz
	}
	r.scanner = bufio.NewScanner(src)
	r.scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	r.advance()
	return r, nil
}

func (r *Reader) advance() {
	r.next = nil
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		book := &resources.MarketBook{}
		if err := json.Unmarshal(line, book); err != nil {
			r.err = errors.Wrap(err, "decode recording "+r.path)
			return
		}
		r.next = book
		return
	}
	if err := r.scanner.Err(); err != nil {
		r.err = errors.Wrap(err, "read recording "+r.path)
	}
}

// Peek returns the upcoming snapshot without consuming it.
func (r *Reader) Peek() (*resources.MarketBook, bool) {
	return r.next, r.next != nil
}

// Next consumes and returns the upcoming snapshot, io.EOF when exhausted.
func (r *Reader) Next() (*resources.MarketBook, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.next == nil {
		return nil, io.EOF
	}
	book := r.next
	r.advance()
	return book, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}

// merger interleaves several recordings by publish time, batching snapshots
// that share the same instant so concurrent markets tick together.
type merger struct {
	readers []*Reader
}

func (m *merger) nextBatch() ([]*resources.MarketBook, error) {
	var earliest *Reader
	for _, r := range m.readers {
		book, ok := r.Peek()
		if !ok {
			if r.err != nil {
				return nil, r.err
			}
			continue
		}
		if earliest == nil {
			earliest = r
			continue
		}
		head, _ := earliest.Peek()
		if book.PublishTime.Before(head.PublishTime) {
			earliest = r
		}
	}
	if earliest == nil {
		return nil, io.EOF
	}

	head, _ := earliest.Peek()
	var batch []*resources.MarketBook
	for _, r := range m.readers {
		for {
			book, ok := r.Peek()
			if !ok || !book.PublishTime.Equal(head.PublishTime) {
				break
			}
			if _, err := r.Next(); err != nil {
				return nil, err
			}
			batch = append(batch, book)
		}
	}
	return batch, nil
}
