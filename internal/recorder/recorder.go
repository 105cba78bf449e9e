// Package recorder captures the market data feed as per-market JSON-lines
// recordings in the format the replay reader consumes.
package recorder

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/resources"
	"github.com/vincentmele/flumine/internal/strategy"
)

const defaultBufferSize = 256 * 1024

// Config controls recording output.
type Config struct {
	Dir        string
	Gzip       bool
	BufferSize int

	// Filter narrows which markets are recorded. Empty records everything.
	Filter strategy.MarketFilter
}

func (c Config) withDefaults() Config {
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("invalid recorder config: Dir is empty")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid recorder config: BufferSize must be > 0")
	}
	return nil
}

// Recorder is a strategy that writes every delivered book to one file per
// market. It places no orders. Callbacks run on the dispatcher goroutine, so
// no locking is needed.
type Recorder struct {
	strategy.Base
	cfg   Config
	files map[string]*marketFile
}

// New creates a recorder and ensures the target directory exists.
func New(cfg Config) (*Recorder, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Recorder{
		Base:  strategy.Base{StrategyName: "market_recorder", Filter: cfg.Filter},
		cfg:   cfg,
		files: make(map[string]*marketFile),
	}, nil
}

func (r *Recorder) CheckMarketBook(*market.Market, *resources.MarketBook) bool { return true }

func (r *Recorder) ProcessMarketBook(m *market.Market, book *resources.MarketBook) {
	r.write(m.MarketID, book)
}

// ProcessClosedMarket records the final book and seals the market's file.
func (r *Recorder) ProcessClosedMarket(m *market.Market, book *resources.MarketBook) {
	if book != nil {
		r.write(m.MarketID, book)
	}
	if f, ok := r.files[m.MarketID]; ok {
		if err := f.close(); err != nil {
			logs.Errorf("recorder close %s failed: %v", f.path, err)
		}
		delete(r.files, m.MarketID)
	}
}

// Finish flushes and closes any files still open.
func (r *Recorder) Finish(*market.Market) {
	for id, f := range r.files {
		if err := f.close(); err != nil {
			logs.Errorf("recorder close %s failed: %v", f.path, err)
		}
		delete(r.files, id)
	}
}

func (r *Recorder) write(marketID string, book *resources.MarketBook) {
	f, err := r.file(marketID)
	if err != nil {
		logs.Errorf("recorder open %s failed: %v", marketID, err)
		return
	}
	if err := f.enc.Encode(book); err != nil {
		logs.Errorf("recorder write %s failed: %v", marketID, err)
	}
}

func (r *Recorder) file(marketID string) (*marketFile, error) {
	if f, ok := r.files[marketID]; ok {
		return f, nil
	}
	name := marketID + ".jsonl"
	if r.cfg.Gzip {
		name += ".gz"
	}
	f, err := newMarketFile(filepath.Join(r.cfg.Dir, name), r.cfg.Gzip, r.cfg.BufferSize)
	if err != nil {
		return nil, err
	}
	r.files[marketID] = f
	return f, nil
}

type marketFile struct {
	path string
	file *os.File
	gz   *gzip.Writer
	buf  *bufio.Writer
	enc  *json.Encoder
}

func newMarketFile(path string, gzipped bool, bufferSize int) (*marketFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	f := &marketFile{path: path, file: file}
	if gzipped {
		f.gz = gzip.NewWriter(file)
		f.buf = bufio.NewWriterSize(f.gz, bufferSize)
	} else {
		f.buf = bufio.NewWriterSize(file, bufferSize)
	}
	f.enc = json.NewEncoder(f.buf)
	return f, nil
}

func (f *marketFile) close() error {
	if err := f.buf.Flush(); err != nil {
		f.file.Close()
		return err
	}
	if f.gz != nil {
		if err := f.gz.Close(); err != nil {
			f.file.Close()
			return err
		}
	}
	return f.file.Close()
}
