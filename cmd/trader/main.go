package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"github.com/vincentmele/flumine/internal/client"
	"github.com/vincentmele/flumine/internal/clock"
	"github.com/vincentmele/flumine/internal/config"
	"github.com/vincentmele/flumine/internal/engine"
	"github.com/vincentmele/flumine/internal/event"
	"github.com/vincentmele/flumine/internal/recorder"
	"github.com/vincentmele/flumine/internal/resources"
	"github.com/vincentmele/flumine/internal/sink"
	"github.com/vincentmele/flumine/pkg/conn"
)

const maxFeedLine = 4 << 20

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	feedPath := flag.String("feed", "-", "Market book JSON-lines feed ('-' = stdin)")
	recordDir := flag.String("record-dir", "", "Record delivered books as JSON lines (empty=disable)")
	recordGzip := flag.Bool("record-gzip", false, "Gzip recordings")
	pgConn := flag.String("pg", "", "PostgreSQL connection string for the settlement sink (empty=disable)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disable)")
	flag.Parse()

	cfg := config.New()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
		cfg = loaded
	}

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "flumine/trader",
			ServerAddress:   *pyroscopeAddr,
			Tags: map[string]string{
				"instance": cfg.Hostname,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	e := engine.New(cfg, clock.Real{})

	// Order flow stays simulated until an exchange transport is plugged in
	// here; market and order bookkeeping run exactly as they would live.
	c := client.NewPaper(nil)
	e.AddClient(c)

	e.AddWorker(engine.KeepAliveWorker(c, time.Hour))
	e.AddWorker(engine.PollAccountBalanceWorker(e, c, 5*time.Minute))
	e.AddWorker(engine.PollCurrentOrdersWorker(e, c, 30*time.Second))
	e.AddWorker(engine.PollMarketCatalogueWorker(e, c, time.Minute))
	e.AddWorker(engine.PollMarketClosureWorker(e, c, 30*time.Second))
	e.AddWorker(engine.SweepMarketsWorker(e, time.Minute))

	if *recordDir != "" {
		rec, err := recorder.New(recorder.Config{Dir: *recordDir, Gzip: *recordGzip})
		if err != nil {
			log.Fatalf("recorder init failed: %v", err)
		}
		if err := e.AddStrategy(rec); err != nil {
			log.Fatalf("add recorder failed: %v", err)
		}
	}

	if *pgConn != "" {
		pg, err := conn.New(conn.Option{ConnString: *pgConn})
		if err != nil {
			log.Fatalf("postgres connect failed: %v", err)
		}
		defer pg.Close()
		store, err := sink.NewPostgresStore(pg.DB())
		if err != nil {
			log.Fatalf("settlement store init failed: %v", err)
		}
		runner := sink.NewRunner("postgres", store, 256)
		defer runner.Shutdown()
		e.AddLogControl(runner)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-sys.Shutdown()
		e.Terminate()
	}()
	go streamFeed(ctx, e.Queue(), *feedPath)

	if err := e.Run(ctx); err != nil {
		log.Fatalf("engine stopped: %v", err)
	}
}

// streamFeed publishes market books from a JSON-lines source until the
// source drains or the engine stops.
func streamFeed(ctx context.Context, queue *event.Queue, path string) {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("open feed %s failed: %v", path, err)
		}
		defer f.Close()
		in = f
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64<<10), maxFeedLine)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		// decode into fresh memory, the scanner reuses its buffer
		book := new(resources.MarketBook)
		if err := json.Unmarshal(line, book); err != nil {
			logs.Warnf("feed: dropping undecodable book: %v", err)
			continue
		}
		if err := queue.Publish(ctx, event.MarketBookEvent(book)); err != nil {
			return
		}
	}
	if err := sc.Err(); err != nil {
		logs.Errorf("feed read failed: %v", err)
		return
	}
	logs.Info("feed drained")
}
