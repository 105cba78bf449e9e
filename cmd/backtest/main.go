package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/vincentmele/flumine/internal/backtest"
	"github.com/vincentmele/flumine/internal/client"
	"github.com/vincentmele/flumine/internal/clock"
	"github.com/vincentmele/flumine/internal/config"
	"github.com/vincentmele/flumine/internal/engine"
	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
	"github.com/vincentmele/flumine/internal/strategy"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	maxPrice := flag.Float64("max-price", 3.0, "Highest back price the demo strategy accepts")
	stake := flag.Float64("stake", 2.0, "Stake per bet")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		log.Fatalf("usage: backtest [flags] recording.jsonl[.gz]...")
	}

	cfg := config.New()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
		cfg = loaded
	}
	cfg.SetSimulated(true)

	clk := clock.NewSimulated(time.Now())
	e := engine.New(cfg, clk)
	e.AddClient(client.NewBacktest())

	st := &backFavourite{
		Base:     strategy.Base{StrategyName: "back_favourite"},
		maxPrice: *maxPrice,
		stake:    *stake,
	}
	if err := e.AddStrategy(st); err != nil {
		log.Fatalf("add strategy failed: %v", err)
	}

	runner := backtest.NewRunner(e, clk, paths...)
	if err := runner.Run(context.Background()); err != nil {
		log.Fatalf("replay failed: %v", err)
	}

	var bets int
	var profit float64
	for _, m := range e.Markets().All() {
		var marketProfit float64
		var marketBets int
		for _, o := range m.Blotter.Orders() {
			if o.Cleared == nil {
				continue
			}
			marketBets++
			marketProfit += o.Cleared.Profit
		}
		if marketBets > 0 {
			log.Printf("market %s: %d bets, %.2f profit", m.MarketID, marketBets, marketProfit)
		}
		bets += marketBets
		profit += marketProfit
	}
	log.Printf("replay complete: %d markets, %d bets, %.2f profit", e.Markets().Len(), bets, profit)
}

// backFavourite backs the shortest-priced active runner in each market once,
// as long as the best back price sits inside its acceptable band.
type backFavourite struct {
	strategy.Base
	maxPrice float64
	stake    float64
}

func (s *backFavourite) CheckMarketBook(_ *market.Market, book *resources.MarketBook) bool {
	return book.Status == resources.MarketStatusOpen
}

func (s *backFavourite) ProcessMarketBook(m *market.Market, book *resources.MarketBook) {
	favourite, price, ok := shortestPrice(book)
	if !ok || price > s.maxPrice {
		return
	}
	rc := s.RunnerContext(m.MarketID, favourite.SelectionID, favourite.Handicap)
	if rc.Invested || rc.Executable() {
		return
	}
	trade := order.NewTrade(m.MarketID, favourite.SelectionID, favourite.Handicap, s, book.PublishTime)
	o := trade.CreateOrder(order.Back, order.Limit{
		Price:           price,
		Size:            s.stake,
		PersistenceType: "LAPSE",
	}, book.PublishTime)
	if err := m.PlaceOrder(o); err != nil {
		log.Printf("place on %s/%d failed: %v", m.MarketID, favourite.SelectionID, err)
	}
}

func shortestPrice(book *resources.MarketBook) (resources.RunnerBook, float64, bool) {
	var best resources.RunnerBook
	var bestPrice float64
	for _, r := range book.Runners {
		if r.Status != "ACTIVE" {
			continue
		}
		top, ok := r.EX.BestAvailableToBack()
		if !ok || top.Price <= 1 {
			continue
		}
		if bestPrice == 0 || top.Price < bestPrice {
			best, bestPrice = r, top.Price
		}
	}
	return best, bestPrice, bestPrice > 0
}
