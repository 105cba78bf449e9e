// Package resources holds the exchange data shapes crossing the framework
// boundary: market book snapshots, order snapshots and settlement results.
// They are plain decoded payloads; all mutation happens on framework types.
package resources

import "time"

// Market book statuses reported by the exchange.
const (
	MarketStatusOpen      = "OPEN"
	MarketStatusSuspended = "SUSPENDED"
	MarketStatusClosed    = "CLOSED"
)

// Current order statuses reported by the exchange.
const (
	OrderStatusExecutable        = "EXECUTABLE"
	OrderStatusExecutionComplete = "EXECUTION_COMPLETE"
)

// PriceSize is one rung of a price ladder.
type PriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// ExchangePrices is the available/traded volume for a runner.
type ExchangePrices struct {
	AvailableToBack []PriceSize `json:"availableToBack"`
	AvailableToLay  []PriceSize `json:"availableToLay"`
	TradedVolume    []PriceSize `json:"tradedVolume"`
}

// BestAvailableToBack returns the top of the back ladder.
func (p ExchangePrices) BestAvailableToBack() (PriceSize, bool) {
	if len(p.AvailableToBack) == 0 {
		return PriceSize{}, false
	}
	return p.AvailableToBack[0], true
}

// BestAvailableToLay returns the top of the lay ladder.
func (p ExchangePrices) BestAvailableToLay() (PriceSize, bool) {
	if len(p.AvailableToLay) == 0 {
		return PriceSize{}, false
	}
	return p.AvailableToLay[0], true
}

// StartingPrices carries the runner's SP projection and reconciliation.
type StartingPrices struct {
	NearPrice float64 `json:"nearPrice"`
	FarPrice  float64 `json:"farPrice"`
	ActualSP  float64 `json:"actualSP"`
}

// RunnerBook is one selection within a market book.
type RunnerBook struct {
	SelectionID     int64          `json:"selectionId"`
	Handicap        float64        `json:"handicap"`
	Status          string         `json:"status"`
	LastPriceTraded float64        `json:"lastPriceTraded"`
	TotalMatched    float64        `json:"totalMatched"`
	EX              ExchangePrices `json:"ex"`
	SP              StartingPrices `json:"sp"`
}

// MarketDefinition is the slow-moving market metadata on a book.
type MarketDefinition struct {
	EventID         string `json:"eventId"`
	EventTypeID     string `json:"eventTypeId"`
	MarketType      string `json:"marketType"`
	CountryCode     string `json:"countryCode"`
	NumberOfWinners int    `json:"numberOfWinners"`
	BSPMarket       bool   `json:"bspMarket"`
	TurnInPlay      bool   `json:"turnInPlayEnabled"`
}

// MarketBook is one market snapshot.
type MarketBook struct {
	MarketID          string            `json:"marketId"`
	Status            string            `json:"status"`
	BetDelay          int               `json:"betDelay"`
	InPlay            bool              `json:"inplay"`
	TotalMatched      float64           `json:"totalMatched"`
	NumberOfWinners   int               `json:"numberOfWinners"`
	Runners           []RunnerBook      `json:"runners"`
	MarketDefinition  *MarketDefinition `json:"marketDefinition,omitempty"`
	PublishTime       time.Time         `json:"publishTime"`
	StreamingUniqueID int               `json:"streamingUniqueId"`
	// StreamingSnap marks an initial cache image rather than a stream delta;
	// latency checks only apply to deltas.
	StreamingSnap bool `json:"streamingSnap"`
}

// Runner finds a selection by id and handicap.
func (b *MarketBook) Runner(selectionID int64, handicap float64) (*RunnerBook, bool) {
	for i := range b.Runners {
		r := &b.Runners[i]
		if r.SelectionID == selectionID && r.Handicap == handicap {
			return r, true
		}
	}
	return nil, false
}

// RunnerCatalogue is the static description of a selection.
type RunnerCatalogue struct {
	SelectionID  int64             `json:"selectionId"`
	RunnerName   string            `json:"runnerName"`
	Handicap     float64           `json:"handicap"`
	SortPriority int               `json:"sortPriority"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// MarketCatalogue is the static market metadata polled from the exchange.
type MarketCatalogue struct {
	MarketID        string            `json:"marketId"`
	MarketName      string            `json:"marketName"`
	EventName       string            `json:"eventName"`
	EventTypeName   string            `json:"eventTypeName"`
	CompetitionName string            `json:"competitionName"`
	MarketStartTime time.Time         `json:"marketStartTime"`
	Runners         []RunnerCatalogue `json:"runners"`
}

// CurrentOrder is the exchange's view of one order.
type CurrentOrder struct {
	BetID               string    `json:"betId"`
	MarketID            string    `json:"marketId"`
	SelectionID         int64     `json:"selectionId"`
	Handicap            float64   `json:"handicap"`
	Side                string    `json:"side"`
	Status              string    `json:"status"`
	PersistenceType     string    `json:"persistenceType"`
	OrderType           string    `json:"orderType"`
	PlacedDate          time.Time `json:"placedDate"`
	PriceSize           PriceSize `json:"priceSize"`
	BSPLiability        float64   `json:"bspLiability"`
	AveragePriceMatched float64   `json:"averagePriceMatched"`
	SizeMatched         float64   `json:"sizeMatched"`
	SizeRemaining       float64   `json:"sizeRemaining"`
	SizeLapsed          float64   `json:"sizeLapsed"`
	SizeCancelled       float64   `json:"sizeCancelled"`
	SizeVoided          float64   `json:"sizeVoided"`
	CustomerOrderRef    string    `json:"customerOrderRef"`
	CustomerStrategyRef string    `json:"customerStrategyRef"`
}

// CurrentOrders is a page of current orders.
type CurrentOrders struct {
	Orders        []CurrentOrder `json:"currentOrders"`
	MoreAvailable bool           `json:"moreAvailable"`
}

// ClearedOrder is one settled order.
type ClearedOrder struct {
	BetID               string    `json:"betId"`
	MarketID            string    `json:"marketId"`
	SelectionID         int64     `json:"selectionId"`
	Handicap            float64   `json:"handicap"`
	Side                string    `json:"side"`
	BetOutcome          string    `json:"betOutcome"`
	PriceMatched        float64   `json:"priceMatched"`
	SizeSettled         float64   `json:"sizeSettled"`
	Profit              float64   `json:"profit"`
	Commission          float64   `json:"commission"`
	SettledDate         time.Time `json:"settledDate"`
	CustomerOrderRef    string    `json:"customerOrderRef"`
	CustomerStrategyRef string    `json:"customerStrategyRef"`
}

// ClearedOrders is the settlement result set for one market.
type ClearedOrders struct {
	MarketID      string         `json:"marketId"`
	Orders        []ClearedOrder `json:"clearedOrders"`
	MoreAvailable bool           `json:"moreAvailable"`
}

// ClearedMarket is the market-level settlement summary.
type ClearedMarket struct {
	MarketID   string  `json:"marketId"`
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	BetCount   int     `json:"betCount"`
}

// ClearedMarkets is a set of market-level settlement summaries.
type ClearedMarkets struct {
	Markets []ClearedMarket `json:"clearedMarkets"`
}

// AccountDetails is the static account information.
type AccountDetails struct {
	CurrencyCode   string  `json:"currencyCode"`
	DiscountRate   float64 `json:"discountRate"`
	PointsBalance  int     `json:"pointsBalance"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	LocaleCode     string  `json:"localeCode"`
	Region         string  `json:"region"`
	TimezoneOffset float64 `json:"timezone"`
}

// AccountFunds is the account balance snapshot.
type AccountFunds struct {
	AvailableToBetBalance float64 `json:"availableToBetBalance"`
	Exposure              float64 `json:"exposure"`
	RetainedCommission    float64 `json:"retainedCommission"`
	ExposureLimit         float64 `json:"exposureLimit"`
}

// RawData is an undecoded feed payload forwarded to subscribed strategies.
type RawData struct {
	StreamID    int
	PublishTime time.Time
	Data        []map[string]any
}
