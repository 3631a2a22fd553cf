package sim

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"pt-trader/internal/bus"
)

type SymbolInfo struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Group       string `json:"group"`
	Digits      int    `json:"digits"`
}

type Quote struct {
	Symbol    string `json:"symbol"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Spread    string `json:"spread"`
	Timestamp int64  `json:"timestamp"`
}

type symbolProfile struct {
	symbol      string
	description string
	group       string
	bid         float64
	ask         float64
	digits      int
}

var symbolProfiles = []symbolProfile{
	{"EURUSD", "Euro vs US Dollar", "Forex", 1.16367, 1.16369, 5},
	{"GBPUSD", "Great Britain Pound vs US Dollar", "Forex", 1.33991, 1.34042, 5},
	{"USDJPY", "US Dollar vs Japanese Yen", "Forex", 149.501, 149.532, 3},
	{"USDCHF", "US Dollar vs Swiss Franc", "Forex", 0.89098, 0.89159, 5},
	{"AUDUSD", "Australian Dollar vs US Dollar", "Forex", 0.66683, 0.66916, 5},
	{"USDCAD", "US Dollar vs Canadian Dollar", "Forex", 1.36500, 1.36530, 5},
	{"NZDUSD", "New Zealand Dollar vs US Dollar", "Forex", 0.57269, 0.57359, 5},
	{"XAUUSD", "Gold vs US Dollar", "Metals", 1980.50, 1981.10, 2},
	{"XAGUSD", "Silver vs US Dollar", "Metals", 23.450, 23.480, 3},
	{"BTCUSD", "Bitcoin vs US Dollar", "Crypto", 34500.0, 34510.0, 1},
	{"ETHUSD", "Ethereum vs US Dollar", "Crypto", 1850.50, 1851.50, 2},
}

// Symbols returns the tradable symbol table for the quotes screen.
func Symbols() []SymbolInfo {
	out := make([]SymbolInfo, 0, len(symbolProfiles))
	for _, p := range symbolProfiles {
		out = append(out, SymbolInfo{
			Symbol:      p.symbol,
			Description: p.description,
			Group:       p.group,
			Digits:      p.digits,
		})
	}
	return out
}

type quoteState struct {
	profile symbolProfile
	walker  walker
	spread  float64
}

// StartQuotePublisher walks every symbol's mid price and publishes a quote
// event per symbol each interval until the context is cancelled. Walk
// constants are scaled by the symbol's price level so gold and yen pairs move
// proportionally to the majors.
func StartQuotePublisher(ctx context.Context, b *bus.Bus, interval time.Duration) {
	states := make([]*quoteState, 0, len(symbolProfiles))
	for _, p := range symbolProfiles {
		mid := (p.bid + p.ask) / 2
		states = append(states, &quoteState{
			profile: p,
			walker:  walker{price: mid},
			spread:  p.ask - p.bid,
		})
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now().UnixMilli()
				for _, st := range states {
					mid := st.walker.price
					cfg := Config{
						Accel:       mid * 0.00002,
						Damping:     0.95,
						MaxVelocity: mid * 0.0001,
					}
					mid = st.walker.step(rng, cfg)
					bid := mid - st.spread/2
					ask := mid + st.spread/2
					b.Publish(bus.Event{Type: bus.EventQuote, Data: Quote{
						Symbol:    st.profile.symbol,
						Bid:       formatPrice(bid, st.profile.digits),
						Ask:       formatPrice(ask, st.profile.digits),
						Spread:    formatPrice(st.spread, st.profile.digits),
						Timestamp: now,
					}})
				}
			}
		}
	}()
}

func formatPrice(v float64, digits int) string {
	return strconv.FormatFloat(v, 'f', digits, 64)
}
