// Package sim produces the synthetic "current price" stream for open trades.
// A free trade follows a damped random walk; a trade carrying a target profit
// is pinned to the back-solved target price plus visual jitter.
package sim

import (
	"math/rand"
	"sync"
	"time"

	"pt-trader/internal/model"
	"pt-trader/internal/pnl"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Accel is the half-width of the uniform acceleration draw per tick.
	Accel float64
	// Damping < 1 keeps velocity bounded regardless of tick count.
	Damping     float64
	MaxVelocity float64
	// Jitter is the full width of the uniform noise added to the target
	// price in overridden mode.
	Jitter         float64
	PricePrecision int32
	ContractSize   decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		Accel:          0.00003,
		Damping:        0.95,
		MaxVelocity:    0.0002,
		Jitter:         0.0001,
		PricePrecision: 5,
		ContractSize:   pnl.DefaultContractSize,
	}
}

type walker struct {
	price    float64
	velocity float64
}

func (w *walker) step(rng *rand.Rand, cfg Config) float64 {
	accel := (rng.Float64()*2 - 1) * cfg.Accel
	v := w.velocity*cfg.Damping + accel
	if v > cfg.MaxVelocity {
		v = cfg.MaxVelocity
	}
	if v < -cfg.MaxVelocity {
		v = -cfg.MaxVelocity
	}
	w.velocity = v
	w.price += v
	return w.price
}

type Simulator struct {
	cfg Config

	mu      sync.Mutex
	rng     *rand.Rand
	walkers map[string]*walker
}

func New(cfg Config) *Simulator {
	if cfg.ContractSize.IsZero() {
		cfg.ContractSize = pnl.DefaultContractSize
	}
	return &Simulator{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		walkers: make(map[string]*walker),
	}
}

// CurrentPrice advances the trade's walker one tick and returns the price.
// For an overridden trade the walk is bypassed entirely: the price is
// recomputed from the target profit each tick, so stale walk state can never
// leak into the displayed value.
func (s *Simulator) CurrentPrice(tr model.Trade) (decimal.Decimal, error) {
	if tr.Volume.Sign() <= 0 {
		return decimal.Decimal{}, pnl.ErrInvalidVolume
	}
	if tr.TargetProfit != nil {
		target, err := pnl.ClosePriceFor(tr.EntryPrice, *tr.TargetProfit, tr.Side, tr.Volume, s.cfg.ContractSize)
		if err != nil {
			return decimal.Decimal{}, err
		}
		s.mu.Lock()
		delete(s.walkers, tr.ID)
		jitter := (s.rng.Float64() - 0.5) * s.cfg.Jitter
		s.mu.Unlock()
		return target.Add(decimal.NewFromFloat(jitter)).Round(s.cfg.PricePrecision), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.walkers[tr.ID]
	if !ok {
		entry, _ := tr.EntryPrice.Float64()
		w = &walker{price: entry}
		s.walkers[tr.ID] = w
	}
	price := w.step(s.rng, s.cfg)
	return decimal.NewFromFloat(price).Round(s.cfg.PricePrecision), nil
}

// Forget drops walker state for a trade that left the open set.
func (s *Simulator) Forget(id string) {
	s.mu.Lock()
	delete(s.walkers, id)
	s.mu.Unlock()
}
