package simulator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultSpacing  = 500 * time.Millisecond
)

type Options struct {
	// Interval is the target duration of one cycle over the whole fleet.
	Interval time.Duration
	// Spacing separates two submissions within a cycle. Zero sends them back to back.
	Spacing time.Duration
	// Cycles stops the run after that many cycles. Zero runs until ctx is cancelled.
	Cycles int
	Seed   uint64
}

type Stats struct {
	Iterations int
	Successes  int
	Failures   int
}

// SuccessRate is the percentage of successful submissions, 0 when none were attempted.
func (s Stats) SuccessRate() float64 {
	total := s.Successes + s.Failures
	if total == 0 {
		return 0
	}
	return float64(s.Successes) * 100 / float64(total)
}

// Runner submits one position per courier per cycle.
type Runner struct {
	client    *Client
	fleet     Fleet
	opts      Options
	walker    *Walker
	pace      *rate.Limiter
	log       zerolog.Logger
	positions map[string]Point
	stats     Stats
}

func NewRunner(client *Client, fleet Fleet, opts Options, log zerolog.Logger) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	fleet.Couriers = append([]CourierSpec(nil), fleet.Couriers...)
	limit := rate.Inf
	if opts.Spacing > 0 {
		limit = rate.Every(opts.Spacing)
	}

	r := &Runner{
		client:    client,
		fleet:     fleet,
		opts:      opts,
		walker:    NewWalker(opts.Seed),
		pace:      rate.NewLimiter(limit, 1),
		log:       log,
		positions: make(map[string]Point, len(fleet.Couriers)),
	}
	for i, c := range fleet.Couriers {
		z, _ := fleet.Zone(c.Zone)
		r.positions[c.ID] = r.walker.Start(z)
		if c.Phone == "" {
			r.fleet.Couriers[i].Phone = r.walker.Phone()
		}
	}
	return r
}

func (r *Runner) Stats() Stats {
	return r.stats
}

// Run registers the fleet, then loops until ctx is cancelled or the
// configured number of cycles is done. Cancellation is not an error.
func (r *Runner) Run(ctx context.Context) error {
	r.ensureCouriers(ctx)

	r.log.Info().
		Dur("interval", r.opts.Interval).
		Int("couriers", len(r.fleet.Couriers)).
		Msg("simulation started")
	defer func() { r.logStats("simulation finished") }()

	for cycle := 1; r.opts.Cycles == 0 || cycle <= r.opts.Cycles; cycle++ {
		start := time.Now()
		r.stats.Iterations++
		r.log.Debug().Int("cycle", cycle).Msg("update cycle")

		for _, c := range r.fleet.Couriers {
			if err := r.pace.Wait(ctx); err != nil {
				return nil
			}
			r.move(ctx, c)
		}
		r.logStats("cycle done")

		if r.opts.Cycles != 0 && cycle == r.opts.Cycles {
			break
		}

		wait := r.opts.Interval - time.Since(start)
		if wait <= 0 {
			continue
		}
		r.log.Debug().Dur("wait", wait).Msg("waiting for next cycle")
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
	return nil
}

func (r *Runner) ensureCouriers(ctx context.Context) {
	for _, c := range r.fleet.Couriers {
		created, err := r.client.EnsureCourier(ctx, c)
		if err != nil {
			r.log.Warn().Err(err).Str("livreur_id", c.ID).Msg("courier registration failed")
			continue
		}
		r.log.Info().Str("livreur_id", c.ID).Bool("created", created).Msg("courier ready")
	}
}

func (r *Runner) move(ctx context.Context, c CourierSpec) {
	z, _ := r.fleet.Zone(c.Zone)
	prev := r.positions[c.ID]
	next := r.walker.Step(prev, z)
	r.positions[c.ID] = next

	if err := r.client.SubmitPosition(ctx, c.ID, next); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.stats.Failures++
		r.log.Warn().Err(err).Str("livreur_id", c.ID).Msg("position rejected")
		return
	}

	r.stats.Successes++
	r.log.Info().
		Str("livreur_id", c.ID).
		Str("nom", c.Name).
		Str("zone", c.Zone).
		Float64("latitude", next.Lat).
		Float64("longitude", next.Lng).
		Str("direction", Direction(prev, next)).
		Float64("distance_m", Haversine(prev, next)).
		Msg("position sent")
}

func (r *Runner) logStats(msg string) {
	r.log.Info().
		Int("iterations", r.stats.Iterations).
		Int("successes", r.stats.Successes).
		Int("failures", r.stats.Failures).
		Float64("success_rate", r.stats.SuccessRate()).
		Msg(msg)
}
