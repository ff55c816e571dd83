package command

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"github.com/urfave/cli/v2"
)

// PhaseView summarizes one benchmark phase.
type PhaseView struct {
	Phase    string  `json:"phase" yaml:"phase"`
	Ops      int     `json:"ops" yaml:"ops"`
	Failures int64   `json:"failures" yaml:"failures"`
	Total    string  `json:"total" yaml:"total"`
	OpsPerS  float64 `json:"ops_per_sec" yaml:"ops_per_sec"`
	P50      string  `json:"p50" yaml:"p50"`
	P95      string  `json:"p95" yaml:"p95"`
	P99      string  `json:"p99" yaml:"p99"`
}

// BenchView is the result of bench.
type BenchView struct {
	Mode        string      `json:"mode" yaml:"mode"`
	Algorithm   string      `json:"algorithm" yaml:"algorithm"`
	CookieBytes int         `json:"cookie_bytes" yaml:"cookie_bytes"`
	Phases      []PhaseView `json:"phases" yaml:"phases"`
}

// BenchCommand returns the bench command.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Measure encode and decode throughput with the configured engine",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "sessions",
				Usage: "Number of distinct sessions to encode up front",
				Value: 1000,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of concurrent workers",
				Value: 64,
			},
			&cli.IntFlag{
				Name:  "ops",
				Usage: "Operations per phase (encode + decode)",
				Value: 100000,
			},
			&cli.IntFlag{
				Name:  "values",
				Usage: "Values per session",
				Value: 4,
			},
			&cli.IntFlag{
				Name:  "value-size",
				Usage: "Bytes per value",
				Value: 16,
			},
		},
		Action: benchAction,
	}
}

func benchAction(c *cli.Context) error {
	sessions, concurrency, ops := c.Int("sessions"), c.Int("concurrency"), c.Int("ops")
	if sessions <= 0 || concurrency <= 0 || ops <= 0 {
		return cli.Exit("sessions, concurrency, and ops must be > 0", 2)
	}

	engine, _, err := BuildEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := c.Context
	states := make([]*session.Session, sessions)
	cookies := make([]string, sessions)
	for i := range states {
		states[i] = buildSession(engine, i, c.Int("values"), c.Int("value-size"))
		if cookies[i], err = engine.Encode(ctx, states[i]); err != nil {
			return fmt.Errorf("seed session %d: %w", i, err)
		}
	}

	report := engine.SecurityReport()
	view := BenchView{
		Mode:        report.Mode,
		Algorithm:   report.Algorithm,
		CookieBytes: len(cookies[0]),
	}

	encode := runPhase(ctx, ops, concurrency, func(ctx context.Context, r *rand.Rand) error {
		_, err := engine.Encode(ctx, states[r.Intn(len(states))])
		return err
	})
	view.Phases = append(view.Phases, encode.view("encode"))

	decode := runPhase(ctx, ops, concurrency, func(ctx context.Context, r *rand.Rand) error {
		_, err := engine.Decode(ctx, cookies[r.Intn(len(cookies))], engine.Now())
		return err
	})
	view.Phases = append(view.Phases, decode.view("decode"))

	return Print(c, view)
}

func runPhase(ctx context.Context, ops, concurrency int, op func(context.Context, *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				t0 := time.Now()
				if err := op(ctx, r); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func (s phaseStats) view(name string) PhaseView {
	return PhaseView{
		Phase:    name,
		Ops:      s.ops,
		Failures: s.failures,
		Total:    s.total.Round(time.Millisecond).String(),
		OpsPerS:  math.Round(s.opsPerS),
		P50:      s.p50.Round(time.Microsecond).String(),
		P95:      s.p95.Round(time.Microsecond).String(),
		P99:      s.p99.Round(time.Microsecond).String(),
	}
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func buildSession(engine *goSession.Engine, i, values, size int) *session.Session {
	s := engine.NewSession(engine.Now())
	for j := 0; j < values; j++ {
		v := make([]byte, size)
		for k := range v {
			v[k] = byte((i + j*17 + k*13 + 11) % 251)
		}
		s.InsertBytes(fmt.Sprintf("k%02d", j), v)
	}
	return s
}
