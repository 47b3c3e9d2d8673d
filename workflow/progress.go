package workflow

import (
	"context"
	"time"
)

// ProgressConfig shapes the cosmetic progress shown while the service compresses.
type ProgressConfig struct {
	Interval time.Duration
	Step     int
	// Cap is the highest simulated value; the real response supplies the jump to 100.
	Cap int
}

// DefaultProgressConfig ...
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		Interval: 500 * time.Millisecond,
		Step:     10,
		Cap:      90,
	}
}

func (c ProgressConfig) normalized() ProgressConfig {
	def := DefaultProgressConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Step <= 0 {
		c.Step = def.Step
	}
	if c.Cap <= 0 {
		c.Cap = def.Cap
	}
	if c.Cap > 99 {
		c.Cap = 99
	}
	return c
}

// simulatedProgress advances a percentage on a fixed interval until it is stopped
// or reaches the cap. It lives exactly as long as the request it decorates.
type simulatedProgress struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// startSimulatedProgress runs report on every tick. report receives the task's context and
// must drop the update if that context is already cancelled.
func startSimulatedProgress(config ProgressConfig, report func(ctx context.Context, percent int)) *simulatedProgress {
	config = config.normalized()
	ctx, cancel := context.WithCancel(context.Background())
	p := &simulatedProgress{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go p.run(config, report)

	return p
}

func (p *simulatedProgress) run(config ProgressConfig, report func(ctx context.Context, percent int)) {
	defer close(p.done)

	ticker := time.NewTicker(config.Interval)
	defer ticker.Stop()

	percent := 0
	for percent < config.Cap {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			percent += config.Step
			if percent > config.Cap {
				percent = config.Cap
			}
			report(p.ctx, percent)
		}
	}
}

// stop cancels the task without waiting, so it is safe to call while holding the lock report takes.
func (p *simulatedProgress) stop() {
	p.cancel()
}

// wait blocks until the ticking goroutine has exited.
func (p *simulatedProgress) wait() {
	<-p.done
}
