package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/souravmenon1999/usdt-scanner/internal/cache"
	"github.com/souravmenon1999/usdt-scanner/internal/scanner"
	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

// Fetcher is the pull-side producer capability.
type Fetcher interface {
	Fetch(ctx context.Context) (types.UpdateBatch, error)
	Ping(ctx context.Context) error
}

// Streamer is the push-side producer capability. Run blocks until stop is
// closed (nil return) or the connection fails (TransportError).
type Streamer interface {
	Run(stop <-chan struct{}, out chan<- types.UpdateBatch) error
}

// Options tune the controller. Zero values fall back to sane defaults.
type Options struct {
	CacheTTL       time.Duration  // pull freshness cache, default 60s
	RetryMax       int            // rate-limit retry attempts per Start, default 3
	RetryBaseDelay time.Duration  // backoff base, default 5s
	FetchTimeout   time.Duration  // bound on a single pull round-trip, default 10s
	DefaultPolicy  scanner.Policy // policy used when Candidates gets nil

	// Sleep is the backoff sleep hook, injectable for tests. Defaults to an
	// interruptible wait that also observes the session stop signal.
	Sleep func(d time.Duration)

	// OnIngest, when set, runs after every successful ingest with the
	// current candidate list under the default policy.
	OnIngest func(rows []types.CandidateRow)
}

// Status is the read-side view of the controller for presentation.
type Status struct {
	State         types.ControllerState
	FailureReason string
	SessionID     string
	Mode          types.Mode
	LastUpdateAt  time.Time
	UniverseSize  int
	CacheTTL      time.Duration
}

// Controller owns the producer lifetime and the public read API. Reads
// (Status, Candidates) never block on network I/O.
type Controller struct {
	store    *cache.Store
	fetcher  Fetcher
	streamer Streamer
	opts     Options

	mu            sync.Mutex
	state         types.ControllerState
	failureReason string
	mode          types.Mode
	sessionID     string
	stopCh        chan struct{}
	producerDone  chan struct{}
}

// New creates an idle controller over the given store and producers.
func New(store *cache.Store, fetcher Fetcher, streamer Streamer, opts Options) *Controller {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 60 * time.Second
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 5 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.DefaultPolicy == (scanner.Policy{}) {
		opts.DefaultPolicy = scanner.DefaultPolicy()
	}
	return &Controller{
		store: store, fetcher: fetcher, streamer: streamer, opts: opts,
		state: types.StateIdle,
	}
}

// Start spawns a producer session in the given mode. Calling Start while a
// session is live is a no-op; the informational message says why.
func (c *Controller) Start(mode types.Mode) (string, error) {
	c.mu.Lock()
	switch c.state {
	case types.StateStarting, types.StateRunning, types.StateStopping:
		state := c.state
		c.mu.Unlock()
		return "already " + state.String(), nil
	}
	c.state = types.StateStarting
	c.failureReason = ""
	c.mode = mode
	c.sessionID = uuid.NewString()
	c.stopCh = make(chan struct{})
	c.producerDone = make(chan struct{})
	sessionID := c.sessionID
	stop := c.stopCh
	done := c.producerDone
	c.mu.Unlock()

	log.Info().Str("session_id", sessionID).Stringer("mode", mode).Msg("Starting producer")
	switch mode {
	case types.ModePush:
		go c.runPush(sessionID, stop, done)
	default:
		go c.runPull(sessionID, stop, done)
	}
	return "starting " + mode.String() + " session " + sessionID, nil
}

// Stop signals the live producer and returns without waiting for it to
// exit. Idempotent; Stop on an idle or failed controller is a no-op.
func (c *Controller) Stop() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case types.StateStarting, types.StateRunning:
		c.state = types.StateStopping
		close(c.stopCh)
		log.Info().Str("session_id", c.sessionID).Msg("Stopping producer")
		return "stopping session " + c.sessionID, nil
	case types.StateStopping:
		return "already Stopping", nil
	default:
		return "not running", nil
	}
}

// Refresh re-fetches the universe in pull mode. When the store is younger
// than the cache TTL the request is served from the existing snapshot and
// no network call is made. Before any Start this is a no-op; the read path
// never initiates I/O on its own.
func (c *Controller) Refresh() (string, error) {
	c.mu.Lock()
	mode := c.mode
	started := c.sessionID != ""
	c.mu.Unlock()
	if !started {
		return "not started", nil
	}
	if mode != types.ModePull {
		return "refresh is pull-mode only", nil
	}

	if age := time.Since(c.store.UpdatedAt()); age < c.opts.CacheTTL && !c.store.UpdatedAt().IsZero() {
		log.Debug().Dur("age", age).Msg("Refresh served from cache")
		return "fresh (cache hit)", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.FetchTimeout)
	defer cancel()
	batch, err := c.fetcher.Fetch(ctx)
	if err != nil {
		c.fail(err)
		return "", err
	}
	c.ingest(batch)
	return "refreshed", nil
}

// Status returns the current lifecycle and store view. Never blocks.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{
		State:         c.state,
		FailureReason: c.failureReason,
		SessionID:     c.sessionID,
		Mode:          c.mode,
		CacheTTL:      c.opts.CacheTTL,
	}
	c.mu.Unlock()
	st.LastUpdateAt = c.store.UpdatedAt()
	st.UniverseSize = c.store.Size()
	return st
}

// Candidates scans the current snapshot. A nil policy means the configured
// default. Never blocks on network I/O.
func (c *Controller) Candidates(policy *scanner.Policy) []types.CandidateRow {
	pol := c.opts.DefaultPolicy
	if policy != nil {
		pol = *policy
	}
	view, _ := c.store.Snapshot()
	return scanner.Scan(view, pol)
}

// runPull is the pull-mode producer session: one fetch (with rate-limit
// backoff), then it idles until stopped. Re-fetching is operator-driven via
// Refresh.
func (c *Controller) runPull(sessionID string, stop <-chan struct{}, done chan struct{}) {
	defer close(done)

	batch, err := c.fetchWithBackoff(stop)
	if err != nil {
		c.settle(err)
		return
	}
	c.ingest(batch)
	c.setRunning(sessionID)

	<-stop
	c.settle(nil)
}

// runPush is the push-mode producer session: a streaming connection whose
// batches are ingested as they arrive. Handshake rate-limiting backs off
// like pull; any error after that surfaces as Failed.
func (c *Controller) runPush(sessionID string, stop <-chan struct{}, done chan struct{}) {
	defer close(done)

	out := make(chan types.UpdateBatch, 16)
	runErr := make(chan error, 1)
	go func() {
		var err error
		for attempt := 0; ; attempt++ {
			err = c.streamer.Run(stop, out)
			var terr *types.TransportError
			if err != nil && errors.As(err, &terr) && terr.RateLimited() && attempt < c.opts.RetryMax-1 {
				delay := c.opts.RetryBaseDelay * (1 << attempt)
				log.Warn().Str("session_id", sessionID).Dur("delay", delay).
					Msg("Stream handshake rate limited, backing off")
				if !c.sleep(delay, stop) {
					err = nil
					break
				}
				continue
			}
			break
		}
		close(out)
		runErr <- err
	}()

	first := true
	for batch := range out {
		c.ingest(batch)
		if first {
			c.setRunning(sessionID)
			first = false
		}
	}
	c.settle(<-runErr)
}

// fetchWithBackoff retries rate-limited fetches with exponential delays,
// capped at RetryMax attempts within this one session start.
func (c *Controller) fetchWithBackoff(stop <-chan struct{}) (types.UpdateBatch, error) {
	var lastErr error
	for attempt := 0; attempt < c.opts.RetryMax; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.FetchTimeout)
		batch, err := c.fetcher.Fetch(ctx)
		cancel()
		if err == nil {
			return batch, nil
		}
		lastErr = err
		var terr *types.TransportError
		if !errors.As(err, &terr) || !terr.RateLimited() || attempt == c.opts.RetryMax-1 {
			return types.UpdateBatch{}, err
		}
		delay := c.opts.RetryBaseDelay * (1 << attempt)
		log.Warn().Dur("delay", delay).Msg("Rate limited, backing off")
		if !c.sleep(delay, stop) {
			return types.UpdateBatch{}, lastErr
		}
	}
	return types.UpdateBatch{}, lastErr
}

// sleep waits for d or until stop closes. Returns false when interrupted.
func (c *Controller) sleep(d time.Duration, stop <-chan struct{}) bool {
	if c.opts.Sleep != nil {
		c.opts.Sleep(d)
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-stop:
		return false
	}
}

func (c *Controller) ingest(batch types.UpdateBatch) {
	c.store.Ingest(batch)
	if c.opts.OnIngest != nil {
		view, _ := c.store.Snapshot()
		c.opts.OnIngest(scanner.Scan(view, c.opts.DefaultPolicy))
	}
}

func (c *Controller) setRunning(sessionID string) {
	c.mu.Lock()
	if c.state == types.StateStarting {
		c.state = types.StateRunning
		log.Info().Str("session_id", sessionID).Int("universe", c.store.Size()).
			Msg("Producer running")
	}
	c.mu.Unlock()
}

// settle records the producer's exit: a clean exit lands in Idle, an error
// in Failed with the reason kept verbatim for status. An exit after a stop
// was requested lands in Idle either way. Store contents are never dropped.
func (c *Controller) settle(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil || c.state == types.StateStopping {
		if err != nil {
			log.Warn().Err(err).Str("session_id", c.sessionID).
				Msg("Producer error during stop")
		}
		c.state = types.StateIdle
		return
	}
	c.state = types.StateFailed
	c.failureReason = err.Error()
	log.Error().Err(err).Str("session_id", c.sessionID).Msg("Producer failed")
}

// fail transitions to Failed from a foreground path (pull refresh). A live
// producer session is stopped and reaped first, so Failed always means the
// producer has exited and a later Start cannot leak the old goroutine.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	var stop, done chan struct{}
	if c.state == types.StateStarting || c.state == types.StateRunning {
		stop = c.stopCh
		done = c.producerDone
		c.state = types.StateStopping
	}
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = types.StateFailed
	c.failureReason = err.Error()
	log.Error().Err(err).Msg("Producer failed")
}
