// Package translator implements the translate-as-you-type orchestrator: debounced
// input, override lookup, streaming provider sessions and the per-session history.
package translator

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"borneo/internal/config"
	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/serviceinterfaces"
	"borneo/internal/store"
	contextutils "borneo/internal/utils"

	"github.com/raulk/clock"
	"go.opentelemetry.io/otel/attribute"
)

// Config tunes an orchestrator
type Config struct {
	Debounce      time.Duration
	HistoryLimit  int
	MaxTextLength int
	StreamBuffer  int
}

// ConfigFrom converts the translation section of the application config
func ConfigFrom(cfg config.TranslationConfig) Config {
	return Config{
		Debounce:      cfg.Debounce,
		HistoryLimit:  cfg.HistoryLimit,
		MaxTextLength: cfg.MaxTextLength,
		StreamBuffer:  cfg.StreamBuffer,
	}
}

type options struct {
	clock   clock.Clock
	metrics *observability.TranslatorMetrics
}

// Option customizes orchestrators and session managers
type Option func(*options)

// WithClock replaces the wall clock, tests pass clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics records session outcomes
func WithMetrics(m *observability.TranslatorMetrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Orchestrator owns the translation state of one user session. Every exported
// method is safe for concurrent use.
//
// A provider session is started when the debounce timer fires. Each session gets a
// generation number and its own context. Starting a new session, changing the
// input, swapping or closing bumps the generation and cancels the previous
// context, and every callback of a session checks its generation before touching
// the state. A superseded session therefore never changes the output or the history.
type Orchestrator struct {
	id        string
	cfg       Config
	clock     clock.Clock
	provider  serviceinterfaces.TranslationProvider
	overrides store.OverrideStore
	history   *History
	metrics   *observability.TranslatorMetrics
	logger    *observability.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu           sync.Mutex
	state        models.TranslationState
	timer        *clock.Timer
	pendingToken uint64
	generation   uint64
	cancel       context.CancelFunc
	subscribers  map[chan models.TranslationState]struct{}
	lastActive   time.Time
	closed       bool
}

// New creates an orchestrator for session id starting at Indonesian -> Bakumpai
func New(id string, provider serviceinterfaces.TranslationProvider, overrides store.OverrideStore, history *History, cfg Config, logger *observability.Logger, opts ...Option) *Orchestrator {
	o := buildOptions(opts)
	if cfg.StreamBuffer <= 0 {
		cfg.StreamBuffer = config.DefaultStreamBuffer
	}
	baseCtx, baseCancel := context.WithCancel(contextutils.WithSessionID(context.Background(), id))
	return &Orchestrator{
		id:          id,
		cfg:         cfg,
		clock:       o.clock,
		provider:    provider,
		overrides:   overrides,
		history:     history,
		metrics:     o.metrics,
		logger:      logger,
		baseCtx:     baseCtx,
		baseCancel:  baseCancel,
		state:       models.TranslationState{From: models.Indonesian, To: models.Bakumpai, Status: models.StatusIdle},
		subscribers: make(map[chan models.TranslationState]struct{}),
		lastActive:  o.clock.Now(),
	}
}

// ID returns the session id
func (o *Orchestrator) ID() string {
	return o.id
}

// State returns a snapshot of the current state
func (o *Orchestrator) State() models.TranslationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastActive returns the time of the last call that changed or read the session
func (o *Orchestrator) LastActive() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastActive
}

// Subscribed reports whether anyone is listening for state changes
func (o *Orchestrator) Subscribed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subscribers) > 0
}

func (o *Orchestrator) touchLocked() {
	o.lastActive = o.clock.Now()
}

func (o *Orchestrator) checkOpenLocked() error {
	if o.closed {
		return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "translation session %s is closed", o.id)
	}
	return nil
}

// Submit records new input and restarts the debounce timer. Empty from or to keep
// the current language. When from and to collide the target is moved to another
// language. Blank input clears the output immediately without any lookup.
// Submitting the current input and languages again is a no-op unless the last
// session failed, in which case it is retried through the debounce.
func (o *Orchestrator) Submit(text string, from, to models.Language) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkOpenLocked(); err != nil {
		return err
	}
	o.touchLocked()

	if from == "" {
		from = o.state.From
	}
	if to == "" {
		to = o.state.To
	}
	if !from.Valid() || !to.Valid() {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported language pair %s-%s", from, to)
	}
	if o.cfg.MaxTextLength > 0 && utf8.RuneCountInString(text) > o.cfg.MaxTextLength {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "Text cannot exceed %d characters", o.cfg.MaxTextLength)
	}
	from, to = models.ResolvePair(from, to, true)

	if text == o.state.Input && from == o.state.From && to == o.state.To && o.state.Status != models.StatusError {
		return nil
	}
	o.state.Input, o.state.From, o.state.To = text, from, to
	o.inputChangedLocked()
	return nil
}

// SetLanguages changes the pair, moving the target when it equals the source
func (o *Orchestrator) SetLanguages(from, to models.Language) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkOpenLocked(); err != nil {
		return err
	}
	o.touchLocked()

	if !from.Valid() || !to.Valid() {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported language pair %s-%s", from, to)
	}
	from, to = models.ResolvePair(from, to, true)
	if from == o.state.From && to == o.state.To {
		return nil
	}
	o.state.From, o.state.To = from, to
	o.inputChangedLocked()
	return nil
}

// Swap exchanges the languages and the input and output texts. The new input is
// translated through the normal debounce path.
func (o *Orchestrator) Swap() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkOpenLocked(); err != nil {
		return err
	}
	o.touchLocked()

	o.state.From, o.state.To = o.state.To, o.state.From
	o.state.Input, o.state.Output = o.state.Output, o.state.Input
	o.inputChangedLocked()
	return nil
}

// Retry starts a session for the current input right away
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkOpenLocked(); err != nil {
		return err
	}
	o.touchLocked()

	if strings.TrimSpace(o.state.Input) == "" {
		return nil
	}
	o.stopTimerLocked()
	o.startLocked()
	return nil
}

// Flush fires a pending debounce timer immediately. It returns false when nothing
// was pending.
func (o *Orchestrator) Flush() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.timer == nil {
		return false
	}
	o.stopTimerLocked()
	o.startLocked()
	return true
}

// Restore loads a history entry into the session without contacting the provider
func (o *Orchestrator) Restore(ctx context.Context, id string) (models.TranslationState, error) {
	item, ok := o.history.Find(ctx, id)
	if !ok {
		return models.TranslationState{}, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "history item %s not found", id)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkOpenLocked(); err != nil {
		return models.TranslationState{}, err
	}
	o.touchLocked()

	o.stopTimerLocked()
	o.supersedeLocked(ctx)
	o.state.From, o.state.To = item.From, item.To
	o.state.Input, o.state.Output = item.InputText, item.OutputText
	o.state.Status = models.StatusDone
	o.state.Error = ""
	o.state.FromCache = false
	o.broadcastLocked()
	return o.state, nil
}

// History returns the session's history, most recent first
func (o *Orchestrator) History(ctx context.Context) []models.TranslationHistoryItem {
	o.mu.Lock()
	o.touchLocked()
	o.mu.Unlock()
	return o.history.Items(ctx)
}

// ClearHistory empties the session's history
func (o *Orchestrator) ClearHistory(ctx context.Context) {
	o.mu.Lock()
	o.touchLocked()
	o.mu.Unlock()
	o.history.Clear(ctx)
}

// Subscribe returns a channel carrying the latest state. Slow readers only see the
// most recent snapshot. The channel is closed by the returned cancel func or by Close.
func (o *Orchestrator) Subscribe() (<-chan models.TranslationState, func()) {
	ch := make(chan models.TranslationState, 1)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		close(ch)
		return ch, func() {}
	}
	o.touchLocked()
	o.subscribers[ch] = struct{}{}
	ch <- o.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if _, ok := o.subscribers[ch]; ok {
				delete(o.subscribers, ch)
				close(ch)
			}
		})
	}
}

// Close cancels any live session and timer, closes the subscriber channels and
// waits for session goroutines to return
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.stopTimerLocked()
	o.generation++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.baseCancel()
	for ch := range o.subscribers {
		delete(o.subscribers, ch)
		close(ch)
	}
	o.mu.Unlock()

	o.wg.Wait()
}

// inputChangedLocked reacts to a change of input or languages: the live session
// is superseded, blank input clears the output and anything else is debounced.
func (o *Orchestrator) inputChangedLocked() {
	o.stopTimerLocked()
	o.supersedeLocked(o.baseCtx)
	o.state.Error = ""
	o.state.FromCache = false

	if strings.TrimSpace(o.state.Input) == "" {
		o.state.Output = ""
		o.state.Status = models.StatusIdle
		o.broadcastLocked()
		return
	}

	o.pendingToken++
	token := o.pendingToken
	o.timer = o.clock.AfterFunc(o.cfg.Debounce, func() { o.fire(token) })
	o.state.Status = models.StatusPending
	o.broadcastLocked()
}

func (o *Orchestrator) fire(token uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || token != o.pendingToken || o.timer == nil {
		return
	}
	o.timer = nil
	o.startLocked()
}

func (o *Orchestrator) stopTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.pendingToken++
}

// supersedeLocked invalidates the live session, if any
func (o *Orchestrator) supersedeLocked(ctx context.Context) {
	if o.cancel == nil {
		return
	}
	o.generation++
	o.cancel()
	o.cancel = nil
	o.metrics.Superseded(ctx)
	o.logger.Debug(ctx, "Translation session superseded", map[string]interface{}{
		"session_id": o.id,
		"generation": o.generation,
	})
}

// startLocked begins a session for the current input and languages
func (o *Orchestrator) startLocked() {
	o.supersedeLocked(o.baseCtx)

	o.generation++
	gen := o.generation
	ctx, cancel := context.WithCancel(o.baseCtx)
	o.cancel = cancel

	req := models.TranslationRequest{Text: o.state.Input, From: o.state.From, To: o.state.To}
	o.state.Output = ""
	o.state.Error = ""
	o.state.FromCache = false
	o.state.Status = models.StatusStreaming
	o.broadcastLocked()

	o.wg.Add(1)
	go o.run(ctx, cancel, gen, req)
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, gen uint64, req models.TranslationRequest) {
	defer o.wg.Done()
	defer cancel()

	attrs := append(observability.AttributeLanguagePair(string(req.From), string(req.To)),
		observability.AttributeTextLength(len(req.Text)),
		observability.AttributeSessionID(o.id),
		observability.AttributeGeneration(gen))
	ctx, span := observability.TraceTranslatorFunction(ctx, "session", attrs...)
	defer span.End()

	o.metrics.Started(ctx, string(req.From), string(req.To))

	translation, found, err := o.overrides.Get(ctx, req.From, req.To, models.Normalize(req.Text))
	if err != nil {
		o.logger.Warn(ctx, "Override lookup failed, using provider", map[string]interface{}{
			"session_id": o.id,
			"error":      err.Error(),
		})
		found = false
	}
	if found {
		span.SetAttributes(attribute.Bool("translation.override", true))
		o.complete(ctx, gen, req, translation, true)
		return
	}

	Stream(ctx, o.provider, req, o.cfg.StreamBuffer, StreamCallbacks{
		OnUpdate: func(fragment string) {
			o.metrics.Fragment(ctx)
			o.update(gen, fragment)
		},
		OnComplete: func(fullText string) {
			o.complete(ctx, gen, req, fullText, false)
		},
		OnError: func(err error) {
			o.fail(ctx, gen, req, err)
		},
	})
}

func (o *Orchestrator) liveLocked(gen uint64) bool {
	return !o.closed && gen == o.generation
}

func (o *Orchestrator) update(gen uint64, fragment string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.liveLocked(gen) {
		return
	}
	o.state.Output += fragment
	o.broadcastLocked()
}

// complete commits the final text to the history and then publishes it, so a
// reader that sees StatusDone also sees the entry. The store write runs without
// the lock. A session superseded meanwhile keeps its entry but not the display.
func (o *Orchestrator) complete(ctx context.Context, gen uint64, req models.TranslationRequest, fullText string, fromCache bool) {
	o.mu.Lock()
	if !o.liveLocked(gen) {
		o.mu.Unlock()
		o.logger.Debug(ctx, "Dropping result of superseded session", map[string]interface{}{"session_id": o.id, "generation": gen})
		return
	}
	o.cancel = nil
	item := models.NewHistoryItem(req.From, req.To, req.Text, fullText, o.clock.Now())
	o.mu.Unlock()

	// The session context ends with run; the finished result is still kept
	o.history.Commit(context.WithoutCancel(ctx), item)
	o.metrics.Completed(ctx, string(req.From), string(req.To), fromCache)

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.liveLocked(gen) {
		return
	}
	o.state.Output = fullText
	o.state.Status = models.StatusDone
	o.state.FromCache = fromCache
	o.broadcastLocked()
}

// fail keeps the partial output and shows a user facing message
func (o *Orchestrator) fail(ctx context.Context, gen uint64, req models.TranslationRequest, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.liveLocked(gen) {
		return
	}
	o.cancel = nil
	o.state.Status = models.StatusError
	o.state.Error = contextutils.UserMessage(err)
	o.broadcastLocked()
	o.metrics.Failed(ctx, string(req.From), string(req.To))
	o.logger.Error(ctx, "Translation session failed", err, map[string]interface{}{
		"session_id": o.id,
		"from":       req.From,
		"to":         req.To,
	})
}

// broadcastLocked replaces whatever snapshot a subscriber has not read yet
func (o *Orchestrator) broadcastLocked() {
	o.state.Generation = o.generation
	for ch := range o.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- o.state:
		default:
		}
	}
}
