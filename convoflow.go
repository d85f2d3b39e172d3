package convoflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avelardos/convoflow/internal/adapters/memory"
	"github.com/avelardos/convoflow/internal/cache"
	"github.com/avelardos/convoflow/internal/compiler"
	"github.com/avelardos/convoflow/internal/hooks"
	"github.com/avelardos/convoflow/internal/metrics"
	"github.com/avelardos/convoflow/internal/runtime"
	"github.com/avelardos/convoflow/pkg/domain"
	"github.com/avelardos/convoflow/pkg/ports"
)

const (
	// DefaultLockTTL bounds how long a crashed replica can hold a
	// distributed session lock.
	DefaultLockTTL = 30 * time.Second

	safetyFallbackMessage = "Lo sentimos, algo salió mal. Intenta de nuevo en un momento."
)

// Engine is the high-level entry point for the library. It compiles
// flows on demand, serializes turns per session, and wires the
// executor, stores and hooks together.
type Engine struct {
	source      ports.FlowSource
	store       ports.SessionStore
	locker      ports.Locker
	hookImpl    ports.HookDispatcher
	hookTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tenantVars  map[string]map[string]any
	lockTTL     time.Duration
	cacheTTL    time.Duration

	execOpts []runtime.Option
	executor *runtime.Executor
	defs     *cache.Definitions

	// sessionLocks serializes turns for the same session within this
	// process. Entries are never removed; the map is bounded by the
	// number of distinct sessions this replica has touched.
	sessionLocks sync.Map
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSessionStore replaces the default in-memory session store.
func WithSessionStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables cross-replica turn serialization.
func WithLocker(l ports.Locker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithHookDispatcher registers the funnel hook sink for action nodes.
func WithHookDispatcher(h ports.HookDispatcher) Option {
	return func(e *Engine) {
		e.hookImpl = h
	}
}

// WithHookTimeout bounds how long one hook dispatch may run.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.hookTimeout = d
		}
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors. Without it the engine
// runs unmetered.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithHopLimit overrides the per-turn node execution bound.
func WithHopLimit(n int) Option {
	return func(e *Engine) {
		e.execOpts = append(e.execOpts, runtime.WithHopLimit(n))
	}
}

// WithMaxRetries overrides the invalid-input retry bound.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		e.execOpts = append(e.execOpts, runtime.WithMaxRetries(n))
	}
}

// WithTenantVariables registers tenant-wide variables (business name,
// support phone) available to every flow of that tenant.
func WithTenantVariables(tenantID string, vars map[string]any) Option {
	return func(e *Engine) {
		e.tenantVars[tenantID] = vars
	}
}

// WithLockTTL overrides the distributed lock lease.
func WithLockTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lockTTL = d
		}
	}
}

// WithDefinitionTTL overrides how long compiled flows stay cached.
func WithDefinitionTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.cacheTTL = d
		}
	}
}

// New initializes an Engine over the given flow source. By default
// sessions live in process memory; production deployments pass
// WithSessionStore and WithLocker backed by Redis.
func New(source ports.FlowSource, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("flow source is required")
	}
	eng := &Engine{
		source:      source,
		hookTimeout: hooks.DefaultTimeout,
		logger:      slog.Default(),
		tenantVars:  make(map[string]map[string]any),
		lockTTL:     DefaultLockTTL,
		cacheTTL:    cache.DefaultTTL,
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	eng.defs = cache.NewDefinitions(eng.cacheTTL)

	dispatcher := hooks.New(eng.hookImpl, eng.hookTimeout, eng.logger)
	if eng.metrics != nil {
		m := eng.metrics
		dispatcher.OnFailure = func(string) { m.HookFailures.Inc() }
	}
	execOpts := append([]runtime.Option{runtime.WithLogger(eng.logger)}, eng.execOpts...)
	eng.executor = runtime.New(dispatcher, execOpts...)
	return eng, nil
}

// TurnRequest is one inbound end-user message.
type TurnRequest struct {
	TenantID   string
	UserID     string
	SessionID  string // empty starts a new conversation
	TemplateID string
	Text       string
}

func (r TurnRequest) validate() error {
	if r.TenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if r.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if r.TemplateID == "" {
		return fmt.Errorf("template id is required")
	}
	return nil
}

// ProcessTurn runs one full turn: it loads (or creates) the session,
// consumes the inbound text against any pending wait, auto-advances
// through non-blocking nodes, and persists the resulting state exactly
// once. Concurrent turns for the same session are serialized.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) (*domain.TurnResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	key := domain.SessionKey{TenantID: req.TenantID, UserID: req.UserID, SessionID: req.SessionID}

	unlock, err := e.lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	def, err := e.Definition(ctx, req.TenantID, req.TemplateID)
	if err != nil {
		return nil, err
	}

	sess, fresh, err := e.loadOrCreate(ctx, key, req.TemplateID, def)
	if err != nil {
		return nil, err
	}
	if sess.Ended {
		// A finished conversation restarts silently from the top.
		sess.Reset(def.EntryNodeID)
		fresh = true
	}

	turn := &runtime.Turn{}
	runLoop := true
	if !fresh && sess.Waiting {
		advanced, err := e.executor.ResolveWait(ctx, def, sess, e.tenantVars[req.TenantID], req.Text, turn)
		if err != nil {
			return nil, err
		}
		runLoop = advanced
	}
	if runLoop {
		if err := e.executor.Run(ctx, def, sess, e.tenantVars[req.TenantID], turn); err != nil {
			var safety *domain.SafetyError
			if errors.As(err, &safety) {
				// The turn is abandoned and the session left as it was
				// before this message: nothing is persisted.
				e.logger.Error("hop limit exceeded",
					"session", key.String(), "node", safety.NodeID, "hops", safety.Hops)
				e.countTurn(req.TenantID, "safety", turn.Hops)
				return &domain.TurnResult{
					SessionKey: key,
					Messages:   []domain.OutboundMessage{{Text: safetyFallbackMessage}},
					Debug:      debugState(sess, turn),
				}, nil
			}
			e.countTurn(req.TenantID, "error", turn.Hops)
			return nil, err
		}
	}

	sess.Touch()
	if err := e.store.Save(ctx, sess); err != nil {
		e.countTurn(req.TenantID, "error", turn.Hops)
		return nil, &domain.PersistenceError{Op: "save", Key: key.String(), Err: err}
	}

	if e.metrics != nil && sess.Ended {
		e.metrics.SessionsEnded.Inc()
	}
	e.countTurn(req.TenantID, "ok", turn.Hops)

	return &domain.TurnResult{
		SessionKey: key,
		Messages:   turn.Messages,
		Options:    turn.Options,
		Debug:      debugState(sess, turn),
	}, nil
}

// Definition returns the compiled flow for a tenant's template,
// compiling and caching it on first use.
func (e *Engine) Definition(ctx context.Context, tenantID, templateID string) (*domain.FlowDefinition, error) {
	if def, ok := e.defs.Get(tenantID, templateID); ok {
		return def, nil
	}
	raw, err := e.source.Load(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	def, err := compiler.Compile(raw)
	if err != nil {
		return nil, err
	}
	def.TenantID = tenantID
	e.defs.Put(tenantID, templateID, def)
	return def, nil
}

// InvalidateTemplate drops the cached compilation of one template so
// the next turn picks up a republished version.
func (e *Engine) InvalidateTemplate(tenantID, templateID string) {
	e.defs.Invalidate(tenantID, templateID)
}

// Session returns a read-only snapshot of a stored session for
// debugging. Returns domain.ErrSessionNotFound when absent.
func (e *Engine) Session(ctx context.Context, key domain.SessionKey) (domain.Snapshot, error) {
	sess, err := e.store.Load(ctx, key)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Store exposes the session store for background maintenance such as
// idle-session sweeps.
func (e *Engine) Store() ports.SessionStore {
	return e.store
}

func (e *Engine) loadOrCreate(ctx context.Context, key domain.SessionKey, templateID string, def *domain.FlowDefinition) (*domain.Session, bool, error) {
	sess, err := e.store.Load(ctx, key)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return domain.NewSession(key, templateID, def.EntryNodeID), true, nil
	case err != nil:
		return nil, false, &domain.PersistenceError{Op: "load", Key: key.String(), Err: err}
	}
	if sess.FlowTemplateID != templateID {
		// The channel switched templates mid-conversation; the old
		// session's position is meaningless on the new graph.
		e.logger.Info("session rebound to new template",
			"session", key.String(), "from", sess.FlowTemplateID, "to", templateID)
		return domain.NewSession(key, templateID, def.EntryNodeID), true, nil
	}
	return sess, false, nil
}

// lock acquires the in-process mutex for key and, when a distributed
// locker is configured, the cross-replica lock on top of it.
func (e *Engine) lock(ctx context.Context, key domain.SessionKey) (func(), error) {
	v, _ := e.sessionLocks.LoadOrStore(key.String(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	if e.locker == nil {
		return mu.Unlock, nil
	}
	unlock, err := e.locker.Lock(ctx, key.String(), e.lockTTL)
	if err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("acquiring session lock: %w", err)
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("releasing session lock", "session", key.String(), "err", err)
		}
		mu.Unlock()
	}, nil
}

func (e *Engine) countTurn(tenantID, outcome string, hops int) {
	if e.metrics == nil {
		return
	}
	e.metrics.TurnsTotal.WithLabelValues(tenantID, outcome).Inc()
	if hops > 0 {
		e.metrics.TurnHops.Observe(float64(hops))
	}
}

func debugState(sess *domain.Session, turn *runtime.Turn) domain.DebugState {
	return domain.DebugState{
		CurrentNodeID: sess.CurrentNodeID,
		Waiting:       sess.Waiting,
		Ended:         sess.Ended,
		Hops:          turn.Hops,
		RetryCount:    sess.RetryCount,
	}
}
