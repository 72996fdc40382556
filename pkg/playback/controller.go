package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wavebound/storyline/internal/logging"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/ports"
	"github.com/wavebound/storyline/pkg/validator"
)

// Controller owns one live playback session.
//
// Every input, whether from the host media element, the player or the
// choice-wait timer, funnels into Machine.Step under a single lock, so there
// is one logical owner of the session at a time. Several controllers may run
// side by side (preview and live) without sharing state.
type Controller struct {
	mu sync.Mutex // serializes dispatch

	stateMu sync.RWMutex // guards session for readers
	session domain.Session

	machine  *Machine
	kinds    map[string]domain.EffectiveKind
	settings Settings

	clock  Clock
	assets ports.AssetResolver
	memory ports.MemoryStore
	hooks  domain.LifecycleHooks
	logger *slog.Logger

	timer       Timer
	presentedAt time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
	closed  bool
}

// NewController prepares a session for g. Playback begins with Start.
func NewController(g *domain.Graph, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		session:  domain.NewSession(uuid.NewString()),
		settings: DefaultSettings(),
		clock:    SystemClock(),
		logger:   logging.NewNop(),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.machine = NewMachine(g, c.settings)
	c.settings = c.machine.Settings()
	c.kinds = validator.Classify(c.machine.Graph())
	return c
}

// Start begins playback at the effective start node. Inherited flags are
// loaded first when cross-episode memory is enabled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.memoryEnabled() && c.Snapshot().Phase == domain.PhaseIdle {
		c.loadInherited(ctx)
	}
	return c.dispatch(ctx, Start())
}

// Restart discards history, flags and position and starts over. The graph
// is not touched.
func (c *Controller) Restart(ctx context.Context) error {
	return c.send(ctx, Restart())
}

// Tick reports the media position of the current node in seconds.
func (c *Controller) Tick(ctx context.Context, elapsed float64) error {
	return c.send(ctx, Tick(elapsed))
}

// AudioEnded reports that the current node's audio finished.
func (c *Controller) AudioEnded(ctx context.Context) error {
	return c.send(ctx, AudioEnded())
}

// Select commits the player's choice. It cancels the wait window.
func (c *Controller) Select(ctx context.Context, choiceID string) error {
	return c.send(ctx, ChoiceSelected(choiceID))
}

// Pause suspends playback and the choice-wait window.
func (c *Controller) Pause(ctx context.Context) error {
	return c.send(ctx, Pause())
}

// Resume continues after Pause. A suspended choice window restarts in full.
func (c *Controller) Resume(ctx context.Context) error {
	return c.send(ctx, Resume())
}

// Close stops the session's timer and audio. Further calls fail with
// ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimer()
	c.cancel()

	s := c.Snapshot()
	if s.Phase != domain.PhaseIdle && !s.Phase.IsTerminal() {
		c.fireAudio(context.Background(), s, s.CurrentNodeID, domain.AudioStop, "")
	}
}

// Snapshot returns a copy of the session.
func (c *Controller) Snapshot() domain.Session {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.session.Clone()
}

// Phase returns the current phase.
func (c *Controller) Phase() domain.Phase {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.session.Phase
}

// Machine returns the underlying state machine.
func (c *Controller) Machine() *Machine {
	return c.machine
}

func (c *Controller) send(ctx context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.dispatch(ctx, ev)
}

// dispatch steps the machine and executes effects. Effects may produce
// follow-up events (asset resolution), which are processed in order.
// Caller holds c.mu.
func (c *Controller) dispatch(ctx context.Context, ev Event) error {
	queue := []Event{ev}
	for len(queue) > 0 {
		ev, queue = queue[0], queue[1:]

		before := c.Snapshot()
		next, effects, err := c.machine.Step(before, ev)
		if err != nil {
			c.logger.Debug("Event rejected", "event", ev.Type, "node_id", before.CurrentNodeID, "phase", before.Phase, "err", err)
			return err
		}
		if len(effects) == 0 && next.Phase == before.Phase {
			if ev.Type != EventTick {
				c.logger.Debug("Event ignored", "event", ev.Type, "node_id", before.CurrentNodeID, "phase", before.Phase)
			}
			c.setSession(next)
			continue
		}
		c.setSession(next)
		c.logger.Debug("Playback transition",
			"event", ev.Type,
			"node_id", next.CurrentNodeID,
			"from", before.Phase,
			"phase", next.Phase,
			"epoch", next.Epoch,
		)

		for _, eff := range effects {
			if follow := c.execute(ctx, next, eff); follow != nil {
				queue = append(queue, *follow)
			}
		}
	}
	return nil
}

func (c *Controller) setSession(s domain.Session) {
	c.stateMu.Lock()
	c.session = s
	c.stateMu.Unlock()
}

// execute performs one effect and returns a follow-up event, if any.
func (c *Controller) execute(ctx context.Context, s domain.Session, eff Effect) *Event {
	switch eff.Type {
	case EffectEnterNode, EffectLeaveNode:
		hook := c.hooks.OnNodeEnter
		typ := domain.EventNodeEnter
		if eff.Type == EffectLeaveNode {
			hook, typ = c.hooks.OnNodeLeave, domain.EventNodeLeave
		}
		if hook != nil {
			hook(ctx, &domain.NodeEvent{
				EventBase: c.base(s, typ),
				NodeID:    eff.NodeID,
				Kind:      c.kinds[eff.NodeID],
			})
		}

	case EffectLoadAsset:
		return c.loadAsset(ctx, eff)

	case EffectPlayAudio:
		c.fireAudio(ctx, s, eff.NodeID, domain.AudioPlay, eff.URL)
	case EffectPauseAudio:
		c.fireAudio(ctx, s, eff.NodeID, domain.AudioPause, "")
	case EffectResumeAudio:
		c.fireAudio(ctx, s, eff.NodeID, domain.AudioResume, "")
	case EffectStopAudio:
		c.fireAudio(ctx, s, eff.NodeID, domain.AudioStop, "")

	case EffectPresentChoices:
		c.presentedAt = c.clock.Now()
		if c.hooks.OnChoicesPresented != nil {
			c.hooks.OnChoicesPresented(ctx, &domain.ChoiceEvent{
				EventBase: c.base(s, domain.EventChoicesPresented),
				NodeID:    eff.NodeID,
				Choices:   eff.Choices,
				Window:    eff.Window,
			})
		}

	case EffectArmChoiceTimer:
		c.stopTimer()
		epoch := eff.Epoch
		c.timer = c.clock.AfterFunc(eff.Window, func() {
			c.onTimeout(epoch)
		})

	case EffectCancelChoiceTimer:
		c.stopTimer()

	case EffectChoiceResolved:
		if eff.Auto {
			c.logger.Info("Choice window expired, picking first choice", "node_id", eff.NodeID, "choice_id", eff.ChoiceID)
		}
		if c.hooks.OnChoiceResolved != nil {
			c.hooks.OnChoiceResolved(ctx, &domain.ChoiceEvent{
				EventBase: c.base(s, domain.EventChoiceResolved),
				NodeID:    eff.NodeID,
				ChoiceID:  eff.ChoiceID,
				Auto:      eff.Auto,
				Waited:    c.clock.Now().Sub(c.presentedAt),
			})
		}

	case EffectEnded:
		c.stopTimer()
		c.persistFlags(ctx, s)
		c.fireEnd(ctx, s, domain.EventSessionEnded, nil)

	case EffectFailed:
		c.stopTimer()
		c.logger.Warn("Playback failed", "node_id", eff.NodeID, "err", eff.Err)
		c.fireEnd(ctx, s, domain.EventSessionFailed, eff.Err)
	}
	return nil
}

func (c *Controller) loadAsset(ctx context.Context, eff Effect) *Event {
	if c.assets == nil {
		ev := AssetReady(eff.AudioRef, eff.Epoch)
		return &ev
	}
	url, err := c.assets.Resolve(ctx, eff.AudioRef)
	if err != nil {
		if errors.Is(err, domain.ErrAssetUnavailable) {
			c.logger.Warn("Asset unavailable, playing node silently", "node_id", eff.NodeID, "audio_ref", eff.AudioRef)
		} else {
			c.logger.Warn("Asset resolution failed, playing node silently", "node_id", eff.NodeID, "audio_ref", eff.AudioRef, "err", err)
		}
		ev := AssetFailed(err, eff.Epoch)
		return &ev
	}
	ev := AssetReady(url, eff.Epoch)
	return &ev
}

// onTimeout runs on the clock's goroutine.
func (c *Controller) onTimeout(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err := c.dispatch(c.baseCtx, TimeoutExpired(epoch)); err != nil {
		c.logger.Error("Choice timeout dispatch failed", "err", err)
	}
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) base(s domain.Session, typ domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: c.clock.Now(),
		Type:      typ,
		SessionID: s.ID,
		EpisodeID: s.EpisodeID,
	}
}

func (c *Controller) fireAudio(ctx context.Context, s domain.Session, nodeID string, cmd domain.AudioCommand, url string) {
	if c.hooks.OnAudio == nil {
		return
	}
	c.hooks.OnAudio(ctx, &domain.AudioEvent{
		EventBase: c.base(s, domain.EventAudio),
		NodeID:    nodeID,
		Command:   cmd,
		URL:       url,
	})
}

func (c *Controller) fireEnd(ctx context.Context, s domain.Session, typ domain.EventType, err error) {
	if c.hooks.OnSessionEnd == nil {
		return
	}
	c.hooks.OnSessionEnd(ctx, &domain.SessionEvent{
		EventBase: c.base(s, typ),
		NodeID:    s.CurrentNodeID,
		Phase:     s.Phase,
		History:   s.ChoicesMade(),
		Flags:     s.ActiveFlags(),
		Err:       err,
	})
}

func (c *Controller) memoryEnabled() bool {
	s := c.Snapshot()
	return c.memory != nil && s.SeriesID != "" && s.UserID != ""
}

func (c *Controller) loadInherited(ctx context.Context) {
	s := c.Snapshot()
	flags, err := c.memory.LoadFlags(ctx, s.SeriesID, s.UserID)
	if err != nil {
		c.logger.Warn("Failed to load series memory", "series_id", s.SeriesID, "user_id", s.UserID, "err", err)
		return
	}
	s.Inherited = make(map[string]bool, len(flags))
	for _, f := range flags {
		s.Inherited[f] = true
	}
	c.setSession(s)
}

func (c *Controller) persistFlags(ctx context.Context, s domain.Session) {
	if !c.memoryEnabled() {
		return
	}
	flags := s.ActiveFlags()
	if len(flags) == 0 {
		return
	}
	if err := c.memory.MergeFlags(ctx, s.SeriesID, s.UserID, flags); err != nil {
		c.logger.Warn("Failed to persist series memory", "series_id", s.SeriesID, "user_id", s.UserID, "err", err)
	}
}
