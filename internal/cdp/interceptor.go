package cdp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"

	"github.com/bermudi/remove-tracking-url/internal/gate"
	"github.com/bermudi/remove-tracking-url/internal/journal"
)

// Interceptor attaches to every page target in a browser and gates its
// top-level document navigations through the decision pipeline, rewriting
// paused requests whose cleaned URL differs from the original.
type Interceptor struct {
	cdp             *rawCDP
	gate            *gate.Gate
	registry        *TabRegistry
	journal         *journal.Writer // nil disables journaling
	decisionTimeout time.Duration
	resyncInterval  time.Duration

	mu       sync.Mutex
	sessions map[string]target.ID // session id -> target id
	attached map[target.ID]string // target id -> session id

	done       chan struct{}
	wg         sync.WaitGroup
	unregister []func()
}

// NewInterceptor wires the gate to a browser reachable at cdpURL.
func NewInterceptor(cdpURL string, g *gate.Gate, registry *TabRegistry, jw *journal.Writer, decisionTimeout, resyncInterval time.Duration) *Interceptor {
	if decisionTimeout <= 0 {
		decisionTimeout = 2 * time.Second
	}
	if resyncInterval <= 0 {
		resyncInterval = 5 * time.Second
	}
	return &Interceptor{
		cdp:             newRawCDP(cdpURL),
		gate:            g,
		registry:        registry,
		journal:         jw,
		decisionTimeout: decisionTimeout,
		resyncInterval:  resyncInterval,
		sessions:        make(map[string]target.ID),
		attached:        make(map[target.ID]string),
		done:            make(chan struct{}),
	}
}

// Connect dials the browser, attaches to existing page targets, and starts
// the resync loop that picks up tabs opened later.
func (i *Interceptor) Connect(ctx context.Context) error {
	if err := i.cdp.connect(ctx); err != nil {
		return NewError(CodeCDPUnavailable, "connect to CDP failed", err)
	}

	i.unregister = append(i.unregister,
		i.cdp.registerEventHandler("Fetch.requestPaused", i.onRequestPaused),
		i.cdp.registerEventHandler("Page.frameNavigated", i.onFrameNavigated),
		i.cdp.registerEventHandler("Target.detachedFromTarget", i.onDetached),
	)

	if err := i.syncTabs(ctx); err != nil {
		i.cdp.close()
		return NewError(CodeCDPUnavailable, "initial tab sync failed", err)
	}

	i.wg.Add(1)
	go i.resyncLoop()

	slog.Info("interceptor connected", "tabs", i.registry.Count())
	return nil
}

// Close detaches all sessions and shuts the transport down.
func (i *Interceptor) Close() error {
	close(i.done)
	for _, un := range i.unregister {
		un()
	}
	i.wg.Wait()

	i.mu.Lock()
	sessions := make([]string, 0, len(i.sessions))
	for sid := range i.sessions {
		sessions = append(sessions, sid)
	}
	i.sessions = make(map[string]target.ID)
	i.attached = make(map[target.ID]string)
	i.mu.Unlock()

	for _, sid := range sessions {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = i.cdp.detachFromTarget(ctx, sid)
		cancel()
	}
	i.cdp.close()
	slog.Info("interceptor closed")
	return nil
}

// Tabs lists currently attached page targets.
func (i *Interceptor) Tabs() []TabInfo {
	return i.registry.List()
}

func (i *Interceptor) resyncLoop() {
	defer i.wg.Done()
	ticker := time.NewTicker(i.resyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), i.resyncInterval)
			if err := i.syncTabs(ctx); err != nil {
				slog.Debug("tab resync failed", "error", err)
			}
			cancel()
		case <-i.done:
			return
		}
	}
}

// syncTabs attaches to page targets that appeared since the last pass and
// drops registry entries for targets that are gone.
func (i *Interceptor) syncTabs(ctx context.Context) error {
	targets, err := i.cdp.listTargets(ctx)
	if err != nil {
		return err
	}

	alive := make(map[target.ID]bool, len(targets))
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		alive[t.TargetID] = true

		i.mu.Lock()
		_, ok := i.attached[t.TargetID]
		i.mu.Unlock()
		if ok {
			i.registry.UpdateURL(t.TargetID, t.URL)
			continue
		}
		if err := i.attachTo(ctx, t); err != nil {
			slog.Warn("failed to attach to tab", "target_id", t.TargetID, "url", truncateURL(t.URL), "error", err)
		}
	}

	for _, info := range i.registry.List() {
		id := target.ID(info.TargetID)
		if alive[id] {
			continue
		}
		i.registry.Remove(id)
		i.mu.Lock()
		if sid, ok := i.attached[id]; ok {
			delete(i.attached, id)
			delete(i.sessions, sid)
		}
		i.mu.Unlock()
	}
	return nil
}

func (i *Interceptor) attachTo(ctx context.Context, t *target.Info) error {
	sessionID, err := i.cdp.attachToTarget(ctx, t.TargetID)
	if err != nil {
		return err
	}
	if err := i.cdp.enableFetch(ctx, sessionID); err != nil {
		_ = i.cdp.detachFromTarget(ctx, sessionID)
		return err
	}
	if err := i.cdp.enablePage(ctx, sessionID); err != nil {
		slog.Debug("page domain enable failed (continuing)", "target_id", t.TargetID, "error", err)
	}

	i.mu.Lock()
	i.sessions[sessionID] = t.TargetID
	i.attached[t.TargetID] = sessionID
	i.mu.Unlock()
	i.registry.Register(t.TargetID, t.URL, t.Title)

	slog.Info("attached to tab", "target_id", t.TargetID, "url", truncateURL(t.URL))
	return nil
}

func (i *Interceptor) targetFor(sessionID string) (target.ID, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, ok := i.sessions[sessionID]
	return id, ok
}

// pausedRequest is the slice of Fetch.requestPaused this engine reads.
type pausedRequest struct {
	RequestID string `json:"requestId"`
	Request   struct {
		URL         string         `json:"url"`
		URLFragment string         `json:"urlFragment"`
		Headers     map[string]any `json:"headers"`
	} `json:"request"`
	ResourceType       string `json:"resourceType"`
	ResponseStatusCode int    `json:"responseStatusCode"`
}

// onRequestPaused runs on the transport read loop; the decision and the
// resume command hop to their own goroutine so command responses can still
// be read.
func (i *Interceptor) onRequestPaused(sessionID string, params json.RawMessage) {
	var ev pausedRequest
	if err := json.Unmarshal(params, &ev); err != nil {
		slog.Debug("malformed requestPaused event", "error", err)
		return
	}

	select {
	case <-i.done:
		return
	default:
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.handlePaused(sessionID, ev)
	}()
}

func (i *Interceptor) handlePaused(sessionID string, ev pausedRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), i.decisionTimeout)
	defer cancel()

	// Response-stage pauses are not requested, but resume them if one
	// arrives; a stuck request is worse than a missed rewrite.
	if ev.ResponseStatusCode != 0 {
		i.resume(ctx, sessionID, ev.RequestID, "")
		return
	}

	targetID, ok := i.targetFor(sessionID)
	if !ok {
		i.resume(ctx, sessionID, ev.RequestID, "")
		return
	}

	eventURL := ev.Request.URL + ev.Request.URLFragment
	initiator := refererHeader(ev.Request.Headers)
	if initiator == "" {
		initiator = i.registry.LastURL(targetID)
	}

	decision := i.gate.Evaluate(ctx, gate.Event{
		URL:          eventURL,
		ResourceType: ev.ResourceType,
		TabID:        string(targetID),
		Initiator:    initiator,
	})

	if !decision.Redirect {
		i.resume(ctx, sessionID, ev.RequestID, "")
		return
	}

	slog.Info("rewriting navigation",
		"tab_id", targetID,
		"from", truncateURL(eventURL),
		"to", truncateURL(decision.Target),
	)
	i.resume(ctx, sessionID, ev.RequestID, decision.Target)

	if i.journal != nil {
		if err := i.journal.Write(journal.RedirectRecord{
			Timestamp: time.Now().UTC(),
			TabID:     string(targetID),
			From:      eventURL,
			To:        decision.Target,
			Initiator: initiator,
		}); err != nil {
			slog.Debug("journal write failed", "error", err)
		}
	}
}

// resume continues a paused request, failing open on any transport error.
func (i *Interceptor) resume(ctx context.Context, sessionID, requestID, overrideURL string) {
	if err := i.cdp.continueRequest(ctx, sessionID, requestID, overrideURL); err != nil {
		slog.Debug("continueRequest failed", "request_id", requestID, "error", err)
	}
}

func (i *Interceptor) onFrameNavigated(sessionID string, params json.RawMessage) {
	var ev struct {
		Frame struct {
			ParentID string `json:"parentId"`
			URL      string `json:"url"`
		} `json:"frame"`
	}
	if err := json.Unmarshal(params, &ev); err != nil {
		return
	}
	if ev.Frame.ParentID != "" {
		return
	}
	if targetID, ok := i.targetFor(sessionID); ok {
		i.registry.UpdateURL(targetID, ev.Frame.URL)
	}
}

func (i *Interceptor) onDetached(sessionID string, params json.RawMessage) {
	// The detach notification arrives at browser level; the affected
	// session is in the params, not the envelope.
	var ev struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(params, &ev); err == nil && ev.SessionID != "" {
		sessionID = ev.SessionID
	}

	i.mu.Lock()
	if targetID, ok := i.sessions[sessionID]; ok {
		delete(i.sessions, sessionID)
		delete(i.attached, targetID)
	}
	i.mu.Unlock()
}

func refererHeader(headers map[string]any) string {
	for k, v := range headers {
		if strings.EqualFold(k, "referer") {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
