package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/registrypulse/registrypulse/internal/config"
	"github.com/registrypulse/registrypulse/internal/health"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Subject    string     `json:"subject"` // "registry" or a component id
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Engine evaluates alert rules against health pairs and delivers webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.AlertRule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[alertKey]*Alert
	lastFire map[alertKey]time.Time // last fire time per key (for cooldown)
	history  []*Alert               // recently resolved alerts, newest last
	client   *http.Client
	now      func() time.Time
}

// alertKey identifies one (rule, subject) pairing. A struct key keeps rules
// whose names contain ":" from colliding with each other's subjects.
type alertKey struct {
	rule    string
	subject string
}

// New creates an Engine from the alert configuration.
// An Engine with empty rules is valid — Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[alertKey]*Alert),
		lastFire: make(map[alertKey]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Evaluate tests all configured rules against pair.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition no longer holds are resolved.
func (e *Engine) Evaluate(pair *health.Pair) {
	if len(e.rules) == 0 {
		return
	}

	for _, rule := range e.rules {
		matches := evalCondition(rule.Condition, pair)

		matched := make(map[string]bool, len(matches))
		for _, m := range matches {
			matched[m.subject] = true
			e.fire(rule, m)
		}
		e.resolveStale(rule, matched)
	}
}

// fire records one firing subject, respecting the rule's cooldown.
func (e *Engine) fire(rule config.AlertRule, m match) {
	key := alertKey{rule: rule.Name, subject: m.subject}
	now := e.now()

	cooldown := rule.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	e.mu.Lock()
	if now.Sub(e.lastFire[key]) <= cooldown {
		e.mu.Unlock()
		return
	}

	sev := rule.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:       fmt.Sprintf("%s:%s:%d", rule.Name, m.subject, now.UnixNano()),
		RuleName: rule.Name,
		Subject:  m.subject,
		Severity: sev,
		Value:    m.value,
		Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)",
			sev, rule.Name, m.subject, rule.Condition, m.value),
		FiredAt: now,
		State:   "firing",
	}
	e.active[key] = a
	e.lastFire[key] = now
	alertCopy := *a
	e.mu.Unlock()

	slog.Warn("alert fired",
		"rule", rule.Name,
		"subject", m.subject,
		"value", m.value,
		"severity", sev,
	)
	go e.deliver(&alertCopy)
}

// resolveStale resolves active alerts for rule whose subject no longer matches.
func (e *Engine) resolveStale(rule config.AlertRule, matched map[string]bool) {
	now := e.now()

	var resolved []Alert
	e.mu.Lock()
	for key, a := range e.active {
		if key.rule != rule.Name || matched[key.subject] {
			continue
		}
		t := now
		a.State = "resolved"
		a.ResolvedAt = &t
		delete(e.active, key)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		resolved = append(resolved, *a)
	}
	e.mu.Unlock()

	for i := range resolved {
		a := resolved[i]
		slog.Info("alert resolved", "rule", a.RuleName, "subject", a.Subject)
		go e.deliver(&a)
	}
}

// Active returns a copy of the currently firing alerts.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	return out
}

// History returns a copy of recently resolved alerts, newest last.
func (e *Engine) History() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Alert, len(e.history))
	for i, a := range e.history {
		out[i] = *a
	}
	return out
}
