// internal/wizard/controller.go
package wizard

import (
	"context"
	"strings"
	"sync"
	"time"

	"permit-portal/internal/common/errors"
	"permit-portal/internal/common/logger"
	"permit-portal/internal/common/metrics"
	"permit-portal/internal/common/validation"
	"permit-portal/internal/draft"
	"permit-portal/internal/models"
)

// State is the in-memory wizard state for one session. It is discarded when
// the session is dropped; only the draft persists.
type State struct {
	SessionID string
	UserID    string
	Email     string
	Current   Step
	Completed map[Step]bool
	Visited   map[Step]bool
	Renewal   bool
	RenewalOf string
	Draft     models.ApplicationDraft
	UpdatedAt time.Time
}

// snapshot returns a copy safe to hand out of the controller's lock.
func (s *State) snapshot() *State {
	out := &State{
		SessionID: s.SessionID,
		UserID:    s.UserID,
		Email:     s.Email,
		Current:   s.Current,
		Completed: make(map[Step]bool, len(s.Completed)),
		Visited:   make(map[Step]bool, len(s.Visited)),
		Renewal:   s.Renewal,
		RenewalOf: s.RenewalOf,
		Draft:     s.Draft.Clone(),
		UpdatedAt: s.UpdatedAt,
	}
	for k, v := range s.Completed {
		out.Completed[k] = v
	}
	for k, v := range s.Visited {
		out.Visited[k] = v
	}
	return out
}

// Controller sequences the wizard steps, gates forward navigation on field
// validation, and persists/restores drafts across sessions.
type Controller struct {
	mu       sync.Mutex
	sessions map[string]*State
	drafts   draft.Store
	logger   logger.Logger
}

func NewController(drafts draft.Store, log logger.Logger) *Controller {
	return &Controller{
		sessions: make(map[string]*State),
		drafts:   drafts,
		logger:   log.WithFields(map[string]interface{}{"component": "wizard"}),
	}
}

// Start creates a session at the intro step. A stored draft, if present,
// is restored and step completion is inferred from which field groups are
// fully non-empty.
func (c *Controller) Start(ctx context.Context, sessionID, userID, email string) (*State, error) {
	stored, err := c.drafts.Load(ctx, sessionID)
	if err != nil {
		return nil, errors.NewDraftStoreError(err)
	}

	st := &State{
		SessionID: sessionID,
		UserID:    userID,
		Email:     email,
		Current:   StepIntro,
		Completed: make(map[Step]bool),
		Visited:   map[Step]bool{StepIntro: true},
		Draft:     models.NewDraft(),
		UpdatedAt: time.Now().UTC(),
	}

	if stored != nil {
		st.Draft = stored
		c.inferProgress(st)
	}

	c.mu.Lock()
	c.sessions[sessionID] = st
	metrics.WizardSessionsActive.Set(float64(len(c.sessions)))
	snap := st.snapshot()
	c.mu.Unlock()

	c.logger.Info("wizard session started", map[string]interface{}{
		"sessionId": sessionID,
		"step":      string(snap.Current),
		"restored":  stored != nil,
	})
	return snap, nil
}

// StartRenewal creates a session pre-filled from a previously issued
// application: intro, personal and vehicle are pre-marked complete and the
// wizard opens on review. A renewal entry always wins over a stored draft;
// the stored draft stays untouched until submission clears it.
func (c *Controller) StartRenewal(ctx context.Context, sessionID, userID, email string, prior *models.Application) (*State, error) {
	if prior == nil {
		return nil, errors.NewNotFoundError("renewal requires a prior application")
	}

	st := &State{
		SessionID: sessionID,
		UserID:    userID,
		Email:     email,
		Current:   StepReview,
		Completed: map[Step]bool{StepIntro: true, StepPersonal: true, StepVehicle: true},
		Visited:   map[Step]bool{StepIntro: true, StepPersonal: true, StepVehicle: true, StepReview: true},
		Renewal:   true,
		RenewalOf: prior.ID,
		Draft:     models.DraftFromApplication(prior),
		UpdatedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	c.sessions[sessionID] = st
	metrics.WizardSessionsActive.Set(float64(len(c.sessions)))
	snap := st.snapshot()
	c.mu.Unlock()

	c.logger.Info("renewal session started", map[string]interface{}{
		"sessionId":  sessionID,
		"renewalOf":  prior.ID,
	})
	return snap, nil
}

// Get returns a snapshot of the session state.
func (c *Controller) Get(sessionID string) (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sessions[sessionID]
	if !ok {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	return st.snapshot(), nil
}

// Advance merges the submitted field values into the draft, validates the
// current step, and on success marks it complete, persists the draft and
// moves forward. On validation failure the wizard stays put and the
// per-field error map is returned.
func (c *Controller) Advance(ctx context.Context, sessionID string, fields map[string]string) (*State, map[string]string, error) {
	c.mu.Lock()
	st, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return nil, nil, errors.NewSessionNotFoundError(sessionID)
	}

	if st.Current.IsTerminal() || st.Current == StepPayment {
		c.mu.Unlock()
		return nil, nil, errors.NewStepNotAllowedError("cannot advance past " + string(st.Current))
	}

	st.Draft.Merge(normalizeFields(fields))

	if schema, gated := stepSchemas[st.Current]; gated {
		result := validation.ValidateFields(map[string]string(st.Draft), schema)
		if !result.Valid {
			metrics.WizardValidationFailures.WithLabelValues(string(st.Current)).Inc()
			fieldErrs := result.FieldErrors()
			snap := st.snapshot()
			c.mu.Unlock()
			return snap, fieldErrs, nil
		}
	}

	if st.Current == StepReview && !c.reviewReady(st) {
		c.mu.Unlock()
		return nil, nil, errors.NewStepNotAllowedError("review requires completed personal and vehicle steps")
	}

	draftCopy := st.Draft.Clone()
	current := st.Current
	c.mu.Unlock()

	// Persist outside the lock; a failed write keeps the wizard on the
	// current step so the user can retry.
	if err := c.drafts.Save(ctx, sessionID, draftCopy); err != nil {
		return nil, nil, errors.NewDraftStoreError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok = c.sessions[sessionID]
	if !ok {
		return nil, nil, errors.NewSessionNotFoundError(sessionID)
	}
	if st.Current == current {
		st.Completed[current] = true
		next := current.Next()
		if next != "" {
			st.Current = next
			st.Visited[next] = true
		}
		st.UpdatedAt = time.Now().UTC()
		metrics.WizardStepsAdvanced.WithLabelValues(string(current)).Inc()
	}
	return st.snapshot(), nil, nil
}

// Retreat moves to the previous step without validation or persistence.
func (c *Controller) Retreat(sessionID string) (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sessions[sessionID]
	if !ok {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	if prev := st.Current.Prev(); prev != "" {
		st.Current = prev
		st.UpdatedAt = time.Now().UTC()
	}
	return st.snapshot(), nil
}

// JumpTo moves directly to a step already visited or currently active; the
// sidebar "edit" links use this.
func (c *Controller) JumpTo(sessionID string, target Step) (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sessions[sessionID]
	if !ok {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	if target.index() < 0 {
		return nil, errors.NewStepNotAllowedError("unknown step " + string(target))
	}
	if !st.Visited[target] && st.Current != target {
		return nil, errors.NewStepNotAllowedError("step " + string(target) + " not visited yet")
	}
	st.Current = target
	st.UpdatedAt = time.Now().UTC()
	return st.snapshot(), nil
}

// CompleteSubmission marks the payment step done and lands the wizard on the
// given terminal step. Called by the payment branch handler only.
func (c *Controller) CompleteSubmission(sessionID string, terminal Step) (*State, error) {
	if !terminal.IsTerminal() {
		return nil, errors.NewStepNotAllowedError(string(terminal) + " is not a terminal step")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sessions[sessionID]
	if !ok {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	st.Completed[StepReview] = true
	st.Completed[StepPayment] = true
	st.Current = terminal
	st.Visited[terminal] = true
	st.UpdatedAt = time.Now().UTC()
	return st.snapshot(), nil
}

// ReturnToPayment lands the wizard back on the payment step after a failed
// payment so the user can retry with another instrument.
func (c *Controller) ReturnToPayment(sessionID string) (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sessions[sessionID]
	if !ok {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	st.Current = StepPayment
	st.Visited[StepPayment] = true
	st.UpdatedAt = time.Now().UTC()
	return st.snapshot(), nil
}

// Drop removes the session from memory. The stored draft is unaffected.
func (c *Controller) Drop(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	metrics.WizardSessionsActive.Set(float64(len(c.sessions)))
}

// Sweep drops sessions idle beyond maxIdle and returns how many were removed.
func (c *Controller) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxIdle)
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, st := range c.sessions {
		if st.UpdatedAt.Before(cutoff) && !st.Current.IsTerminal() {
			delete(c.sessions, id)
			removed++
		}
	}
	metrics.WizardSessionsActive.Set(float64(len(c.sessions)))
	return removed
}

// inferProgress marks steps complete based on which restored field groups
// are fully non-empty, and positions the wizard on the first incomplete
// step.
func (c *Controller) inferProgress(st *State) {
	st.Completed[StepIntro] = true
	st.Visited[StepIntro] = true

	if st.Draft.GroupComplete(models.PersonalFields) {
		st.Completed[StepPersonal] = true
		st.Visited[StepPersonal] = true
		if st.Draft.GroupComplete(models.VehicleFields) {
			st.Completed[StepVehicle] = true
			st.Visited[StepVehicle] = true
		}
	}

	for _, step := range stepOrder {
		if !st.Completed[step] {
			st.Current = step
			st.Visited[step] = true
			return
		}
	}
	st.Current = StepPayment
	st.Visited[StepPayment] = true
}

func (c *Controller) reviewReady(st *State) bool {
	return st.Completed[StepPersonal] && st.Completed[StepVehicle]
}

// normalizeFields trims values and upper-cases identity fields before they
// enter the draft.
func normalizeFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		v = strings.TrimSpace(v)
		if k == models.FieldCurpRfc || k == models.FieldNumeroSerie {
			v = strings.ToUpper(v)
		}
		out[k] = v
	}
	return out
}
