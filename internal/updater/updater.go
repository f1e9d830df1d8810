// Package updater implements the periodic demotion of expired advertisements:
// the throttling gate, field resolution, candidate selection and the bulk
// access update.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alfredjeanlab/adverthide/internal/audit"
	"github.com/alfredjeanlab/adverthide/internal/events"
	"github.com/alfredjeanlab/adverthide/internal/idgen"
	"github.com/alfredjeanlab/adverthide/internal/lock"
	"github.com/alfredjeanlab/adverthide/internal/metrics"
	"github.com/alfredjeanlab/adverthide/internal/model"
	"github.com/alfredjeanlab/adverthide/internal/store"
)

// Outcome describes how a tick ended.
type Outcome string

const (
	OutcomeNotDue       Outcome = "not_due"
	OutcomeNotAdmin     Outcome = "not_admin"
	OutcomeBusy         Outcome = "busy"
	OutcomeLoadFailed   Outcome = "load_failed"
	OutcomeConfigError  Outcome = "config_error"
	OutcomeFieldError   Outcome = "field_error"
	OutcomeNoCandidates Outcome = "no_candidates"
	OutcomeUpdated      Outcome = "updated"
	OutcomeUpdateFailed Outcome = "update_failed"
)

// Ran reports whether the outcome is one of a tick that went through the
// update cycle and therefore advanced last_check.
func (o Outcome) Ran() bool {
	switch o {
	case OutcomeConfigError, OutcomeFieldError, OutcomeNoCandidates, OutcomeUpdated, OutcomeUpdateFailed:
		return true
	}
	return false
}

// Result is the record of a single tick.
type Result struct {
	TickID     string          `json:"tick_id"`
	Outcome    Outcome         `json:"outcome"`
	Now        time.Time       `json:"now"`
	Candidates []int64         `json:"candidates,omitempty"`
	Updated    []int64         `json:"updated,omitempty"`
	Affected   int64           `json:"affected"`
	Notices    []events.Notice `json:"notices,omitempty"`
	Persisted  bool            `json:"persisted"`
}

// Config holds the collaborators and options of an Updater. Zero values
// select in-process defaults.
type Config struct {
	Element string // extensions row element (default "adverthiding")
	Folder  string // extensions row folder (default "system")

	Locker        lock.Locker      // default lock.NewLocal()
	LockTTL       time.Duration    // default 5m
	FieldCacheTTL time.Duration    // 0 = no caching
	Notifier      Notifier         // default LogNotifier
	Publisher     events.Publisher // receives AccessDemoted events; default no-op
	Audit         *audit.Trail     // optional
	Clock         func() time.Time // default time.Now
	Logger        *slog.Logger     // default slog.Default()
}

// Updater runs ticks against a store.
type Updater struct {
	store    store.Store
	resolver *Resolver
	selector *Selector
	applier  *Applier

	element   string
	folder    string
	locker    lock.Locker
	lockTTL   time.Duration
	notifier  Notifier
	publisher events.Publisher
	audit     *audit.Trail
	now       func() time.Time
	logger    *slog.Logger
}

// New creates an Updater over s.
func New(s store.Store, cfg Config) *Updater {
	if cfg.Element == "" {
		cfg.Element = model.DefaultElement
	}
	if cfg.Folder == "" {
		cfg.Folder = model.DefaultFolder
	}
	if cfg.Locker == nil {
		cfg.Locker = lock.NewLocal()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Logger: cfg.Logger}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = &events.NoopPublisher{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Updater{
		store:     s,
		resolver:  NewResolver(s, cfg.FieldCacheTTL, cfg.Logger),
		selector:  NewSelector(s),
		applier:   NewApplier(s),
		element:   cfg.Element,
		folder:    cfg.Folder,
		locker:    cfg.Locker,
		lockTTL:   cfg.LockTTL,
		notifier:  cfg.Notifier,
		publisher: cfg.Publisher,
		audit:     cfg.Audit,
		now:       cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Tick runs one invocation of the gate and, when due, the full update cycle.
// Failures are reported through notices and the result; Tick never returns
// an error.
func (u *Updater) Tick(ctx context.Context) Result {
	res := Result{TickID: idgen.MustTickID(), Now: u.now().UTC().Truncate(time.Second)}
	u.tick(ctx, &res)

	metrics.Ticks.WithLabelValues(string(res.Outcome)).Inc()
	if res.Outcome.Ran() {
		metrics.LastRun.Set(float64(res.Now.Unix()))
	}
	u.logger.Debug("tick finished", "tick_id", res.TickID, "outcome", res.Outcome, "updated", len(res.Updated))
	return res
}

func (u *Updater) tick(ctx context.Context, res *Result) {
	params, settings, ok := u.load(ctx, res)
	if !ok {
		return
	}
	if settings.AdminOnly && !IsAdmin(ctx) {
		res.Outcome = OutcomeNotAdmin
		return
	}
	if !settings.Due(res.Now) {
		res.Outcome = OutcomeNotDue
		return
	}

	release, acquired, err := u.locker.TryLock(ctx, "tick-"+u.element+"-"+u.folder, u.lockTTL)
	if err != nil {
		u.logger.Error("tick lock failed", "tick_id", res.TickID, "err", err)
	}
	if !acquired {
		res.Outcome = OutcomeBusy
		return
	}
	defer release()

	// Another process may have finished a run between our read and the lock.
	params, settings, ok = u.load(ctx, res)
	if !ok {
		return
	}
	if !settings.Due(res.Now) {
		res.Outcome = OutcomeNotDue
		return
	}

	demoted := u.cycle(ctx, res, settings)
	u.persist(ctx, res, params)

	// Listeners may be slow; last_check is already saved, so a request
	// arriving meanwhile sees the run as done even if the lock lapses.
	if demoted != nil {
		u.announce(ctx, res, *demoted)
	}
}

// load reads the params and parses the settings. Unreadable values fall
// back to defaults with a warning; only a failed load stops the tick.
func (u *Updater) load(ctx context.Context, res *Result) (*model.Params, model.Settings, bool) {
	params, err := u.store.LoadParams(ctx, u.element, u.folder)
	if err != nil {
		u.logger.Error("load params failed", "tick_id", res.TickID, "err", err)
		res.Outcome = OutcomeLoadFailed
		u.notify(ctx, res, events.LevelError, StepLoad, "Advert Hiding: failed to load the plugin parameters.")
		return nil, model.Settings{}, false
	}
	settings, err := params.Settings()
	if err != nil {
		u.logger.Warn("ignoring unreadable params", "tick_id", res.TickID, "err", err)
	}
	return params, settings, true
}

// cycle runs validation, field resolution, selection and the update. It
// returns the demotion to announce, or nil when nothing changed.
func (u *Updater) cycle(ctx context.Context, res *Result, s model.Settings) *events.AccessDemoted {
	if err := s.Validate(); err != nil {
		res.Outcome = OutcomeConfigError
		msg := "Advert Hiding: failed to read the Public or Registered group ids. Check the plugin settings."
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			msg = fmt.Sprintf("%s (%s)", msg, strings.Join(ve.Fields(), ", "))
		}
		u.notify(ctx, res, events.LevelError, StepConfig, msg)
		return nil
	}

	advertising, okA := u.resolver.Resolve(ctx, model.FieldAdvertising)
	hiding, okH := u.resolver.Resolve(ctx, model.FieldHiding)
	if !okA || !okH {
		res.Outcome = OutcomeFieldError
		u.notify(ctx, res, events.LevelError, StepFields,
			"Advert Hiding: the advertising or hiding field was not found. Check that the custom fields exist.")
		return nil
	}

	ids, err := u.selector.Select(ctx, model.CandidateQuery{
		AdvertisingField: advertising,
		HidingField:      hiding,
		PublicGroup:      s.PublicGroup,
		Categories:       s.Categories,
		HideBefore:       res.Now,
		Limit:            s.BatchSize,
	})
	if err != nil {
		u.logger.Error("select failed", "tick_id", res.TickID, "err", err)
		res.Outcome = OutcomeNoCandidates
		u.notify(ctx, res, events.LevelError, StepSelect, "Advert Hiding: failed to select content items.")
		return nil
	}
	if len(ids) == 0 {
		res.Outcome = OutcomeNoCandidates
		return nil
	}
	res.Candidates = ids

	changed, err := u.applier.Apply(ctx, ids, s.PublicGroup, s.RegisteredGroup)
	if err != nil {
		u.logger.Error("update failed", "tick_id", res.TickID, "ids", model.JoinIDs(ids), "err", err)
		res.Outcome = OutcomeUpdateFailed
		u.notify(ctx, res, events.LevelError, StepUpdate, "Advert Hiding: failed to update content access.")
		return nil
	}
	if len(changed) == 0 {
		// Every candidate left the public group after it was selected.
		u.logger.Info("no candidate still public", "tick_id", res.TickID, "ids", model.JoinIDs(ids))
		res.Outcome = OutcomeNoCandidates
		return nil
	}
	res.Outcome = OutcomeUpdated
	res.Updated = changed
	res.Affected = int64(len(changed))
	metrics.ItemsDemoted.Add(float64(len(changed)))
	u.notify(ctx, res, events.LevelInfo, "", "Demoted content items: "+model.JoinIDs(changed))

	return &events.AccessDemoted{TickID: res.TickID, IDs: changed, From: s.PublicGroup, To: s.RegisteredGroup, Time: res.Now}
}

// announce publishes a demotion and appends it to the audit trail.
func (u *Updater) announce(ctx context.Context, res *Result, d events.AccessDemoted) {
	if err := u.publisher.Publish(ctx, events.TopicAccessDemoted, d); err != nil {
		u.logger.Warn("publish access demoted failed", "tick_id", res.TickID, "err", err)
	}
	u.audit.Record(ctx, audit.Record{TickID: d.TickID, Time: d.Time, Updated: d.IDs, From: d.From, To: d.To})
}

// persist records the run time. It happens after every cycle, failed or not,
// so a broken configuration is retried once per interval instead of on
// every request.
func (u *Updater) persist(ctx context.Context, res *Result, params *model.Params) {
	params.SetLastCheck(res.Now)
	if err := u.store.SaveParams(ctx, params); err != nil {
		u.logger.Error("save params failed", "tick_id", res.TickID, "err", err)
		u.notify(ctx, res, events.LevelError, StepPersist, "Advert Hiding: failed to update the plugin parameters.")
		return
	}
	res.Persisted = true
}

func (u *Updater) notify(ctx context.Context, res *Result, level, step, msg string) {
	n := events.Notice{TickID: res.TickID, Level: level, Step: step, Message: msg, Time: res.Now}
	res.Notices = append(res.Notices, n)
	if level == events.LevelError {
		metrics.StepErrors.WithLabelValues(step).Inc()
	}
	u.notifier.Notify(ctx, n)
}

// Status is a read-only view of the gate state.
type Status struct {
	Element  string         `json:"element"`
	Folder   string         `json:"folder"`
	Settings model.Settings `json:"settings"`
	LastRun  *time.Time     `json:"last_run,omitempty"`
	NextRun  time.Time      `json:"next_run"`
	Due      bool           `json:"due"`
	Problems []string       `json:"problems,omitempty"`
}

// Status loads the current settings and reports whether a tick would run.
func (u *Updater) Status(ctx context.Context) (*Status, error) {
	params, err := u.store.LoadParams(ctx, u.element, u.folder)
	if err != nil {
		return nil, fmt.Errorf("load params: %w", err)
	}
	s, perr := params.Settings()
	st := &Status{
		Element:  u.element,
		Folder:   u.folder,
		Settings: s,
		NextRun:  s.NextRun(),
		Due:      s.Due(u.now().UTC()),
	}
	if s.LastCheck > 0 {
		t := s.LastRun()
		st.LastRun = &t
	}
	for _, err := range []error{perr, s.Validate()} {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			for _, fe := range ve.Errors {
				st.Problems = append(st.Problems, fe.Field+": "+fe.Message)
			}
		}
	}
	return st, nil
}
