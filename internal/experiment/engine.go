package experiment

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

var (
	// ErrExperimentNotFound is returned for lookups of unknown ids.
	ErrExperimentNotFound = errors.New("experiment: not found")

	// ErrInvalidTransition is returned when a lifecycle call does not
	// apply to the experiment's current status.
	ErrInvalidTransition = errors.New("experiment: invalid status transition")

	// ErrUnknownMetric is returned when a design names a metric the
	// engine cannot read from an observation tuple.
	ErrUnknownMetric = errors.New("experiment: unknown metric")
)

const (
	alphaLevel          = 0.05
	defaultDurationDays = 14
	defaultTrafficSplit = 0.5

	// observationRetention bounds per-experiment history; oldest
	// entries are dropped first.
	observationRetention = 500
)

// Default safeguard thresholds, applied when a design names none.
const (
	spendCapRatio      = 1.5
	cpaCapRatio        = 2.0
	conversionFloorMin = 1
	durationLimitDays  = 30
)

// Config carries the account assumptions the engine designs against.
type Config struct {
	BaselineConversionRate  float64
	AssumedDailyConversions float64
	AverageOrderValue       float64
	TargetCPA               float64
}

func (c *Config) withDefaults() {
	if c.BaselineConversionRate <= 0 {
		c.BaselineConversionRate = 0.02
	}
	if c.AssumedDailyConversions <= 0 {
		c.AssumedDailyConversions = 10
	}
	if c.AverageOrderValue <= 0 {
		c.AverageOrderValue = 65
	}
	if c.TargetCPA <= 0 {
		c.TargetCPA = 40
	}
}

// DesignRequest is the caller-supplied half of an experiment design.
// Sample size and runtime are derived, never accepted from the caller.
type DesignRequest struct {
	Hypothesis       string             `json:"hypothesis"`
	PrimaryMetric    domain.MetricDef   `json:"primary_metric"`
	SecondaryMetrics []domain.MetricDef `json:"secondary_metrics,omitempty"`
	Control          domain.Variant     `json:"control"`
	Treatment        domain.Variant     `json:"treatment"`
	TrafficSplit     float64            `json:"traffic_split,omitempty"`
	DurationDays     int                `json:"duration_days,omitempty"`
	DailyBudget      float64            `json:"daily_budget"`
	Safeguards       []domain.Safeguard `json:"safeguards,omitempty"`
}

// Engine owns experiment designs and their observation histories. All
// methods are safe for concurrent use; everything returned is a copy.
type Engine struct {
	mu           sync.Mutex
	cfg          Config
	analyzer     *Analyzer
	experiments  map[string]*domain.ExperimentDesign
	order        []string
	observations map[string][]domain.ExperimentObservation
	log          *logrus.Entry
}

// NewEngine builds an engine. A nil analyzer gets the default
// strategies.
func NewEngine(cfg Config, analyzer *Analyzer, log *logrus.Entry) *Engine {
	cfg.withDefaults()
	if analyzer == nil {
		analyzer = NewAnalyzer()
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		cfg:          cfg,
		analyzer:     analyzer,
		experiments:  make(map[string]*domain.ExperimentDesign),
		observations: make(map[string][]domain.ExperimentObservation),
		log:          log,
	}
}

// Design derives a powered experiment from the request and stores it in
// draft status.
func (e *Engine) Design(req DesignRequest) (*domain.ExperimentDesign, error) {
	if req.Hypothesis == "" {
		return nil, fmt.Errorf("design experiment: hypothesis is required")
	}
	if req.PrimaryMetric.MinDetectableEffect <= 0 {
		return nil, fmt.Errorf("design experiment: minimum detectable effect must be positive")
	}
	if _, ok := metricValue(req.PrimaryMetric.Name, domain.VariantMetrics{}); !ok {
		return nil, fmt.Errorf("design experiment: %q: %w", req.PrimaryMetric.Name, ErrUnknownMetric)
	}
	if req.PrimaryMetric.Direction == "" {
		req.PrimaryMetric.Direction = domain.DirectionIncrease
	}
	if req.TrafficSplit <= 0 || req.TrafficSplit >= 1 {
		req.TrafficSplit = defaultTrafficSplit
	}
	if req.DurationDays <= 0 {
		req.DurationDays = defaultDurationDays
	}

	sampleSize := MinimumSampleSize(e.cfg.BaselineConversionRate, req.PrimaryMetric.MinDetectableEffect)
	runtimeDays := MinimumRuntimeDays(sampleSize, e.cfg.AssumedDailyConversions)

	totalBudget := req.DailyBudget * float64(req.DurationDays)
	safeguards := append([]domain.Safeguard(nil), req.Safeguards...)
	if len(safeguards) == 0 {
		safeguards = e.defaultSafeguards(totalBudget)
	}

	design := &domain.ExperimentDesign{
		ID:               uuid.New().String(),
		Hypothesis:       req.Hypothesis,
		PrimaryMetric:    req.PrimaryMetric,
		SecondaryMetrics: append([]domain.MetricDef(nil), req.SecondaryMetrics...),
		Control:          req.Control,
		Treatment:        req.Treatment,
		TrafficSplit:     req.TrafficSplit,
		MinRuntimeDays:   runtimeDays,
		MinSampleSize:    sampleSize,
		DurationDays:     req.DurationDays,
		Budget: domain.ExperimentBudget{
			Daily:    req.DailyBudget,
			Total:    totalBudget,
			Isolated: true,
		},
		Safeguards: safeguards,
		Status:     domain.ExperimentStatusDraft,
		CreatedAt:  time.Now(),
	}

	e.mu.Lock()
	e.experiments[design.ID] = design
	e.order = append(e.order, design.ID)
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"experiment_id":    design.ID,
		"metric":           design.PrimaryMetric.Name,
		"min_sample_size":  design.MinSampleSize,
		"min_runtime_days": design.MinRuntimeDays,
	}).Info("Designed experiment")

	out := copyDesign(design)
	return &out, nil
}

// defaultSafeguards is the guard rail set for designs that specify
// none: runaway spend or age stops the test, a runaway CPA pauses it,
// and a conversion dry spell raises an alert.
func (e *Engine) defaultSafeguards(totalBudget float64) []domain.Safeguard {
	return []domain.Safeguard{
		{Type: domain.SafeguardSpendCap, Threshold: totalBudget * spendCapRatio, Action: domain.SafeguardActionStop},
		{Type: domain.SafeguardCPACap, Threshold: e.cfg.TargetCPA * cpaCapRatio, Action: domain.SafeguardActionPause},
		{Type: domain.SafeguardConversionFloor, Threshold: conversionFloorMin, Action: domain.SafeguardActionAlert},
		{Type: domain.SafeguardDurationLimit, Threshold: durationLimitDays, Action: domain.SafeguardActionStop},
	}
}

// Start moves a draft experiment to running.
func (e *Engine) Start(id string) error {
	return e.transition(id, "start", domain.ExperimentStatusRunning, func(d *domain.ExperimentDesign) error {
		if d.Status != domain.ExperimentStatusDraft {
			return fmt.Errorf("start experiment %s: status %s: %w", id, d.Status, ErrInvalidTransition)
		}
		now := time.Now()
		d.StartedAt = &now
		return nil
	})
}

// Pause suspends a running experiment.
func (e *Engine) Pause(id string) error {
	return e.transition(id, "pause", domain.ExperimentStatusPaused, func(d *domain.ExperimentDesign) error {
		if d.Status != domain.ExperimentStatusRunning {
			return fmt.Errorf("pause experiment %s: status %s: %w", id, d.Status, ErrInvalidTransition)
		}
		return nil
	})
}

// Resume restarts a paused experiment.
func (e *Engine) Resume(id string) error {
	return e.transition(id, "resume", domain.ExperimentStatusRunning, func(d *domain.ExperimentDesign) error {
		if d.Status != domain.ExperimentStatusPaused {
			return fmt.Errorf("resume experiment %s: status %s: %w", id, d.Status, ErrInvalidTransition)
		}
		return nil
	})
}

// Cancel abandons an experiment that has not completed.
func (e *Engine) Cancel(id, reason string) error {
	return e.transition(id, "cancel", domain.ExperimentStatusCancelled, func(d *domain.ExperimentDesign) error {
		switch d.Status {
		case domain.ExperimentStatusDraft, domain.ExperimentStatusRunning, domain.ExperimentStatusPaused:
		default:
			return fmt.Errorf("cancel experiment %s: status %s: %w", id, d.Status, ErrInvalidTransition)
		}
		now := time.Now()
		d.ConcludedAt = &now
		d.Conclusion = reason
		return nil
	})
}

// Conclude completes an experiment. With an empty conclusion the engine
// derives one from the latest observation.
func (e *Engine) Conclude(id, conclusion string) (*domain.ExperimentDesign, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.experiments[id]
	if !ok {
		return nil, fmt.Errorf("conclude experiment %s: %w", id, ErrExperimentNotFound)
	}
	switch d.Status {
	case domain.ExperimentStatusRunning, domain.ExperimentStatusPaused:
	default:
		return nil, fmt.Errorf("conclude experiment %s: status %s: %w", id, d.Status, ErrInvalidTransition)
	}

	if conclusion == "" {
		conclusion = e.deriveConclusionLocked(id)
	}
	now := time.Now()
	d.Status = domain.ExperimentStatusCompleted
	d.Conclusion = conclusion
	d.ConcludedAt = &now

	e.log.WithFields(logrus.Fields{
		"experiment_id": id,
		"conclusion":    conclusion,
	}).Info("Concluded experiment")

	out := copyDesign(d)
	return &out, nil
}

func (e *Engine) deriveConclusionLocked(id string) string {
	obs := e.observations[id]
	if len(obs) == 0 {
		return "concluded without observations"
	}
	last := obs[len(obs)-1]
	switch last.Winner {
	case domain.WinnerTreatment:
		return fmt.Sprintf("treatment won with %.1f%% lift at %.0f%% confidence", last.Lift*100, last.Confidence*100)
	case domain.WinnerControl:
		return fmt.Sprintf("control held with %.1f%% lift at %.0f%% confidence", last.Lift*100, last.Confidence*100)
	default:
		return "no significant difference between arms"
	}
}

func (e *Engine) transition(id, op string, to domain.ExperimentStatus, check func(*domain.ExperimentDesign) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.experiments[id]
	if !ok {
		return fmt.Errorf("%s experiment %s: %w", op, id, ErrExperimentNotFound)
	}
	if err := check(d); err != nil {
		return err
	}
	d.Status = to

	e.log.WithFields(logrus.Fields{
		"experiment_id": id,
		"status":        to,
	}).Info("Experiment status changed")
	return nil
}

// RecordObservation analyzes one control/treatment snapshot pair and
// appends the result to the experiment's history. Observations are only
// accepted while the experiment runs, and must arrive in chronological
// order; the latest is always the last element.
func (e *Engine) RecordObservation(id string, control, treatment domain.VariantMetrics) (*domain.ExperimentObservation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.experiments[id]
	if !ok {
		return nil, fmt.Errorf("record observation for %s: %w", id, ErrExperimentNotFound)
	}
	if d.Status != domain.ExperimentStatusRunning {
		return nil, fmt.Errorf("record observation for %s: status %s: %w", id, d.Status, ErrInvalidTransition)
	}

	controlValue, _ := metricValue(d.PrimaryMetric.Name, control)
	treatmentValue, _ := metricValue(d.PrimaryMetric.Name, treatment)
	cmp := e.analyzer.Compare(controlValue, treatmentValue)

	statSig := cmp.PValue < alphaLevel
	practSig := math.Abs(cmp.Lift) >= d.PrimaryMetric.MinDetectableEffect

	winner := domain.WinnerNone
	if statSig {
		winner = winnerFor(d.PrimaryMetric.Direction, controlValue, treatmentValue)
	}

	minArm := math.Min(control.Conversions, treatment.Conversions)
	sampleSizeMet := minArm >= float64(d.MinSampleSize)

	obs := domain.ExperimentObservation{
		ExperimentID:             id,
		Control:                  control,
		Treatment:                treatment,
		PValue:                   cmp.PValue,
		Confidence:               cmp.Confidence,
		Lift:                     cmp.Lift,
		LiftLower:                cmp.LiftLower,
		LiftUpper:                cmp.LiftUpper,
		StatisticallySignificant: statSig,
		PracticallySignificant:   practSig,
		Winner:                   winner,
		SampleSizeMet:            sampleSizeMet,
		SafeguardBreaches:        evaluateSafeguards(d, control, treatment, time.Now()),
		Recommendation:           recommend(statSig, practSig, winner, minArm, d.MinSampleSize),
		ObservedAt:               time.Now(),
	}

	e.observations[id] = append(e.observations[id], obs)
	if len(e.observations[id]) > observationRetention {
		e.observations[id] = e.observations[id][len(e.observations[id])-observationRetention:]
	}

	e.log.WithFields(logrus.Fields{
		"experiment_id":  id,
		"p_value":        obs.PValue,
		"lift":           obs.Lift,
		"winner":         obs.Winner,
		"recommendation": obs.Recommendation,
	}).Info("Recorded observation")

	out := obs
	return &out, nil
}

// winnerFor names the better arm given which direction counts as an
// improvement.
func winnerFor(direction domain.MetricDirection, control, treatment float64) domain.ExperimentWinner {
	treatmentBetter := treatment > control
	if direction == domain.DirectionDecrease {
		treatmentBetter = treatment < control
	}
	if treatmentBetter {
		return domain.WinnerTreatment
	}
	return domain.WinnerControl
}

func recommend(statSig, practSig bool, winner domain.ExperimentWinner, minArm float64, minSampleSize int) domain.ObservationRecommendation {
	switch {
	case !statSig && minArm < float64(minSampleSize)/2:
		return domain.RecommendContinue
	case !statSig:
		return domain.RecommendInconclusive
	case practSig && winner == domain.WinnerTreatment:
		return domain.RecommendStopWinner
	case practSig && winner == domain.WinnerControl:
		return domain.RecommendStopLoser
	default:
		return domain.RecommendInconclusive
	}
}

// evaluateSafeguards reports every tripped safeguard as a short
// human-readable string.
func evaluateSafeguards(d *domain.ExperimentDesign, control, treatment domain.VariantMetrics, now time.Time) []string {
	var breaches []string
	totalSpend := control.Cost + treatment.Cost
	totalConversions := control.Conversions + treatment.Conversions

	for _, sg := range d.Safeguards {
		switch sg.Type {
		case domain.SafeguardSpendCap:
			if totalSpend > sg.Threshold {
				breaches = append(breaches, fmt.Sprintf("spend_cap: spent %.2f of %.2f, action %s", totalSpend, sg.Threshold, sg.Action))
			}
		case domain.SafeguardCPACap:
			worst := math.Max(armCPA(control), armCPA(treatment))
			if worst > sg.Threshold {
				breaches = append(breaches, fmt.Sprintf("cpa_cap: CPA %.2f over cap %.2f, action %s", worst, sg.Threshold, sg.Action))
			}
		case domain.SafeguardConversionFloor:
			if totalConversions < sg.Threshold {
				breaches = append(breaches, fmt.Sprintf("conversion_floor: %.0f conversions under floor %.0f, action %s", totalConversions, sg.Threshold, sg.Action))
			}
		case domain.SafeguardDurationLimit:
			if d.StartedAt != nil {
				days := now.Sub(*d.StartedAt).Hours() / 24
				if days > sg.Threshold {
					breaches = append(breaches, fmt.Sprintf("duration_limit: running %.0f days over limit %.0f, action %s", days, sg.Threshold, sg.Action))
				}
			}
		}
	}
	return breaches
}

func armCPA(m domain.VariantMetrics) float64 {
	if m.CPA > 0 {
		return m.CPA
	}
	if m.Conversions > 0 {
		return m.Cost / m.Conversions
	}
	return 0
}

// Get returns a copy of one experiment design.
func (e *Engine) Get(id string) (*domain.ExperimentDesign, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.experiments[id]
	if !ok {
		return nil, fmt.Errorf("get experiment %s: %w", id, ErrExperimentNotFound)
	}
	out := copyDesign(d)
	return &out, nil
}

// List returns copies of every design in creation order.
func (e *Engine) List() []domain.ExperimentDesign {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.ExperimentDesign, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, copyDesign(e.experiments[id]))
	}
	return out
}

// RunningCount reports how many experiments are currently running.
func (e *Engine) RunningCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, d := range e.experiments {
		if d.Status == domain.ExperimentStatusRunning {
			n++
		}
	}
	return n
}

// Observations returns a copy of an experiment's history, oldest first.
func (e *Engine) Observations(id string) ([]domain.ExperimentObservation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.experiments[id]; !ok {
		return nil, fmt.Errorf("observations for %s: %w", id, ErrExperimentNotFound)
	}
	out := make([]domain.ExperimentObservation, len(e.observations[id]))
	copy(out, e.observations[id])
	return out, nil
}

// RolloutRecommendation derives a ship/abandon call from the latest
// observation.
func (e *Engine) RolloutRecommendation(id string) (*domain.RolloutRecommendation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.experiments[id]
	if !ok {
		return nil, fmt.Errorf("rollout recommendation for %s: %w", id, ErrExperimentNotFound)
	}
	obs := e.observations[id]
	if len(obs) == 0 {
		return nil, fmt.Errorf("rollout recommendation for %s: no observations recorded", id)
	}
	last := obs[len(obs)-1]

	rec := &domain.RolloutRecommendation{
		ExperimentID: id,
		Winner:       last.Winner,
		Confidence:   last.Confidence,
		Lift:         last.Lift,
		GeneratedAt:  time.Now(),
	}

	// Monthly extrapolation from the control arm, annualized.
	monthlyConversions := last.Control.Conversions * 4
	rec.ExpectedAnnualImpact = last.Lift * monthlyConversions * 12 * e.cfg.AverageOrderValue

	switch {
	case !last.SampleSizeMet:
		rec.Decision = domain.RolloutExtend
		rec.Reasoning = fmt.Sprintf("minimum sample size %d not reached, keep collecting", d.MinSampleSize)
	case last.Winner == domain.WinnerTreatment && last.Confidence >= 0.95:
		rec.Decision = domain.RolloutRollout
		rec.Reasoning = fmt.Sprintf("treatment won with %.1f%% lift at %.0f%% confidence", last.Lift*100, last.Confidence*100)
	case last.Winner == domain.WinnerControl && last.Confidence >= 0.95:
		rec.Decision = domain.RolloutAbandon
		rec.Reasoning = fmt.Sprintf("control outperformed treatment at %.0f%% confidence", last.Confidence*100)
	case last.Confidence >= 0.80:
		rec.Decision = domain.RolloutIterate
		rec.Reasoning = "directional signal without a conclusive winner, iterate on the variant"
	default:
		rec.Decision = domain.RolloutExtend
		rec.Reasoning = "no clear signal yet, extend the test"
	}
	return rec, nil
}

func copyDesign(d *domain.ExperimentDesign) domain.ExperimentDesign {
	out := *d
	out.SecondaryMetrics = append([]domain.MetricDef(nil), d.SecondaryMetrics...)
	out.Safeguards = append([]domain.Safeguard(nil), d.Safeguards...)
	if d.StartedAt != nil {
		t := *d.StartedAt
		out.StartedAt = &t
	}
	if d.ConcludedAt != nil {
		t := *d.ConcludedAt
		out.ConcludedAt = &t
	}
	return out
}
