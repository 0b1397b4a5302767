// Package app assembles the decision pipeline from configuration. Both
// binaries build the same pipeline; they differ only in what they bolt
// on top of it.
package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/ads"
	"github.com/ItaloOlivier/ayonne-sub000/internal/config"
	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/experiment"
	"github.com/ItaloOlivier/ayonne-sub000/internal/governance"
	"github.com/ItaloOlivier/ayonne-sub000/internal/llm"
	"github.com/ItaloOlivier/ayonne-sub000/internal/logging"
	"github.com/ItaloOlivier/ayonne-sub000/internal/meta"
	"github.com/ItaloOlivier/ayonne-sub000/internal/optimizer"
	"github.com/ItaloOlivier/ayonne-sub000/internal/orchestrator"
	"github.com/ItaloOlivier/ayonne-sub000/internal/producer"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// Pipeline is the fully wired unit graph plus direct references to the
// pieces the HTTP and worker surfaces drive.
type Pipeline struct {
	Ads          ads.Client
	LLM          *llm.Client
	Router       *protocol.Router
	Orchestrator *orchestrator.Orchestrator
	Governance   *governance.Engine
	Optimizer    *optimizer.Engine
	Experiments  *experiment.Engine
	Meta         *meta.Tracker
}

// Build wires every unit onto one router. The LLM-backed producers are
// skipped when no provider is configured; everything else is mandatory.
func Build(cfg *config.Config, log *logrus.Entry) (*Pipeline, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	adsClient, err := buildAdsClient(cfg, log)
	if err != nil {
		return nil, err
	}

	gov := governance.NewEngine(governance.Config{
		TargetCPA:             cfg.Targets.CPA,
		TargetROAS:            cfg.Targets.ROAS,
		TargetQualityScore:    cfg.Targets.QualityScore,
		TargetAdApprovalRate:  cfg.Targets.AdApprovalRate,
		TargetImpressionShare: cfg.Targets.ImpressionShare,
		DailyBudgetCeiling:    cfg.Targets.DailyBudgetCeiling,
	}, logging.Component("governance"))

	opt := optimizer.NewEngine(optimizer.Config{
		TargetCPA:         cfg.Targets.CPA,
		TargetROAS:        cfg.Targets.ROAS,
		ApprovalThreshold: cfg.Loop.ApprovalThreshold,
	}, adsClient, logging.Component("optimizer"))

	exp := experiment.NewEngine(experiment.Config{
		BaselineConversionRate:  cfg.Targets.BaselineConversionRate,
		AssumedDailyConversions: cfg.Targets.AssumedDailyConversions,
		AverageOrderValue:       cfg.Targets.AverageOrderValue,
		TargetCPA:               cfg.Targets.CPA,
	}, experiment.NewAnalyzer(), logging.Component("experiment"))

	router := protocol.NewRouter(logging.Component("protocol"))

	units := []protocol.Unit{
		producer.NewPerformanceUnit(producer.NewPerformanceProducer(adsClient, 0, logging.Component("performance"))),
		producer.NewStrategyUnit(producer.NewStrategyProducer(logging.Component("strategy"))),
		optimizer.NewUnit(opt),
		experiment.NewUnit(exp),
		governance.NewUnit(gov),
	}

	llmClient, err := llm.NewClient(&cfg.LLM)
	if err != nil {
		log.WithError(err).Warn("No LLM provider configured, creative and keyword units disabled")
	} else {
		units = append(units,
			producer.NewCreativeUnit(producer.NewCreativeProducer(llmClient, logging.Component("creative"))),
			producer.NewKeywordUnit(producer.NewKeywordProducer(llmClient, logging.Component("keyword"))),
		)
	}

	orch := orchestrator.New(orchestrator.Config{
		Phase:            domain.PipelinePhase(cfg.Loop.Phase),
		Interval:         cfg.Loop.Interval,
		ApprovalExpiry:   cfg.Loop.ApprovalExpiry,
		AutoApplyLowRisk: cfg.Loop.AutoApplyLowRisk,
	}, router, logging.Component("orchestrator"))
	units = append(units, orchestrator.NewUnit(orch))

	tracker := meta.NewTracker(logging.Component("meta"))
	orch.SetVerdictRecorder(tracker)

	for _, u := range units {
		if err := router.Register(u); err != nil {
			return nil, fmt.Errorf("register unit %s: %w", u.ID(), err)
		}
	}

	return &Pipeline{
		Ads:          adsClient,
		LLM:          llmClient,
		Router:       router,
		Orchestrator: orch,
		Governance:   gov,
		Optimizer:    opt,
		Experiments:  exp,
		Meta:         tracker,
	}, nil
}

func buildAdsClient(cfg *config.Config, log *logrus.Entry) (ads.Client, error) {
	if cfg.Ads.SeedFile == "" {
		log.Warn("ADS_SEED_FILE not set, starting with an empty sandbox account")
		return ads.NewMockClient(), nil
	}

	snapshots, err := ads.LoadSnapshots(cfg.Ads.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load ads seed: %w", err)
	}
	log.WithField("campaigns", len(snapshots)).Info("Sandbox account seeded")
	return ads.NewMockClient(snapshots...), nil
}
