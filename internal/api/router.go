package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/api/handler"
	"github.com/ItaloOlivier/ayonne-sub000/internal/experiment"
	"github.com/ItaloOlivier/ayonne-sub000/internal/governance"
	"github.com/ItaloOlivier/ayonne-sub000/internal/meta"
	"github.com/ItaloOlivier/ayonne-sub000/internal/orchestrator"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
	"github.com/ItaloOlivier/ayonne-sub000/internal/queue"
	"github.com/ItaloOlivier/ayonne-sub000/internal/storage"
)

// Deps carries everything the HTTP surface fronts. Archive, Queue and
// Meta are optional; their routes and behaviors degrade when absent.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Protocol     *protocol.Router
	Governance   *governance.Engine
	Experiments  *experiment.Engine
	Archive      *storage.Archive
	Queue        *queue.RedisQueue
	Meta         *meta.Tracker
	Log          *logrus.Entry
}

type Router struct {
	engine *gin.Engine
}

func NewRouter(deps Deps) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	loopHandler := handler.NewLoopHandler(deps.Orchestrator)
	approvalHandler := handler.NewApprovalHandler(deps.Orchestrator)
	experimentHandler := handler.NewExperimentHandler(deps.Experiments, deps.Archive, deps.Log)
	optimizationHandler := handler.NewOptimizationHandler(deps.Protocol)
	governanceHandler := handler.NewGovernanceHandler(deps.Governance, deps.Protocol)
	producerHandler := handler.NewProducerHandler(deps.Protocol)
	messageHandler := handler.NewMessageHandler(deps.Protocol, deps.Queue)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/status", loopHandler.Status)
		v1.GET("/agents", messageHandler.Agents)
		v1.POST("/messages", messageHandler.Send)

		loop := v1.Group("/loop")
		{
			loop.POST("/run", loopHandler.Run)
			loop.GET("/history", loopHandler.History)
			loop.POST("/phase", loopHandler.SetPhase)
		}

		approvals := v1.Group("/approvals")
		{
			approvals.GET("", approvalHandler.List)
			approvals.GET("/:id", approvalHandler.GetByID)
			approvals.POST("/:id/approve", approvalHandler.Approve)
			approvals.POST("/:id/reject", approvalHandler.Reject)
		}

		experiments := v1.Group("/experiments")
		{
			experiments.POST("", experimentHandler.Create)
			experiments.GET("", experimentHandler.List)
			experiments.GET("/:id", experimentHandler.GetByID)
			experiments.POST("/:id/start", experimentHandler.Start)
			experiments.POST("/:id/pause", experimentHandler.Pause)
			experiments.POST("/:id/resume", experimentHandler.Resume)
			experiments.POST("/:id/cancel", experimentHandler.Cancel)
			experiments.POST("/:id/conclude", experimentHandler.Conclude)
			experiments.POST("/:id/observations", experimentHandler.Observe)
			experiments.GET("/:id/observations", experimentHandler.Observations)
			experiments.GET("/:id/recommendation", experimentHandler.Recommendation)
		}

		optimization := v1.Group("/optimization")
		{
			optimization.POST("/plan", optimizationHandler.Plan)
			optimization.POST("/scaling", optimizationHandler.Scaling)
		}

		gov := v1.Group("/governance")
		{
			gov.POST("/checks", governanceHandler.RunChecks)
			gov.GET("/compliance", governanceHandler.Compliance)
			gov.GET("/health", governanceHandler.Health)
			gov.GET("/alerts", governanceHandler.Alerts)
			gov.POST("/alerts/:id/acknowledge", governanceHandler.AcknowledgeAlert)
			gov.GET("/changelog", governanceHandler.ChangeLog)
		}

		performance := v1.Group("/performance")
		{
			performance.GET("/summary", producerHandler.Summary)
			performance.GET("/campaigns/:id", producerHandler.Campaign)
		}

		v1.POST("/creative/drafts", producerHandler.DraftAds)
		v1.POST("/keywords/suggestions", producerHandler.SuggestKeywords)
		v1.POST("/strategy/budget-split", producerHandler.BudgetSplit)

		if deps.Meta != nil {
			metaHandler := handler.NewMetaHandler(deps.Meta)
			metaGroup := v1.Group("/meta")
			{
				metaGroup.GET("/calibration", metaHandler.Calibration)
				metaGroup.GET("/accuracy", metaHandler.Accuracy)
				metaGroup.GET("/blind-spots", metaHandler.BlindSpots)
			}
		}

		if deps.Archive != nil {
			archiveHandler := handler.NewArchiveHandler(deps.Archive)
			archive := v1.Group("/archive")
			{
				archive.GET("/loops", archiveHandler.LoopResults)
				archive.GET("/approvals", archiveHandler.Approvals)
				archive.GET("/changelog", archiveHandler.ChangeLog)
				archive.GET("/experiments", archiveHandler.Experiments)
			}
		}
	}

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
