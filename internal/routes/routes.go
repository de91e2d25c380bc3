package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/tapcard-io/scheduler/internal/config"
	"github.com/tapcard-io/scheduler/internal/handlers"
	infraRepo "github.com/tapcard-io/scheduler/internal/infra/repository"
	"github.com/tapcard-io/scheduler/internal/metering"
	"github.com/tapcard-io/scheduler/internal/middleware"
	"github.com/tapcard-io/scheduler/internal/notify"
	ucScheduling "github.com/tapcard-io/scheduler/internal/usecase/scheduling"
	"github.com/tapcard-io/scheduler/internal/verify"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {

	// ======================================================
	// MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.CORSMiddleware())

	// ======================================================
	// INFRA (SINGLETONS)
	// ======================================================
	schedulingRepo := infraRepo.NewSchedulingGormRepository(db)

	notifyStore := notify.NewStore(db)
	notifyDispatcher := notify.NewDispatcher(notifyStore)

	meter := metering.NewGormRecorder(db)
	verifier := verify.New(rdb)

	// ======================================================
	// USE CASES
	// ======================================================
	createServiceUC := ucScheduling.NewCreateService(schedulingRepo)

	availabilityUC := ucScheduling.NewGetAvailability(schedulingRepo)

	bookingUC := ucScheduling.NewCreateBooking(schedulingRepo, notifyDispatcher)

	confirmUC := ucScheduling.NewConfirmAppointment(schedulingRepo, notifyDispatcher, meter)
	denyUC := ucScheduling.NewDenyAppointment(schedulingRepo)
	cancelUC := ucScheduling.NewCancelAppointment(schedulingRepo, notifyDispatcher)
	noShowUC := ucScheduling.NewMarkNoShow(schedulingRepo)

	requestRescheduleUC := ucScheduling.NewRequestReschedule(
		schedulingRepo,
		availabilityUC,
		notifyDispatcher,
	)
	approveRescheduleUC := ucScheduling.NewApproveReschedule(
		schedulingRepo,
		availabilityUC,
		notifyDispatcher,
		meter,
	)
	rejectRescheduleUC := ucScheduling.NewRejectReschedule(schedulingRepo, notifyDispatcher)

	// ======================================================
	// HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(db, cfg)
	cardHandler := handlers.NewCardHandler(db)
	serviceHandler := handlers.NewServiceHandler(db, createServiceUC)

	appointmentHandler := handlers.NewAppointmentHandler(
		db,
		availabilityUC,
		confirmUC,
		denyUC,
		cancelUC,
		noShowUC,
	)

	publicHandler := handlers.NewPublicHandler(
		db,
		availabilityUC,
		bookingUC,
		verifier,
		notifyDispatcher,
	)

	viewerHandler := handlers.NewViewerHandler(
		db,
		availabilityUC,
		cancelUC,
		requestRescheduleUC,
		verifier,
	)

	rescheduleHandler := handlers.NewRescheduleHandler(
		schedulingRepo,
		approveRescheduleUC,
		rejectRescheduleUC,
	)

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// AUTH
		// ------------------------------
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// ------------------------------
		// OWNER (JWT)
		// ------------------------------
		me := api.Group("/me")
		me.Use(middleware.AuthMiddleware(cfg))
		{
			me.GET("/cards", cardHandler.List)
			me.PATCH("/cards/:cardId", cardHandler.Update)

			me.POST("/cards/:cardId/services", serviceHandler.Create)
			me.GET("/cards/:cardId/services", serviceHandler.List)

			me.PATCH("/services/:serviceId", serviceHandler.Update)
			me.DELETE("/services/:serviceId", serviceHandler.Delete)

			me.POST("/services/:serviceId/availability", serviceHandler.CreateAvailability)
			me.GET("/services/:serviceId/availability", serviceHandler.ListAvailability)
			me.DELETE("/services/:serviceId/availability/:ruleId", serviceHandler.DeleteAvailability)

			me.POST("/services/:serviceId/options", serviceHandler.CreateOption)
			me.GET("/services/:serviceId/options", serviceHandler.ListOptions)
			me.DELETE("/services/:serviceId/options/:optionId", serviceHandler.DeleteOption)

			me.GET("/services/:serviceId/slots", appointmentHandler.Slots)

			me.GET("/appointments", appointmentHandler.List)
			me.GET("/appointments/:appointmentId", appointmentHandler.Detail)
			me.POST("/appointments/:appointmentId/confirm", appointmentHandler.Confirm)
			me.POST("/appointments/:appointmentId/deny", appointmentHandler.Deny)
			me.POST("/appointments/:appointmentId/cancel", appointmentHandler.Cancel)
			me.POST("/appointments/:appointmentId/no-show", appointmentHandler.NoShow)

			me.GET("/reschedules", rescheduleHandler.List)
			me.POST("/reschedules/:requestId/approve", rescheduleHandler.Approve)
			me.POST("/reschedules/:requestId/reject", rescheduleHandler.Reject)
		}

		// ------------------------------
		// PUBLIC BOOKING PAGE
		// ------------------------------
		public := api.Group("/public/:nickname")
		{
			public.GET("/services", publicHandler.ListServices)
			public.GET("/services/:serviceId/options", publicHandler.ListOptions)
			public.GET("/services/:serviceId/slots", publicHandler.Slots)

			public.POST("/services/:serviceId/send-code", publicHandler.SendCode)
			public.POST("/services/:serviceId/verify-code", publicHandler.VerifyCode)

			public.POST("/services/:serviceId/appointments", publicHandler.CreateBooking)
		}

		// ------------------------------
		// VIEWER (PUBLIC CODE + LAST4)
		// ------------------------------
		order := api.Group("/order/:code")
		{
			order.POST("/verify", viewerHandler.Verify)

			order.GET("", viewerHandler.Detail)
			order.POST("/cancel", viewerHandler.Cancel)
			order.GET("/slots", viewerHandler.Slots)
			order.POST("/reschedule", viewerHandler.RequestReschedule)
		}
	}
}
