package presenter

import (
	admin_handler "loanadmin/internal/handler/admin"
	collection_handler "loanadmin/internal/handler/collection"
	overdue_handler "loanadmin/internal/handler/overdue"
	private_handler "loanadmin/internal/handler/private"
	"loanadmin/internal/report"
	"loanadmin/internal/repository"
	emirepo "loanadmin/internal/repository/emi"
	loanrepo "loanadmin/internal/repository/loan"
	userrepo "loanadmin/internal/repository/user"
	adminsrv "loanadmin/internal/service/admin"
	collectionsrv "loanadmin/internal/service/collection"
	overduesrv "loanadmin/internal/service/overdue"
	privatesrv "loanadmin/internal/service/private"

	"loanadmin/config"
	"loanadmin/pkg/telemetry"

	"gorm.io/gorm"
)

type Presenter struct {
	PrivatePresenter    *private_handler.PrivateHandler
	AdminPresenter      *admin_handler.AdminHandler
	OverduePresenter    *overdue_handler.OverdueHandler
	CollectionPresenter *collection_handler.CollectionHandler

	// EmiRepository is exposed for the overdue sweeper job.
	EmiRepository repository.EmiRepository
}

func NewPresenter(
	db *gorm.DB,
	cfg *config.Config,
	tel *telemetry.OpenTelemetry,
) Presenter {
	// Repository
	userRepositoryMeter := tel.MeterProvider.Meter("user-repository-meter")
	userRepositoryTracer := tel.TracerProvider.Tracer("user-repository-tracer")
	userRepository := userrepo.NewUserRepository(
		db,
		userRepositoryMeter,
		userRepositoryTracer,
		tel.Log,
	)

	loanRepositoryMeter := tel.MeterProvider.Meter("loan-repository-meter")
	loanRepositoryTracer := tel.TracerProvider.Tracer("loan-repository-tracer")
	loanRepository := loanrepo.NewLoanRepository(
		db,
		loanRepositoryMeter,
		loanRepositoryTracer,
		tel.Log,
	)

	emiRepositoryMeter := tel.MeterProvider.Meter("emi-repository-meter")
	emiRepositoryTracer := tel.TracerProvider.Tracer("emi-repository-tracer")
	emiRepository := emirepo.NewEmiRepository(
		db,
		emiRepositoryMeter,
		emiRepositoryTracer,
		tel.Log,
	)

	// Service
	privateServiceMeter := tel.MeterProvider.Meter("private-service-meter")
	privateServiceTracer := tel.TracerProvider.Tracer("private-service-trace")
	privateService := privatesrv.NewPrivateService(
		cfg.JWT_SECRET_KEY,
		userRepository,
		privateServiceMeter,
		privateServiceTracer,
		tel.Log,
	)

	adminServiceMeter := tel.MeterProvider.Meter("admin-service-meter")
	adminServiceTracer := tel.TracerProvider.Tracer("admin-service-trace")
	adminService := adminsrv.NewAdminService(
		userRepository,
		loanRepository,
		adminServiceMeter,
		adminServiceTracer,
		tel.Log,
	)

	overdueServiceMeter := tel.MeterProvider.Meter("overdue-service-meter")
	overdueServiceTracer := tel.TracerProvider.Tracer("overdue-service-trace")
	overdueService := overduesrv.NewOverdueService(
		emiRepository,
		overdueServiceMeter,
		overdueServiceTracer,
		tel.Log,
	)

	collectionServiceMeter := tel.MeterProvider.Meter("collection-service-meter")
	collectionServiceTracer := tel.TracerProvider.Tracer("collection-service-trace")
	collectionService := collectionsrv.NewCollectionService(
		emiRepository,
		loanRepository,
		collectionServiceMeter,
		collectionServiceTracer,
		tel.Log,
	)

	exporter := report.NewExporter(overdueService, tel.Log)

	// Handler
	privateHandlerMeter := tel.MeterProvider.Meter("private-handler-meter")
	privateHandlerTracer := tel.TracerProvider.Tracer("private-handler-trace")
	privateHandler := private_handler.NewPrivateHandler(
		privateService,
		privateHandlerMeter,
		privateHandlerTracer,
		tel.Log,
	)

	adminHandlerMeter := tel.MeterProvider.Meter("admin-handler-meter")
	adminHandlerTracer := tel.TracerProvider.Tracer("admin-handler-trace")
	adminHandler := admin_handler.NewAdminHandler(
		adminService,
		adminHandlerMeter,
		adminHandlerTracer,
		tel.Log,
	)

	overdueHandlerMeter := tel.MeterProvider.Meter("overdue-handler-meter")
	overdueHandlerTracer := tel.TracerProvider.Tracer("overdue-handler-trace")
	overdueHandler := overdue_handler.NewOverdueHandler(
		overdueService,
		exporter,
		overdueHandlerMeter,
		overdueHandlerTracer,
		tel.Log,
	)

	collectionHandlerMeter := tel.MeterProvider.Meter("collection-handler-meter")
	collectionHandlerTracer := tel.TracerProvider.Tracer("collection-handler-trace")
	collectionHandler := collection_handler.NewCollectionHandler(
		collectionService,
		collectionHandlerMeter,
		collectionHandlerTracer,
		tel.Log,
	)

	return Presenter{
		PrivatePresenter:    privateHandler,
		AdminPresenter:      adminHandler,
		OverduePresenter:    overdueHandler,
		CollectionPresenter: collectionHandler,
		EmiRepository:       emiRepository,
	}
}
