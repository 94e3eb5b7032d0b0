package dig_container

import (
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/cblms/apps/api/echo"
	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/cohort"
	"github.com/trezcool/cblms/core/competency"
	"github.com/trezcool/cblms/core/report"
	"github.com/trezcool/cblms/core/submission"
	"github.com/trezcool/cblms/core/trash"
	"github.com/trezcool/cblms/core/user"
	emailsvc "github.com/trezcool/cblms/services/email"
	logsvc "github.com/trezcool/cblms/services/logger"
	"github.com/trezcool/cblms/services/ratelimit"
	"github.com/trezcool/cblms/storage/database"
	inmemdb "github.com/trezcool/cblms/storage/database/inmem"
	sqlxrepos "github.com/trezcool/cblms/storage/database/sqlx"
)

const engineInmem = "inmem"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// DBParam holds the postgres handle; it is nil with the in-memory engine.
type DBParam struct {
	dig.In
	DB *sqlx.DB `optional:"true"`
}

// rateLimitStores are both nil when rate limiting is disabled.
type rateLimitStores struct {
	dig.Out
	API  middleware.RateLimiterStore `name:"apiRateLimit"`
	Auth middleware.RateLimiterStore `name:"authRateLimit"`
}

type serverParams struct {
	dig.In

	Conf               *core.Config
	Logger             core.Logger
	Validate           *validator.Validate
	Translator         ut.Translator
	RateLimitStore     middleware.RateLimiterStore `name:"apiRateLimit"`
	AuthRateLimitStore middleware.RateLimiterStore `name:"authRateLimit"`

	UserSvc       *user.Service
	CohortSvc     *cohort.Service
	ClassSvc      *class.Service
	AssignmentSvc *assignment.Service
	SubmissionSvc *submission.Service
	CompetencySvc *competency.Service
	ReportSvc     *report.Service
	TrashSvc      *trash.Service
}

func newLogger(zl *zap.Logger, conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(zl.Named("api"), conf)
}

func newCoreLogger(l *logsvc.RollbarLogger) core.Logger {
	return l
}

func newDBLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("db"), conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newRateLimitStores(conf *core.Config, client *redis.Client) rateLimitStores {
	if conf.RateLimit.Disabled {
		return rateLimitStores{}
	}
	return rateLimitStores{
		API:  ratelimit.NewStore(client, "api", conf.RateLimit.Requests, conf.RateLimit.Window),
		Auth: ratelimit.NewStore(client, "login", conf.RateLimit.AuthRequests, conf.RateLimit.Window),
	}
}

func newClassService(repo class.Repository, usrSvc *user.Service, cohortSvc *cohort.Service) *class.Service {
	return class.NewService(repo, usrSvc, cohortSvc)
}

func newAssignmentService(repo assignment.Repository, classSvc *class.Service) *assignment.Service {
	return assignment.NewService(repo, classSvc)
}

func newSubmissionService(
	repo submission.Repository,
	asgSvc *assignment.Service,
	usrSvc *user.Service,
	mailSvc core.EmailService,
) *submission.Service {
	return submission.NewService(repo, asgSvc, usrSvc, mailSvc)
}

func newReportService(
	repo report.Repository,
	classSvc *class.Service,
	usrSvc *user.Service,
	mailSvc core.EmailService,
) *report.Service {
	return report.NewService(repo, classSvc, usrSvc, mailSvc)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:               p.Conf,
		Logger:             p.Logger,
		Validate:           p.Validate,
		Translator:         p.Translator,
		RateLimitStore:     p.RateLimitStore,
		AuthRateLimitStore: p.AuthRateLimitStore,
		UserSvc:            p.UserSvc,
		CohortSvc:          p.CohortSvc,
		ClassSvc:           p.ClassSvc,
		AssignmentSvc:      p.AssignmentSvc,
		SubmissionSvc:      p.SubmissionSvc,
		CompetencySvc:      p.CompetencySvc,
		ReportSvc:          p.ReportSvc,
		TrashSvc:           p.TrashSvc,
	})
}

// New returns a new dependency injection dig.Container.
// DATABASE_ENGINE=inmem swaps the postgres repositories for the in-memory ones.
func New() *dig.Container {
	c := dig.New()
	conf := core.NewConfig()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(logsvc.NewZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newCoreLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(ratelimit.NewRedisClient))
	must(c.Provide(newRateLimitStores))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))

	if conf.Database.Engine == engineInmem {
		provideInmemRepos(c)
	} else {
		provideSqlxRepos(c)
	}

	must(c.Provide(user.NewService))
	must(c.Provide(cohort.NewService))
	must(c.Provide(newClassService))
	must(c.Provide(newAssignmentService))
	must(c.Provide(newSubmissionService))
	must(c.Provide(competency.NewService))
	must(c.Provide(newReportService))
	must(c.Provide(trash.NewService))
	must(c.Provide(newServer))

	return c
}

func provideInmemRepos(c *dig.Container) {
	must(c.Provide(inmemdb.Open))
	must(c.Provide(inmemdb.NewUserRepository))
	must(c.Provide(inmemdb.NewCohortRepository))
	must(c.Provide(inmemdb.NewClassRepository))
	must(c.Provide(inmemdb.NewAssignmentRepository))
	must(c.Provide(inmemdb.NewSubmissionRepository))
	must(c.Provide(inmemdb.NewCompetencyRepository))
	must(c.Provide(inmemdb.NewReportRepository))
}

func provideSqlxRepos(c *dig.Container) {
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewCohortRepository))
	must(c.Provide(sqlxrepos.NewClassRepository))
	must(c.Provide(sqlxrepos.NewAssignmentRepository))
	must(c.Provide(sqlxrepos.NewSubmissionRepository))
	must(c.Provide(sqlxrepos.NewCompetencyRepository))
	must(c.Provide(sqlxrepos.NewReportRepository))
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
