// Package shared wires the dependencies common to the API server and the admin CLI.
package shared

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/bmi"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/glossary"
	"github.com/genzugar/backend/core/module"
	"github.com/genzugar/backend/core/progress"
	"github.com/genzugar/backend/core/user"
	"github.com/genzugar/backend/core/video"
	catalogsvc "github.com/genzugar/backend/services/catalog"
	emailsvc "github.com/genzugar/backend/services/email"
	logsvc "github.com/genzugar/backend/services/logger"
	storagesvc "github.com/genzugar/backend/services/storage"
	"github.com/genzugar/backend/storage/database"
	inmemdb "github.com/genzugar/backend/storage/database/inmem"
	sqlxrepos "github.com/genzugar/backend/storage/database/sqlx"
)

type (
	Repositories struct {
		Users    user.Repository
		BMI      bmi.Repository
		Ebooks   ebook.Repository
		Videos   video.Repository
		Glossary glossary.Repository
		Modules  module.Repository
		Progress progress.Repository
	}

	Services struct {
		User     user.Service
		BMI      bmi.Service
		Ebook    ebook.Service
		Video    video.Service
		Glossary glossary.Service
		Module   module.Service
		Progress progress.Service
		Catalog  core.Catalog
	}
)

// NewLogger returns the zap-backed logger; errors are mirrored to Rollbar outside of DEBUG.
func NewLogger(conf *core.Config) (*logsvc.RollbarLogger, error) {
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)
	return logger, nil
}

// OpenRepositories opens Postgres (creating and migrating the database first) or the in-memory store.
// The returned func closes the database.
func OpenRepositories(conf *core.Config, logger core.Logger) (*Repositories, func() error, error) {
	if conf.Database.InMemory() {
		logger.Warn("using the in-memory database: data is lost on exit")
		db := inmemdb.Open()
		return &Repositories{
			Users:    inmemdb.NewUserRepository(db),
			BMI:      inmemdb.NewBMIRepository(db),
			Ebooks:   inmemdb.NewEbookRepository(db),
			Videos:   inmemdb.NewVideoRepository(db),
			Glossary: inmemdb.NewGlossaryRepository(db),
			Modules:  inmemdb.NewModuleRepository(db),
			Progress: inmemdb.NewProgressRepository(db),
		}, func() error { return nil }, nil
	}

	sqlDB, err := setUpDB(conf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "setting up database")
	}
	db := sqlxrepos.NewDB(sqlDB)
	return &Repositories{
		Users:    sqlxrepos.NewUserRepository(db),
		BMI:      sqlxrepos.NewBMIRepository(db),
		Ebooks:   sqlxrepos.NewEbookRepository(db),
		Videos:   sqlxrepos.NewVideoRepository(db),
		Glossary: sqlxrepos.NewGlossaryRepository(db),
		Modules:  sqlxrepos.NewModuleRepository(db),
		Progress: sqlxrepos.NewProgressRepository(db),
	}, db.Close, nil
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewServices builds the domain services on top of repos. The returned func releases the catalog
// and the object storage.
func NewServices(ctx context.Context, conf *core.Config, logger core.Logger, repos *Repositories) (*Services, func(), error) {
	catalog, closeCatalog, err := catalogsvc.New(ctx, conf, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "setting up catalog")
	}

	storage, closeStorage, err := newObjectStorage(ctx, conf, logger)
	if err != nil {
		_ = closeCatalog()
		return nil, nil, errors.Wrap(err, "setting up object storage")
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(repos.Users, mailSvc, logger)
	bmiSvc := bmi.NewService(repos.BMI, usrSvc, logger)
	ebookSvc := ebook.NewService(repos.Ebooks, storage, catalog, logger)
	videoSvc := video.NewService(repos.Videos, catalog)
	moduleSvc := module.NewService(repos.Modules, catalog)

	closeAll := func() {
		if err := closeStorage(); err != nil {
			logger.Error("closing object storage", err)
		}
		if err := closeCatalog(); err != nil {
			logger.Error("closing catalog", err)
		}
	}

	return &Services{
		User:     usrSvc,
		BMI:      bmiSvc,
		Ebook:    ebookSvc,
		Video:    videoSvc,
		Glossary: glossary.NewService(repos.Glossary, catalog),
		Module:   moduleSvc,
		Progress: progress.NewService(repos.Progress, bmiSvc, moduleSvc, ebookSvc, videoSvc),
		Catalog:  catalog,
	}, closeAll, nil
}

// newObjectStorage returns the GCS bucket, or an in-memory store when no bucket is configured
// or the database is in memory.
func newObjectStorage(ctx context.Context, conf *core.Config, logger core.Logger) (core.ObjectStorage, func() error, error) {
	if conf.Storage.Bucket == "" || conf.Database.InMemory() {
		logger.Warn("object storage not configured: uploads are kept in memory")
		return storagesvc.NewMemoryStorage(conf.FrontendBaseURL + "/media"), func() error { return nil }, nil
	}
	return storagesvc.NewGCSBucket(ctx, conf, logger)
}
