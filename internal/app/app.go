package app

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talkincode/digistore/config"
	"github.com/talkincode/digistore/internal/catalog"
	"github.com/talkincode/digistore/internal/dashboard"
	"github.com/talkincode/digistore/internal/filestore"
	"github.com/talkincode/digistore/internal/pagecache"
)

// Cached customer pages dropped on every product change
var invalidatedPaths = []string{"/", "/products"}

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	bus       EventBus.Bus
	files     *filestore.Store
	pages     *pagecache.Cache
	catalog   *catalog.Service
	dashboard *dashboard.Service
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ DashboardProvider = (*Application)(nil)
	_ FileStoreProvider = (*Application)(nil)
	_ PageCacheProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Catalog() *catalog.Service {
	return a.catalog
}

func (a *Application) Dashboard() *dashboard.Service {
	return a.dashboard
}

func (a *Application) Files() *filestore.Store {
	return a.files
}

func (a *Application) Pages() *pagecache.Cache {
	return a.pages
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	if err := cfg.InitDirs(); err != nil {
		zap.S().Errorf("failed to create workdir layout: %v", err)
	}

	// Initialize database connection
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.GetDataDir())
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	if err := a.Bootstrap(); err != nil {
		zap.S().Errorf("service bootstrap failed: %v", err)
		os.Exit(1)
	}
}

// Bootstrap wires the file store, page cache and services over the current DB.
func (a *Application) Bootstrap() error {
	a.bus = EventBus.New()
	a.files = filestore.New(a.appConfig.System.Workdir, a.appConfig.GetPublicDir())
	a.pages = pagecache.New(pagecache.DefaultSize)
	if err := a.pages.InvalidateOn(a.bus, catalog.TopicProductsChanged, invalidatedPaths...); err != nil {
		return err
	}
	a.catalog = catalog.NewService(a.gormDB, a.files, a.bus)
	a.dashboard = dashboard.NewService(a.gormDB)
	return nil
}

// Release releases application resources
func (a *Application) Release() {
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}
