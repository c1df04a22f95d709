package app

import (
	"gorm.io/gorm"

	"github.com/talkincode/digistore/config"
	"github.com/talkincode/digistore/internal/catalog"
	"github.com/talkincode/digistore/internal/dashboard"
	"github.com/talkincode/digistore/internal/filestore"
	"github.com/talkincode/digistore/internal/pagecache"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// CatalogProvider provides the product mutation actions
type CatalogProvider interface {
	Catalog() *catalog.Service
}

// DashboardProvider provides the aggregate reads
type DashboardProvider interface {
	Dashboard() *dashboard.Service
}

// FileStoreProvider provides access to stored product files and images
type FileStoreProvider interface {
	Files() *filestore.Store
}

// PageCacheProvider provides the rendered page cache
type PageCacheProvider interface {
	Pages() *pagecache.Cache
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	CatalogProvider
	DashboardProvider
	FileStoreProvider
	PageCacheProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
