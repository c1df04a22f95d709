package testutil

import (
	"bytes"
	"io"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/talkincode/digistore/internal/domain"
	"github.com/talkincode/digistore/internal/filestore"
	"github.com/talkincode/digistore/pkg/common"
)

// DBSuite is a testify suite that gives every test a fresh sqlite database
// and an empty file store under a temp dir.
type DBSuite struct {
	suite.Suite
	DB    *gorm.DB
	Files *filestore.Store
	Root  string
}

// SetupTest creates the database and file store before each test.
func (s *DBSuite) SetupTest() {
	s.Root = s.T().TempDir()
	s.DB = OpenDB(s.T().TempDir())
	s.Files = filestore.New(s.Root, filepath.Join(s.Root, "public"))
}

// TearDownTest closes the database handle.
func (s *DBSuite) TearDownTest() {
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// OpenDB opens a migrated sqlite database inside dir.
func OpenDB(dir string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}
	if err := db.AutoMigrate(domain.Tables...); err != nil {
		panic(err)
	}
	return db
}

// CreateUser inserts a customer.
func (s *DBSuite) CreateUser(email string) domain.User {
	u := domain.User{ID: common.UUIDint64(), Email: email, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.Require().NoError(s.DB.Create(&u).Error)
	return u
}

// CreateOrder inserts a paid order.
func (s *DBSuite) CreateOrder(userID, productID, cents int64) domain.Order {
	o := domain.Order{
		ID:               common.UUIDint64(),
		UserID:           userID,
		ProductID:        productID,
		PricePaidInCents: cents,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	s.Require().NoError(s.DB.Create(&o).Error)
	return o
}

// CreateProduct inserts a product row without backing files.
func (s *DBSuite) CreateProduct(name string, cents int64, available bool) domain.Product {
	p := domain.Product{
		ID:                     common.UUIDint64(),
		Name:                   name,
		Description:            name + " description",
		PriceInCents:           cents,
		FilePath:               "products/none-" + name,
		ImagePath:              "/products/none-" + name,
		IsAvailableForPurchase: available,
		CreatedAt:              time.Now(),
		UpdatedAt:              time.Now(),
	}
	s.Require().NoError(s.DB.Create(&p).Error)
	return p
}

// Payload is an in-memory upload body.
type Payload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Reader opens the payload body.
func (p Payload) Reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(p.Data)), nil
}
