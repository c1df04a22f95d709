package catalog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/talkincode/digistore/internal/domain"
	"github.com/talkincode/digistore/internal/testutil"
)

type ServiceSuite struct {
	testutil.DBSuite
	svc     *Service
	changed []int64
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.DBSuite.SetupTest()
	s.ctx = context.Background()
	s.changed = nil
	bus := EventBus.New()
	s.Require().NoError(bus.Subscribe(TopicProductsChanged, func(id int64) {
		s.changed = append(s.changed, id)
	}))
	s.svc = NewService(s.DB, s.Files, bus)
}

func (s *ServiceSuite) storedFiles() []string {
	var files []string
	_ = filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files
}

func (s *ServiceSuite) productCount() int64 {
	var n int64
	s.Require().NoError(s.DB.Model(&domain.Product{}).Count(&n).Error)
	return n
}

func (s *ServiceSuite) fileSize(path string) int64 {
	st, err := os.Stat(path)
	s.Require().NoError(err)
	return st.Size()
}

func (s *ServiceSuite) addProduct() *domain.Product {
	p, err := s.svc.Add(s.ctx, validForm())
	s.Require().NoError(err)
	return p
}

func (s *ServiceSuite) TestAddStoresFilesAndRow() {
	p := s.addProduct()

	stored, err := s.svc.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(999), stored.PriceInCents)
	s.False(stored.IsAvailableForPurchase)
	s.Equal("Ebook", stored.Name)
	s.Equal(int64(1), s.productCount())

	s.True(s.Files.FileExists(stored.FilePath))
	s.True(s.Files.ImageExists(stored.ImagePath))
	s.Equal(int64(10), s.fileSize(filepath.Join(s.Root, stored.FilePath)))
	s.Equal(int64(5), s.fileSize(filepath.Join(s.Root, "public", stored.ImagePath)))
	s.Equal([]int64{p.ID}, s.changed)
}

func (s *ServiceSuite) TestAddInvalidPersistsNothing() {
	forms := map[string]func(f *ProductForm){
		"file":         func(f *ProductForm) { f.File = nil },
		"image":        func(f *ProductForm) { f.Image = upload("a.txt", "text/plain", []byte("x")) },
		"priceInCents": func(f *ProductForm) { f.PriceInCents = "0" },
	}
	for field, mutate := range forms {
		form := validForm()
		mutate(&form)
		_, err := s.svc.Add(s.ctx, form)
		ve, ok := AsValidationError(err)
		s.Require().True(ok, field)
		s.True(ve.Fields.Has(field), field)
	}
	s.Equal(int64(0), s.productCount())
	s.Empty(s.storedFiles())
	s.Empty(s.changed)
}

func (s *ServiceSuite) TestUpdateWithoutUploadsKeepsPaths() {
	p := s.addProduct()

	form := validForm()
	form.Name = "Ebook 2nd edition"
	form.PriceInCents = "1999"
	form.File = nil
	form.Image = upload("", "", nil)

	updated, err := s.svc.Update(s.ctx, p.ID, form)
	s.Require().NoError(err)
	s.Equal(p.FilePath, updated.FilePath)
	s.Equal(p.ImagePath, updated.ImagePath)

	stored, err := s.svc.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Ebook 2nd edition", stored.Name)
	s.Equal(int64(1999), stored.PriceInCents)
	s.Equal(p.FilePath, stored.FilePath)
	s.Equal(p.ImagePath, stored.ImagePath)
	s.True(s.Files.FileExists(stored.FilePath))
	s.Len(s.storedFiles(), 2)
}

func (s *ServiceSuite) TestUpdateReplacesFile() {
	p := s.addProduct()

	form := validForm()
	form.File = upload("book-v2.pdf", "application/pdf", []byte("new content"))
	form.Image = nil

	_, err := s.svc.Update(s.ctx, p.ID, form)
	s.Require().NoError(err)

	stored, err := s.svc.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.NotEqual(p.FilePath, stored.FilePath)
	s.False(s.Files.FileExists(p.FilePath))
	s.True(s.Files.FileExists(stored.FilePath))
	s.Equal(int64(len("new content")), s.fileSize(filepath.Join(s.Root, stored.FilePath)))
	s.Equal(p.ImagePath, stored.ImagePath)
	s.Len(s.storedFiles(), 2)
}

func (s *ServiceSuite) TestUpdateReplacesImage() {
	p := s.addProduct()

	form := validForm()
	form.File = nil
	form.Image = upload("cover2.jpg", "image/jpeg", []byte("jpeg"))

	updated, err := s.svc.Update(s.ctx, p.ID, form)
	s.Require().NoError(err)
	s.False(s.Files.ImageExists(p.ImagePath))
	s.True(s.Files.ImageExists(updated.ImagePath))
	s.Equal(p.FilePath, updated.FilePath)
}

func (s *ServiceSuite) TestUpdateMissingProduct() {
	_, err := s.svc.Update(s.ctx, 12345, validForm())
	s.ErrorIs(err, ErrNotFound)
	s.Empty(s.storedFiles())

	// validation runs before the lookup
	form := validForm()
	form.Name = ""
	_, err = s.svc.Update(s.ctx, 12345, form)
	_, ok := AsValidationError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestUpdateReportsMissingReplacedFile() {
	p := s.addProduct()
	s.Require().NoError(os.Remove(filepath.Join(s.Root, p.FilePath)))
	s.changed = nil

	form := validForm()
	form.Name = "Ebook v2"
	form.File = upload("book-v2.pdf", "application/pdf", []byte("new content"))
	form.Image = upload("cover-v2.png", "image/png", []byte("new png"))

	updated, err := s.svc.Update(s.ctx, p.ID, form)
	s.Require().Error(err)
	s.Require().NotNil(updated)

	stored, gerr := s.svc.Get(s.ctx, p.ID)
	s.Require().NoError(gerr)
	s.Equal("Ebook v2", stored.Name)
	s.True(s.Files.FileExists(stored.FilePath))
	s.True(s.Files.ImageExists(stored.ImagePath))
	s.False(s.Files.ImageExists(p.ImagePath))
	s.Equal([]int64{p.ID}, s.changed)
}

func (s *ServiceSuite) TestUpdateRowDeletedConcurrently() {
	p := s.addProduct()
	before := s.storedFiles()
	s.changed = nil

	// delete the row right after Update has loaded it
	var fired bool
	err := s.DB.Callback().Query().After("gorm:query").Register("test:delete_after_load", func(db *gorm.DB) {
		if fired || db.Statement.Table != "product" {
			return
		}
		fired = true
		db.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM product WHERE id = ?", p.ID)
	})
	s.Require().NoError(err)

	form := validForm()
	form.File = upload("book-v2.pdf", "application/pdf", []byte("new content"))
	form.Image = upload("cover-v2.png", "image/png", []byte("new png"))

	_, err = s.svc.Update(s.ctx, p.ID, form)
	s.ErrorIs(err, ErrNotFound)
	s.True(fired)
	s.Equal(int64(0), s.productCount())
	s.ElementsMatch(before, s.storedFiles())
	s.Empty(s.changed)
}

func (s *ServiceSuite) TestSetAvailability() {
	p := s.addProduct()
	before := s.storedFiles()
	s.changed = nil

	s.Require().NoError(s.svc.SetAvailability(s.ctx, p.ID, true))
	stored, err := s.svc.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.True(stored.IsAvailableForPurchase)

	s.Require().NoError(s.svc.SetAvailability(s.ctx, p.ID, false))
	stored, err = s.svc.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.False(stored.IsAvailableForPurchase)

	s.ElementsMatch(before, s.storedFiles())
	s.Equal([]int64{p.ID, p.ID}, s.changed)

	s.ErrorIs(s.svc.SetAvailability(s.ctx, 999, true), ErrNotFound)
}

func (s *ServiceSuite) TestDeleteRemovesRowAndFiles() {
	p := s.addProduct()

	deleted, err := s.svc.Delete(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, deleted.ID)
	s.Equal(int64(0), s.productCount())
	s.False(s.Files.FileExists(p.FilePath))
	s.False(s.Files.ImageExists(p.ImagePath))
	s.Empty(s.storedFiles())

	_, err = s.svc.Delete(s.ctx, p.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestDeleteWithMissingFileFailsLoudly() {
	p := s.addProduct()
	s.Require().NoError(s.Files.RemoveFile(p.FilePath))

	_, err := s.svc.Delete(s.ctx, p.ID)
	s.Error(err)
	s.NotErrorIs(err, ErrNotFound)
	s.Equal(int64(0), s.productCount())
	// the image is still cleaned up
	s.False(s.Files.ImageExists(p.ImagePath))
}

func (s *ServiceSuite) TestListSearchAndPaging() {
	for _, name := range []string{"Alpha Guide", "beta guide", "Gamma"} {
		s.CreateProduct(name, 100, true)
	}

	rows, total, err := s.svc.List(s.ctx, ListQuery{Q: "GUIDE"})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(rows, 2)

	rows, total, err = s.svc.List(s.ctx, ListQuery{Page: 2, PageSize: 2, Sort: "name", Order: "asc"})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(rows, 1)

	// unknown sort columns fall back to name
	rows, _, err = s.svc.List(s.ctx, ListQuery{Sort: "name; DROP TABLE product"})
	s.Require().NoError(err)
	s.Len(rows, 3)
}

func (s *ServiceSuite) TestListAvailableOrderings() {
	user := s.CreateUser("buyer@example.com")
	a := s.CreateProduct("A", 100, true)
	b := s.CreateProduct("B", 100, true)
	s.CreateProduct("Hidden", 100, false)
	s.CreateOrder(user.ID, b.ID, 100)
	s.CreateOrder(user.ID, b.ID, 100)
	s.CreateOrder(user.ID, a.ID, 100)

	byName, err := s.svc.ListAvailable(s.ctx, OrderByName, 0)
	s.Require().NoError(err)
	s.Require().Len(byName, 2)
	s.Equal("A", byName[0].Name)

	popular, err := s.svc.ListAvailable(s.ctx, OrderByPopular, 6)
	s.Require().NoError(err)
	s.Require().Len(popular, 2)
	s.Equal("B", popular[0].Name)

	newest, err := s.svc.ListAvailable(s.ctx, OrderByNewest, 1)
	s.Require().NoError(err)
	s.Len(newest, 1)

	counts, err := s.svc.OrderCounts(s.ctx, []int64{a.ID, b.ID})
	s.Require().NoError(err)
	s.Equal(int64(1), counts[a.ID])
	s.Equal(int64(2), counts[b.ID])
}
