package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/labstack/gommon/bytes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talkincode/digistore/internal/domain"
	"github.com/talkincode/digistore/internal/filestore"
	"github.com/talkincode/digistore/pkg/common"
)

// TopicProductsChanged is published with the product id after every successful mutation.
const TopicProductsChanged = "products:changed"

var mutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "digistore_product_mutations_total",
		Help: "Successful product mutations by action",
	},
	[]string{"action"},
)

// Service implements the product mutation actions. File store and database
// are not updated atomically: a failure between a file write and the row
// write leaves an orphaned file, never a row pointing at a missing file.
type Service struct {
	db    *gorm.DB
	files *filestore.Store
	bus   EventBus.Bus
}

func NewService(db *gorm.DB, files *filestore.Store, bus EventBus.Bus) *Service {
	return &Service{db: db, files: files, bus: bus}
}

// Add validates the form, stores the file and image, then inserts an unavailable product.
func (s *Service) Add(ctx context.Context, form ProductForm) (*domain.Product, error) {
	in, err := ValidateProduct(form, ModeCreate)
	if err != nil {
		return nil, err
	}

	filePath, err := saveUpload(in.File, s.files.SaveFile)
	if err != nil {
		return nil, err
	}
	imagePath, err := saveUpload(in.Image, s.files.SaveImage)
	if err != nil {
		s.discard(s.files.RemoveFile, filePath)
		return nil, err
	}

	now := time.Now()
	p := &domain.Product{
		ID:                     common.UUIDint64(),
		Name:                   in.Name,
		Description:            in.Description,
		PriceInCents:           in.PriceInCents,
		FilePath:               filePath,
		ImagePath:              imagePath,
		IsAvailableForPurchase: false,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}

	zap.L().Info("product created",
		zap.Int64("id", p.ID),
		zap.String("name", p.Name),
		zap.String("file_path", p.FilePath),
		zap.String("file_size", bytes.Format(in.File.Size)),
		zap.String("image_path", p.ImagePath))
	s.publish("add", p.ID)
	return p, nil
}

// Update validates the form with optional uploads. Replacement uploads are
// written before the row is updated; the replaced files are removed last.
// A failed removal is reported after the row has changed.
func (s *Service) Update(ctx context.Context, id int64, form ProductForm) (*domain.Product, error) {
	in, err := ValidateProduct(form, ModeEdit)
	if err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var oldFile, oldImage string
	if in.File != nil {
		ref, err := saveUpload(in.File, s.files.SaveFile)
		if err != nil {
			return nil, err
		}
		oldFile, p.FilePath = p.FilePath, ref
	}
	if in.Image != nil {
		ref, err := saveUpload(in.Image, s.files.SaveImage)
		if err != nil {
			if oldFile != "" {
				s.discard(s.files.RemoveFile, p.FilePath)
			}
			return nil, err
		}
		oldImage, p.ImagePath = p.ImagePath, ref
	}

	p.Name = in.Name
	p.Description = in.Description
	p.PriceInCents = in.PriceInCents
	p.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":           p.Name,
		"description":    p.Description,
		"price_in_cents": p.PriceInCents,
		"file_path":      p.FilePath,
		"image_path":     p.ImagePath,
		"updated_at":     p.UpdatedAt,
	})
	if res.Error == nil && res.RowsAffected == 0 {
		res.Error = ErrNotFound
	}
	if res.Error != nil {
		if oldFile != "" {
			s.discard(s.files.RemoveFile, p.FilePath)
		}
		if oldImage != "" {
			s.discard(s.files.RemoveImage, p.ImagePath)
		}
		return nil, res.Error
	}
	s.publish("update", p.ID)

	var rmErr error
	if oldFile != "" {
		rmErr = multierr.Append(rmErr, s.files.RemoveFile(oldFile))
	}
	if oldImage != "" {
		rmErr = multierr.Append(rmErr, s.files.RemoveImage(oldImage))
	}
	if rmErr != nil {
		zap.L().Error("product updated but replaced files could not be removed",
			zap.Int64("id", p.ID), zap.Error(rmErr))
		return p, rmErr
	}

	zap.L().Info("product updated",
		zap.Int64("id", p.ID),
		zap.Bool("file_replaced", oldFile != ""),
		zap.Bool("image_replaced", oldImage != ""))
	return p, nil
}

// SetAvailability flips the purchase flag. No file I/O.
func (s *Service) SetAvailability(ctx context.Context, id int64, available bool) error {
	res := s.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_available_for_purchase": available,
		"updated_at":                time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	zap.L().Info("product availability changed", zap.Int64("id", id), zap.Bool("available", available))
	s.publish("availability", id)
	return nil
}

// Delete removes the row and then both backing files. A missing backing
// file is reported as an error after the row is gone.
func (s *Service) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	s.publish("delete", id)

	err = multierr.Append(s.files.RemoveFile(p.FilePath), s.files.RemoveImage(p.ImagePath))
	if err != nil {
		zap.L().Error("product deleted but backing files could not be removed",
			zap.Int64("id", id), zap.Error(err))
		return p, err
	}
	zap.L().Info("product deleted", zap.Int64("id", id), zap.String("name", p.Name))
	return p, nil
}

// Get loads a product by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListQuery filters and pages the admin product list.
type ListQuery struct {
	Page     int
	PageSize int
	Q        string
	Sort     string
	Order    string
}

// whitelist allowed sort columns to avoid SQL injection
var sortColumns = map[string]string{
	"id":             "id",
	"name":           "name",
	"price_in_cents": "price_in_cents",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
}

// List returns one page of products and the total matching count.
func (s *Service) List(ctx context.Context, q ListQuery) ([]domain.Product, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 500 {
		q.PageSize = 20
	}
	order := strings.ToUpper(strings.TrimSpace(q.Order))
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	sortCol, ok := sortColumns[q.Sort]
	if !ok {
		sortCol = "name"
	}

	db := s.db.WithContext(ctx).Model(&domain.Product{})
	if kw := strings.TrimSpace(q.Q); kw != "" {
		if strings.EqualFold(db.Dialector.Name(), "postgres") {
			db = db.Where("name ILIKE ?", "%"+kw+"%")
		} else {
			db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(kw)+"%")
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []domain.Product
	err := db.Order(sortCol + " " + order).Offset((q.Page - 1) * q.PageSize).Limit(q.PageSize).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Storefront orderings for ListAvailable
const (
	OrderByName    = "name"
	OrderByNewest  = "newest"
	OrderByPopular = "popular"
)

// ListAvailable returns products open for purchase. limit <= 0 means no limit.
func (s *Service) ListAvailable(ctx context.Context, orderBy string, limit int) ([]domain.Product, error) {
	db := s.db.WithContext(ctx).Model(&domain.Product{}).
		Where("product.is_available_for_purchase = ?", true)

	switch orderBy {
	case OrderByNewest:
		db = db.Order("product.created_at DESC")
	case OrderByPopular:
		db = db.Select("product.*").
			Joins("LEFT JOIN order_record ON order_record.product_id = product.id").
			Group("product.id").
			Order("COUNT(order_record.id) DESC").
			Order("product.name ASC")
	default:
		db = db.Order("product.name ASC")
	}
	if limit > 0 {
		db = db.Limit(limit)
	}

	var rows []domain.Product
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// OrderCounts returns the number of orders per product id.
func (s *Service) OrderCounts(ctx context.Context, ids []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	var rows []struct {
		ProductID int64
		Total     int64
	}
	err := s.db.WithContext(ctx).Model(&domain.Order{}).
		Select("product_id, COUNT(*) AS total").
		Where("product_id IN ?", ids).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ProductID] = r.Total
	}
	return counts, nil
}

func (s *Service) publish(action string, id int64) {
	mutations.WithLabelValues(action).Inc()
	if s.bus != nil {
		s.bus.Publish(TopicProductsChanged, id)
	}
}

// discard removes a just-written file after a later step failed.
func (s *Service) discard(remove func(string) error, ref string) {
	if err := remove(ref); err != nil {
		zap.L().Warn("failed to discard orphaned upload", zap.String("ref", ref), zap.Error(err))
	}
}

func saveUpload(u *Upload, save func(string, io.Reader) (string, error)) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return save(u.Filename, rc)
}
