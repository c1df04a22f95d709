package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/digistore/config"
	"github.com/talkincode/digistore/internal/domain"
	"github.com/talkincode/digistore/internal/pagecache"
	"github.com/talkincode/digistore/internal/testutil"
	"github.com/talkincode/digistore/pkg/common"
)

func newTestApp(t *testing.T) *Application {
	cfg := config.DefaultConfig()
	cfg.System.Workdir = t.TempDir()
	require.NoError(t, cfg.InitDirs())

	a := NewApplication(cfg)
	a.OverrideDB(testutil.OpenDB(t.TempDir()))
	require.NoError(t, a.Bootstrap())
	t.Cleanup(a.Release)
	return a
}

func TestBootstrapWiresInvalidation(t *testing.T) {
	a := newTestApp(t)
	p := domain.Product{ID: common.UUIDint64(), Name: "Ebook", PriceInCents: 999}
	require.NoError(t, a.DB().Create(&p).Error)

	a.Pages().Set("/", pagecache.Page{Body: []byte("home")})
	a.Pages().Set("/products", pagecache.Page{Body: []byte("list")})
	a.Pages().Set("/orders", pagecache.Page{Body: []byte("orders")})

	require.NoError(t, a.Catalog().SetAvailability(context.Background(), p.ID, true))

	_, ok := a.Pages().Get("/")
	assert.False(t, ok)
	_, ok = a.Pages().Get("/products")
	assert.False(t, ok)
	_, ok = a.Pages().Get("/orders")
	assert.True(t, ok)
}

func TestInitDbRecreatesTables(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.DB().Create(&domain.User{ID: common.UUIDint64(), Email: "a@example.com"}).Error)

	a.InitDb()

	var n int64
	require.NoError(t, a.DB().Model(&domain.User{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, a.MigrateDB(true))
}
