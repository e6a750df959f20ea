package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "listings", cfg.ListingBucket)
	assert.Equal(t, "support@daloamarket.shop", cfg.SupportEmail)
	assert.True(t, cfg.BetaFreeMode)
	assert.Equal(t, 10, cfg.MaxFreeListings)
	assert.Equal(t, int64(200), cfg.ListingFeeFCFA)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("BETA_FREE_MODE", "false")
	t.Setenv("MAX_FREE_LISTINGS", "3")
	t.Setenv("ADMIN_EMAILS", " Admin@DaloaMarket.shop, ,ops@daloamarket.shop")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.BetaFreeMode)
	assert.Equal(t, 3, cfg.MaxFreeListings)
	assert.Equal(t, []string{"admin@daloamarket.shop", "ops@daloamarket.shop"}, cfg.AdminEmails)
}
