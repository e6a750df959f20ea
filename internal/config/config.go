package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	SupabaseURL         string // storage sign URLs and public URLs
	SupabaseSecretKey   string // service_role key, not the anon key
	ListingBucket       string
	ResendAPIKey        string
	SendinblueAPIKey    string
	EmailProvider       string // "resend" or "brevo"; empty picks whichever key is set
	MailFrom            string
	SupportEmail        string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	AdminEmails         []string

	BetaFreeMode          bool
	MaxFreeListings       int
	ListingFeeFCFA        int64
	PendingListingTTLDays int

	MessageRatePerSecond float64
	MessageRateBurst     int
	RelayMaxPerMinute    int
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LISTING_BUCKET", "listings")
	viper.SetDefault("MAIL_FROM", "DaloaMarket <noreply@daloamarket.shop>")
	viper.SetDefault("SUPPORT_EMAIL", "support@daloamarket.shop")
	viper.SetDefault("FRONTEND_URL_ENDS_WITH", "daloamarket.shop")
	viper.SetDefault("BETA_FREE_MODE", true)
	viper.SetDefault("MAX_FREE_LISTINGS", 10)
	viper.SetDefault("LISTING_FEE_FCFA", 200)
	viper.SetDefault("PENDING_LISTING_TTL_DAYS", 30)
	viper.SetDefault("MESSAGE_RATE_PER_SECOND", 1.0)
	viper.SetDefault("MESSAGE_RATE_BURST", 5)
	viper.SetDefault("RELAY_MAX_PER_MINUTE", 5)

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = viper.GetString("NODE_ENV")
	}
	if env == "" {
		env = "development"
	}

	return &Config{
		Env:                   env,
		Port:                  viper.GetString("PORT"),
		SessionSecret:         viper.GetString("SESSION_SECRET"),
		DatabaseURL:           viper.GetString("DATABASE_URL"),
		RedisURL:              viper.GetString("REDIS_URL"),
		SupabaseURL:           viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey:     viper.GetString("SUPABASE_SECRET_KEY"),
		ListingBucket:         viper.GetString("LISTING_BUCKET"),
		ResendAPIKey:          viper.GetString("RESEND_API_KEY"),
		SendinblueAPIKey:      viper.GetString("SENDINBLUE_API_KEY"),
		EmailProvider:         strings.ToLower(strings.TrimSpace(viper.GetString("EMAIL_PROVIDER"))),
		MailFrom:              viper.GetString("MAIL_FROM"),
		SupportEmail:          viper.GetString("SUPPORT_EMAIL"),
		FrontendURLEndsWith:   viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:           viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:     strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:        viper.GetString("HEALTH_ADMIN_KEY"),
		AdminEmails:           splitList(viper.GetString("ADMIN_EMAILS")),
		BetaFreeMode:          viper.GetBool("BETA_FREE_MODE"),
		MaxFreeListings:       viper.GetInt("MAX_FREE_LISTINGS"),
		ListingFeeFCFA:        viper.GetInt64("LISTING_FEE_FCFA"),
		PendingListingTTLDays: viper.GetInt("PENDING_LISTING_TTL_DAYS"),
		MessageRatePerSecond:  viper.GetFloat64("MESSAGE_RATE_PER_SECOND"),
		MessageRateBurst:      viper.GetInt("MESSAGE_RATE_BURST"),
		RelayMaxPerMinute:     viper.GetInt("RELAY_MAX_PER_MINUTE"),
	}, nil
}

// IsProduction reports whether the app runs with production cookie/log settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
