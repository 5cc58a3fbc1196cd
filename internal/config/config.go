package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr    string
	DSN     string
	BaseURL string

	SecretKey         string
	SessionMaxAge     int
	SecureCookies     bool
	RequireActivation bool
	ActivationMaxAge  time.Duration

	Storage   string
	MediaRoot string
	MediaURL  string

	BucketName      string
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	S3Endpoint      string
	PublicURL       string

	ImageMaxWidth  int
	ImageMaxHeight int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	CaptchaSecret    string
	CaptchaVerifyURL string

	GoogleKey    string
	GoogleSecret string

	LogLevel  string
	LogPretty bool
	RateLimit int
}

var ErrMissingSecret = errors.New("SECRET_KEY is required")

// Load reads the optional env file into the process environment and builds a
// Config from it. A missing env file is reported through loaded=false, not as
// an error.
func Load(envFile string) (cfg Config, loaded bool, err error) {
	if envFile == "" {
		envFile = ".env"
	}
	loaded = godotenv.Load(envFile) == nil

	cfg = Config{
		Addr:    getenv("ADDR", ":3000"),
		DSN:     os.Getenv("DSN"),
		BaseURL: getenv("BASE_URL", "http://localhost:3000"),

		SecretKey:         os.Getenv("SECRET_KEY"),
		SessionMaxAge:     getint("SESSION_MAX_AGE", 86400*30),
		SecureCookies:     getbool("SECURE_COOKIES", false),
		RequireActivation: getbool("REQUIRE_ACTIVATION", true),
		ActivationMaxAge:  time.Duration(getint("ACTIVATION_MAX_AGE", 0)) * time.Second,

		Storage:   getenv("STORAGE", "local"),
		MediaRoot: getenv("MEDIA_ROOT", "./media"),
		MediaURL:  getenv("MEDIA_URL", "/media/"),

		BucketName:      os.Getenv("BUCKET_NAME"),
		AccountID:       os.Getenv("ACCOUNT_ID"),
		AccessKeyID:     os.Getenv("ACCESS_KEY_ID"),
		AccessKeySecret: os.Getenv("ACCESS_KEY_SECRET"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		PublicURL:       os.Getenv("PUBLIC_URL"),

		ImageMaxWidth:  getint("IMAGE_MAX_WIDTH", 0),
		ImageMaxHeight: getint("IMAGE_MAX_HEIGHT", 0),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getint("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getenv("MAIL_FROM", "noreply@localhost"),

		CaptchaSecret:    os.Getenv("CAPTCHA_SECRET"),
		CaptchaVerifyURL: getenv("CAPTCHA_VERIFY_URL", "https://hcaptcha.com/siteverify"),

		GoogleKey:    os.Getenv("GOOGLE_KEY"),
		GoogleSecret: os.Getenv("GOOGLE_SECRET"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogPretty: getbool("LOG_PRETTY", false),
		RateLimit: getint("RATE_LIMIT", 20),
	}
	if cfg.SecretKey == "" {
		return cfg, loaded, ErrMissingSecret
	}
	return cfg, loaded, nil
}

func (c Config) OAuthEnabled() bool { return c.GoogleKey != "" && c.GoogleSecret != "" }

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getint(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getbool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}
