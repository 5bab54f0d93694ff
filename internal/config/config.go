package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8000）

	DatabaseURL string // DB接続文字列（設定があれば最優先）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）

	SecretKey string // JWT署名シークレット

	// トークンの有効期間（秒）
	AccessTokenLifetime        int // アクセストークン（3600）
	RefreshTokenLifetime       int // リフレッシュトークン（604800 = 7日）
	RememberMeRefreshLifetime  int // remember_me時（2592000 = 30日）
	VerificationTokenLifetime  int // メール確認トークン（900）
	ResetPasswordTokenLifetime int // パスワードリセット（900）

	// リフレッシュトークンCookie
	RefreshCookieName     string // cookie名（refresh_token）
	RefreshCookieSecure   bool
	RefreshCookieSameSite string // lax / strict / none

	// CSRF Cookie（double submit用。JSから読める）
	CSRFCookieName     string
	CSRFCookieSecure   bool
	CSRFCookieSameSite string
	CSRFHeaderName     string
	CSRFExemptPaths    []string // このprefixに一致するパスは検証しない

	// レート制限（"5/minute" 形式）
	RateLimitLogin          string
	RateLimitRegister       string
	RateLimitForgotPassword string
	RateLimitDefault        string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPTLS      bool
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	FrontendURL string // メール内リンクの起点

	// Firebase風OAuthログイン
	FirebaseEnabled bool

	// 互換用：アクセストークンをDBにも保存するか（管理画面からの失効用）
	PersistAccessTokens bool

	// ログイン増強middlewareの失敗ポリシー。
	// true: 失敗時は502を返す / false: 旧来どおりCookieなしでそのまま返す
	LoginAugmentStrict bool

	GoEnv       string   // dev/prod
	CORSOrigins []string // 許可オリジン
}

// Loadは環境変数から設定を組み立てる
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     envInt("POSTGRES_PORT", 5432),

		SecretKey: os.Getenv("SECRET_KEY"),

		AccessTokenLifetime:        envInt("ACCESS_TOKEN_LIFETIME", 3600),
		RefreshTokenLifetime:       envInt("REFRESH_TOKEN_LIFETIME", 604800),
		RememberMeRefreshLifetime:  envInt("REMEMBER_ME_REFRESH_TOKEN_LIFETIME", 2592000),
		VerificationTokenLifetime:  envInt("VERIFICATION_TOKEN_LIFETIME", 900),
		ResetPasswordTokenLifetime: envInt("RESET_PASSWORD_TOKEN_LIFETIME", 900),

		RefreshCookieName:     getenv("REFRESH_TOKEN_COOKIE_NAME", "refresh_token"),
		RefreshCookieSecure:   envBool("REFRESH_TOKEN_COOKIE_SECURE", true),
		RefreshCookieSameSite: getenv("REFRESH_TOKEN_COOKIE_SAMESITE", "lax"),

		CSRFCookieName:     getenv("CSRF_COOKIE_NAME", "csrftoken"),
		CSRFCookieSecure:   envBool("CSRF_COOKIE_SECURE", true),
		CSRFCookieSameSite: getenv("CSRF_COOKIE_SAMESITE", "lax"),
		CSRFHeaderName:     getenv("CSRF_HEADER_NAME", "X-CSRF-Token"),
		CSRFExemptPaths:    splitCSV(getenv("CSRF_EXEMPT_PATHS", "/api/,/health")),

		RateLimitLogin:          getenv("RATE_LIMIT_LOGIN", "5/minute"),
		RateLimitRegister:       getenv("RATE_LIMIT_REGISTER", "10/hour"),
		RateLimitForgotPassword: getenv("RATE_LIMIT_FORGOT_PASSWORD", "3/hour"),
		RateLimitDefault:        getenv("RATE_LIMIT_DEFAULT", "100/minute"),

		SMTPHost:     getenv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPTLS:      envBool("SMTP_TLS", true),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		SMTPFromName: getenv("SMTP_FROM_NAME", "Auth Service"),

		FrontendURL: getenv("FRONTEND_URL", "http://localhost:3000"),

		FirebaseEnabled:     envBool("FIREBASE_ENABLED", false),
		PersistAccessTokens: envBool("PERSIST_ACCESS_TOKENS", false),
		LoginAugmentStrict:  envBool("LOGIN_AUGMENT_STRICT", true),

		GoEnv:       getenv("GO_ENV", "dev"),
		CORSOrigins: splitCSV(getenv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
	}

	//必須チェック
	if cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("SECRET_KEY is required")
	}
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("DATABASE_URL or POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("DATABASE_URL or POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("DATABASE_URL or POSTGRES_DB is required")
		}
	}

	// remember_me側が短いと縮む方向になるので拒否
	if cfg.RememberMeRefreshLifetime < cfg.RefreshTokenLifetime {
		return Config{}, fmt.Errorf(
			"REMEMBER_ME_REFRESH_TOKEN_LIFETIME (%d) must be >= REFRESH_TOKEN_LIFETIME (%d)",
			cfg.RememberMeRefreshLifetime, cfg.RefreshTokenLifetime,
		)
	}
	if cfg.AccessTokenLifetime <= 0 || cfg.RefreshTokenLifetime <= 0 {
		return Config{}, fmt.Errorf("token lifetimes must be positive")
	}

	return cfg, nil
}

// 秒指定の設定値をtime.Durationへ
func (c Config) AccessTokenDuration() time.Duration {
	return time.Duration(c.AccessTokenLifetime) * time.Second
}

func (c Config) RefreshTokenDuration() time.Duration {
	return time.Duration(c.RefreshTokenLifetime) * time.Second
}

func (c Config) RememberMeRefreshDuration() time.Duration {
	return time.Duration(c.RememberMeRefreshLifetime) * time.Second
}

func (c Config) VerificationTokenDuration() time.Duration {
	return time.Duration(c.VerificationTokenLifetime) * time.Second
}

func (c Config) ResetPasswordTokenDuration() time.Duration {
	return time.Duration(c.ResetPasswordTokenLifetime) * time.Second
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	default:
		return def
	}
}

func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
