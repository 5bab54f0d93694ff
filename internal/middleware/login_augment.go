package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app/internal/token"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// フォームやレスポンスbodyのバッファ上限
const augmentBodyLimit = 1 << 20

// LoginAugmentConfig はログイン応答にrefresh cookieを付与する設定。
type LoginAugmentConfig struct {
	Manager            *token.RefreshManager
	RefreshLifetime    time.Duration
	RememberMeLifetime time.Duration
	Strict             bool
	Logger             *zap.Logger
}

// 内側のハンドラの応答を捕まえるrecorder。
type responseRecorder struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{header: make(http.Header), status: http.StatusOK}
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(status int) { r.status = status }

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.body.Len()+len(b) > augmentBodyLimit {
		return 0, io.ErrShortWrite
	}
	return r.body.Write(b)
}

// LoginAugment はログイン成功応答を横取りしてrefresh token cookieを発行する。
// ハンドラ自身はaccess tokenしか知らない。cookieの付与はここに集約する。
func LoginAugment(cfg LoginAugmentConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodPost || req.URL.Path != "/api/auth/login" {
				return next(c)
			}

			//remember_meを読むためにbodyをバッファして復元する
			bodyBytes, err := io.ReadAll(io.LimitReader(req.Body, augmentBodyLimit))
			if err != nil {
				return augmentFail(c, cfg, nil, err)
			}
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			rememberMe := parseRememberMe(req, bodyBytes)
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			//内側の応答をrecorderへ差し替え
			res := c.Response()
			original := res.Writer
			rec := newResponseRecorder()
			res.Writer = rec

			handlerErr := next(c)

			//recorderに書いた分は未送信なのでcommit状態を戻す
			res.Writer = original
			res.Committed = false
			res.Size = 0
			if handlerErr != nil {
				return handlerErr
			}

			//ログイン失敗はそのまま通す
			if rec.status != http.StatusOK {
				return copyThrough(c, rec)
			}

			var payload map[string]interface{}
			if err := json.Unmarshal(rec.body.Bytes(), &payload); err != nil {
				return augmentFail(c, cfg, rec, err)
			}
			accessToken, ok := payload["access_token"].(string)
			if !ok || accessToken == "" {
				return augmentFail(c, cfg, rec, echo.NewHTTPError(http.StatusBadGateway, "access_token missing"))
			}

			//発行直後のtokenなので署名検証なしでsubだけ読む
			userID, err := token.DecodeSubjectUnverified(accessToken)
			if err != nil {
				return augmentFail(c, cfg, rec, err)
			}

			lifetime := cfg.RefreshLifetime
			if rememberMe {
				lifetime = cfg.RememberMeLifetime
			}

			refreshToken, err := cfg.Manager.Issue(req.Context(), userID, lifetime)
			if err != nil {
				return augmentFail(c, cfg, rec, err)
			}

			//cookieを付けて応答を書き直す
			settings := cfg.Manager.CookieSettings(lifetime)
			c.SetCookie(settings.Cookie(refreshToken))
			return copyThrough(c, rec)
		}
	}
}

// remember_meはフォームかJSONのどちらでも受ける。
func parseRememberMe(req *http.Request, body []byte) bool {
	contentType := req.Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
		var probe struct {
			RememberMe bool `json:"remember_me"`
		}
		if err := json.Unmarshal(body, &probe); err == nil {
			return probe.RememberMe
		}
		return false
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	if err := req.ParseForm(); err != nil {
		return false
	}
	v, err := strconv.ParseBool(req.PostFormValue("remember_me"))
	return err == nil && v
}

// recorderの内容を元のwriterへ書き戻す。
func copyThrough(c echo.Context, rec *responseRecorder) error {
	res := c.Response()
	for key, values := range rec.header {
		for _, v := range values {
			res.Header().Add(key, v)
		}
	}
	res.WriteHeader(rec.status)
	_, err := res.Write(rec.body.Bytes())
	return err
}

// 付与に失敗した場合。strictなら502、legacyモードならcookieなしで通す。
func augmentFail(c echo.Context, cfg LoginAugmentConfig, rec *responseRecorder, cause error) error {
	if cfg.Logger != nil {
		cfg.Logger.Error("login augmentation failed", zap.Error(cause))
	}
	if !cfg.Strict && rec != nil {
		return copyThrough(c, rec)
	}
	return c.JSON(http.StatusBadGateway, detailJSON("AUGMENTATION_FAILED"))
}
