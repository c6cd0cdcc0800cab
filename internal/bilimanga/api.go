package bilimanga

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	endpointSearch         = "comic.v1.Comic/Search"
	endpointComicDetail    = "comic.v2.Comic/ComicDetail"
	endpointBuyEpisode     = "comic.v1.Comic/BuyEpisode"
	endpointEpisodeBuyInfo = "comic.v1.Comic/GetEpisodeBuyInfo"
	endpointGetCoupons     = "user.v1.User/GetCoupons"
	endpointNav            = "x/web-interface/nav"

	defaultSearchPageSize = 9
	couponPageSize        = 15
	maxBodySize           = 8 << 20

	buyMethodCoupon     = 2
	autoPayGoldDisabled = 2
)

// Options configures an APIClient
type Options struct {
	MangaBaseURL   string
	AccountBaseURL string
	UserAgent      string
	Timeout        time.Duration
	SearchPageSize int
	Logger         *zerolog.Logger
}

// APIClient talks to the manga storefront gateway over JSON
type APIClient struct {
	mangaBaseURL   string
	accountBaseURL string
	userAgent      string
	searchPageSize int
	http           *http.Client
	log            zerolog.Logger
}

// NewAPIClient creates a new gateway client
func NewAPIClient(opts Options) *APIClient {
	if opts.MangaBaseURL == "" {
		opts.MangaBaseURL = "https://manga.bilibili.com"
	}
	if opts.AccountBaseURL == "" {
		opts.AccountBaseURL = "https://api.bilibili.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.SearchPageSize <= 0 {
		opts.SearchPageSize = defaultSearchPageSize
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "gateway").Logger()
	}

	return &APIClient{
		mangaBaseURL:   strings.TrimRight(opts.MangaBaseURL, "/"),
		accountBaseURL: strings.TrimRight(opts.AccountBaseURL, "/"),
		userAgent:      opts.UserAgent,
		searchPageSize: opts.SearchPageSize,
		http: &http.Client{
			Transport: Transport,
			Timeout:   opts.Timeout,
		},
		log: log,
	}
}

type envelope struct {
	Code    *int            `json:"code"`
	Msg     string          `json:"msg"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`

	raw []byte
}

func (e *envelope) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Message
}

type searchRequest struct {
	KeyWord  string `json:"key_word"`
	PageNum  int    `json:"page_num"`
	PageSize int    `json:"page_size"`
}

type comicDetailRequest struct {
	ComicID int `json:"comic_id"`
}

type buyEpisodeRequest struct {
	BuyMethod         int `json:"buy_method"`
	EpID              int `json:"ep_id"`
	CouponID          int `json:"coupon_id"`
	AutoPayGoldStatus int `json:"auto_pay_gold_status"`
}

type episodeBuyInfoRequest struct {
	EpID int `json:"ep_id"`
}

type getCouponsRequest struct {
	NotExpired bool `json:"not_expired"`
	PageNum    int  `json:"page_num"`
	PageSize   int  `json:"page_size"`
}

// Search searches the catalog by keyword, first page only
func (c *APIClient) Search(ctx context.Context, keyword string) ([]*Comic, error) {
	env, err := c.post(ctx, endpointSearch, searchRequest{
		KeyWord:  keyword,
		PageNum:  1,
		PageSize: c.searchPageSize,
	}, "")
	if err != nil {
		return nil, err
	}
	if err := expectOK(endpointSearch, env); err != nil {
		return nil, err
	}

	var data struct {
		List *[]json.RawMessage `json:"list"`
	}
	if err := decode(env.Data, &data); err != nil {
		return nil, annotate(err, endpointSearch, env.raw)
	}
	if data.List == nil {
		return nil, annotate(requireFields(env.Data, field{"list", true}), endpointSearch, env.raw)
	}

	comics := make([]*Comic, 0, len(*data.List))
	for _, entry := range *data.List {
		comic, err := ParseComicSummary(entry)
		if err != nil {
			return nil, annotate(err, endpointSearch, env.raw)
		}
		comics = append(comics, comic)
	}

	c.log.Debug().Str("keyword", keyword).Int("results", len(comics)).Msg("search completed")
	return comics, nil
}

// ComicDetail fetches a comic with its full chapter list
func (c *APIClient) ComicDetail(ctx context.Context, comicID int, cred Credential) (*Comic, error) {
	env, err := c.post(ctx, endpointComicDetail, comicDetailRequest{ComicID: comicID}, cred)
	if err != nil {
		return nil, err
	}
	if err := expectOK(endpointComicDetail, env); err != nil {
		return nil, err
	}

	comic, err := ParseComic(env.Data)
	if err != nil {
		return nil, annotate(err, endpointComicDetail, env.raw)
	}

	c.log.Debug().Int("comic", comic.ID).Int("chapters", len(comic.Chapters)).Msg("fetched comic detail")
	return comic, nil
}

// BuyEpisode unlocks a chapter with a coupon. Gold is never spent.
func (c *APIClient) BuyEpisode(ctx context.Context, episodeID, couponID int, cred Credential) error {
	env, err := c.post(ctx, endpointBuyEpisode, buyEpisodeRequest{
		BuyMethod:         buyMethodCoupon,
		EpID:              episodeID,
		CouponID:          couponID,
		AutoPayGoldStatus: autoPayGoldDisabled,
	}, cred)
	if err != nil {
		return err
	}
	return expectOK(endpointBuyEpisode, env)
}

// RecommendCoupon asks the gateway which coupon it would spend on a chapter.
// A recommendation of 0 means the account has none that applies.
func (c *APIClient) RecommendCoupon(ctx context.Context, episodeID int, cred Credential) (*Coupon, error) {
	env, err := c.post(ctx, endpointEpisodeBuyInfo, episodeBuyInfoRequest{EpID: episodeID}, cred)
	if err != nil {
		return nil, err
	}
	if err := expectOK(endpointEpisodeBuyInfo, env); err != nil {
		return nil, err
	}

	var data struct {
		RecommendCouponID *int `json:"recommend_coupon_id"`
	}
	if err := decode(env.Data, &data); err != nil {
		return nil, annotate(err, endpointEpisodeBuyInfo, env.raw)
	}
	if data.RecommendCouponID == nil {
		return nil, annotate(requireFields(env.Data, field{"recommend_coupon_id", true}), endpointEpisodeBuyInfo, env.raw)
	}
	if *data.RecommendCouponID <= 0 {
		return nil, fmt.Errorf("episode %d: %w", episodeID, ErrNoCouponAvailable)
	}

	return NewCoupon(*data.RecommendCouponID), nil
}

// UserCoupons walks the coupon pages until the gateway returns an empty one
func (c *APIClient) UserCoupons(ctx context.Context, cred Credential) ([]*Coupon, error) {
	var coupons []*Coupon

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		env, err := c.post(ctx, endpointGetCoupons, getCouponsRequest{
			NotExpired: true,
			PageNum:    page,
			PageSize:   couponPageSize,
		}, cred)
		if err != nil {
			return nil, err
		}
		if err := expectOK(endpointGetCoupons, env); err != nil {
			return nil, err
		}

		var data struct {
			UserCoupons json.RawMessage `json:"user_coupons"`
		}
		if err := decode(env.Data, &data); err != nil {
			return nil, annotate(err, endpointGetCoupons, env.raw)
		}
		if len(data.UserCoupons) == 0 {
			return nil, annotate(requireFields(env.Data, field{"user_coupons", true}), endpointGetCoupons, env.raw)
		}
		if bytes.Equal(data.UserCoupons, []byte("null")) {
			break
		}

		var entries []json.RawMessage
		if err := json.Unmarshal(data.UserCoupons, &entries); err != nil {
			return nil, &MalformedResponseError{Endpoint: endpointGetCoupons, Field: "user_coupons", Raw: env.raw, Err: err}
		}
		if len(entries) == 0 {
			break
		}

		for _, entry := range entries {
			coupon, err := ParseCoupon(entry)
			if err != nil {
				return nil, annotate(err, endpointGetCoupons, env.raw)
			}
			coupons = append(coupons, coupon)
		}
	}

	c.log.Debug().Int("coupons", len(coupons)).Msg("listed user coupons")
	return coupons, nil
}

// CheckLogin reports whether the account service accepts the credential.
// Code 0 means logged in, -101 means not logged in; anything else is an error.
func (c *APIClient) CheckLogin(ctx context.Context, cred Credential) (bool, error) {
	endpoint, err := url.JoinPath(c.accountBaseURL, endpointNav)
	if err != nil {
		return false, &TransportError{Endpoint: endpointNav, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, &TransportError{Endpoint: endpointNav, Err: err}
	}

	env, err := c.do(req, endpointNav, cred)
	if err != nil {
		return false, err
	}

	switch *env.Code {
	case CodeOK:
		return true, nil
	case CodeUnauthenticated:
		return false, nil
	default:
		return false, &GatewayError{Endpoint: endpointNav, Code: *env.Code, Message: env.message(), Raw: env.raw}
	}
}

func (c *APIClient) post(ctx context.Context, endpoint string, payload any, cred Credential) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", endpoint, err)
	}

	u, err := url.Parse(c.mangaBaseURL)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	u = u.JoinPath("twirp", endpoint)
	u.RawQuery = url.Values{"device": {"pc"}, "platform": {"web"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, cred)
}

func (c *APIClient) do(req *http.Request, endpoint string, cred Credential) (*envelope, error) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if cred != "" {
		req.Header.Set("Cookie", string(cred))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	c.log.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("gateway request")

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w. Body: %s", err, raw)}
	}

	env := &envelope{raw: raw}
	if err := json.Unmarshal(raw, env); err != nil {
		field := ""
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field = typeErr.Field
		}
		return nil, &MalformedResponseError{Endpoint: endpoint, Field: field, Raw: raw, Err: err}
	}
	if env.Code == nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Field: "code", Raw: raw, Err: errors.New("missing")}
	}

	return env, nil
}

func expectOK(endpoint string, env *envelope) error {
	if *env.Code != CodeOK {
		return &GatewayError{Endpoint: endpoint, Code: *env.Code, Message: env.message(), Raw: env.raw}
	}
	return nil
}
