package bilimanga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Cookie string
	UA     string
	Body   map[string]any
}

type gatewayStub struct {
	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]func(body map[string]any) (int, string)
}

func newGatewayStub(t *testing.T) (*gatewayStub, *APIClient) {
	t.Helper()

	stub := &gatewayStub{handlers: map[string]func(map[string]any) (int, string){}}
	srv := httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(srv.Close)

	client := NewAPIClient(Options{
		MangaBaseURL:   srv.URL,
		AccountBaseURL: srv.URL,
		UserAgent:      "mangaunlock-test",
		Timeout:        2 * time.Second,
	})
	return stub, client
}

func (s *gatewayStub) handle(path string, fn func(body map[string]any) (int, string)) {
	s.handlers[path] = fn
}

func (s *gatewayStub) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	body := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Cookie: r.Header.Get("Cookie"),
		UA:     r.Header.Get("User-Agent"),
		Body:   body,
	})
	fn, ok := s.handlers[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	status, resp := fn(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp)
}

func (s *gatewayStub) calls(path string) []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []recordedRequest
	for _, r := range s.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func ok(data string) func(map[string]any) (int, string) {
	return func(map[string]any) (int, string) {
		return http.StatusOK, `{"code":0,"msg":"","data":` + data + `}`
	}
}

func TestComicDetail(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v2.Comic/ComicDetail", ok(comicDetailData))

	comic, err := client.ComicDetail(context.Background(), 26731, "SESSDATA=abc")
	require.NoError(t, err)
	assert.Equal(t, "Pastel Sky", comic.Name)
	assert.Len(t, comic.Chapters, 3)

	calls := stub.calls("/twirp/comic.v2.Comic/ComicDetail")
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "device=pc&platform=web", calls[0].Query)
	assert.Equal(t, "SESSDATA=abc", calls[0].Cookie)
	assert.Equal(t, "mangaunlock-test", calls[0].UA)
	assert.EqualValues(t, 26731, calls[0].Body["comic_id"])
}

// ParseComic must invert the gateway's chapter encoding
func TestComicDetail_RoundTrip(t *testing.T) {
	released := time.Date(2022, 5, 6, 7, 8, 9, 0, gatewayZone)
	chapters := []Chapter{
		{ID: 3, Title: "c", CommentCount: 1, UserPurchased: false, Locked: true, Price: 30, ReleaseTime: released.Add(48 * time.Hour)},
		{ID: 2, Title: "b", CommentCount: 2, UserPurchased: true, Locked: true, Price: 30, ReleaseTime: released.Add(24 * time.Hour)},
		{ID: 1, Title: "a", CommentCount: 3, UserPurchased: true, Locked: false, Price: 0, ReleaseTime: released},
	}

	var eps []string
	for _, ch := range chapters {
		payMode := 0
		if ch.Locked {
			payMode = 1
		}
		eps = append(eps, fmt.Sprintf(`{"id":%d,"title":%q,"comments":%d,"is_locked":%t,"pay_mode":%d,"pay_gold":%d,"pub_time":%q}`,
			ch.ID, ch.Title, ch.CommentCount, !ch.UserPurchased, payMode, ch.Price, ch.ReleaseTime.Format(time.DateTime)))
	}
	data := fmt.Sprintf(`{"id":9,"title":"n","author_name":["x"],"comic_type":2,"styles":["s"],"ep_list":[%s]}`, strings.Join(eps, ","))

	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v2.Comic/ComicDetail", ok(data))

	comic, err := client.ComicDetail(context.Background(), 9, "")
	require.NoError(t, err)
	require.Len(t, comic.Chapters, len(chapters))
	for i := range chapters {
		assert.Equal(t, chapters[i].ID, comic.Chapters[i].ID)
		assert.Equal(t, chapters[i].Title, comic.Chapters[i].Title)
		assert.Equal(t, chapters[i].CommentCount, comic.Chapters[i].CommentCount)
		assert.Equal(t, chapters[i].UserPurchased, comic.Chapters[i].UserPurchased)
		assert.Equal(t, chapters[i].Locked, comic.Chapters[i].Locked)
		assert.Equal(t, chapters[i].Price, comic.Chapters[i].Price)
		assert.True(t, chapters[i].ReleaseTime.Equal(comic.Chapters[i].ReleaseTime))
	}
	assert.True(t, comic.ReleaseTime.Equal(released))
	assert.Equal(t, Category(2), comic.Category)
}

func TestComicDetail_GatewayError(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v2.Comic/ComicDetail", func(map[string]any) (int, string) {
		return http.StatusOK, `{"code":1,"msg":"comic not found"}`
	})

	_, err := client.ComicDetail(context.Background(), 1, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedResponse)

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, 1, gwErr.Code)
	assert.Equal(t, "comic not found", gwErr.Message)
	assert.Contains(t, string(gwErr.Raw), "comic not found")
}

func TestComicDetail_MalformedEnvelope(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v2.Comic/ComicDetail", func(map[string]any) (int, string) {
		return http.StatusOK, `<html>maintenance</html>`
	})

	_, err := client.ComicDetail(context.Background(), 1, "")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "maintenance")
}

func TestComicDetail_HTTPError(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v2.Comic/ComicDetail", func(map[string]any) (int, string) {
		return http.StatusBadGateway, `bad gateway`
	})

	_, err := client.ComicDetail(context.Background(), 1, "")
	assert.ErrorIs(t, err, ErrTransport)

	var trErr *TransportError
	require.True(t, errors.As(err, &trErr))
	assert.Equal(t, http.StatusBadGateway, trErr.StatusCode)
}

func TestSearch(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v1.Comic/Search", ok(`{"list":[
		{"id":1,"org_title":"Pastel Sky","author_name":["Hana"],"styles":["Fantasy"]},
		{"id":2,"org_title":"Pastel Sky 2","author_name":["Hana","Sora"],"styles":[]}
	]}`))

	comics, err := client.Search(context.Background(), "pastel")
	require.NoError(t, err)
	require.Len(t, comics, 2)
	assert.Equal(t, "Pastel Sky 2", comics[1].Name)
	assert.Equal(t, DefaultCategory, comics[1].Category)

	calls := stub.calls("/twirp/comic.v1.Comic/Search")
	require.Len(t, calls, 1)
	assert.Equal(t, "pastel", calls[0].Body["key_word"])
	assert.EqualValues(t, 1, calls[0].Body["page_num"])
	assert.EqualValues(t, 9, calls[0].Body["page_size"])
	assert.Empty(t, calls[0].Cookie)
}

func TestSearch_MissingList(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v1.Comic/Search", ok(`{}`))

	_, err := client.Search(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBuyEpisode(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v1.Comic/BuyEpisode", ok(`{}`))

	require.NoError(t, client.BuyEpisode(context.Background(), 103, 555, "SESSDATA=abc"))

	calls := stub.calls("/twirp/comic.v1.Comic/BuyEpisode")
	require.Len(t, calls, 1)
	assert.EqualValues(t, 2, calls[0].Body["buy_method"])
	assert.EqualValues(t, 103, calls[0].Body["ep_id"])
	assert.EqualValues(t, 555, calls[0].Body["coupon_id"])
	assert.EqualValues(t, 2, calls[0].Body["auto_pay_gold_status"])
}

func TestBuyEpisode_Rejected(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v1.Comic/BuyEpisode", func(map[string]any) (int, string) {
		return http.StatusOK, `{"code":-10000,"msg":"coupon already used"}`
	})

	err := client.BuyEpisode(context.Background(), 103, 555, "")
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
	assert.Contains(t, err.Error(), "-10000")
}

func TestRecommendCoupon(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v1.Comic/GetEpisodeBuyInfo", ok(`{"recommend_coupon_id":555,"allow_coupon":true}`))

	coupon, err := client.RecommendCoupon(context.Background(), 103, "")
	require.NoError(t, err)
	assert.Equal(t, NewCoupon(555), coupon)
	assert.EqualValues(t, 103, stub.calls("/twirp/comic.v1.Comic/GetEpisodeBuyInfo")[0].Body["ep_id"])
}

func TestRecommendCoupon_None(t *testing.T) {
	for _, id := range []string{"0", "-1"} {
		t.Run(id, func(t *testing.T) {
			stub, client := newGatewayStub(t)
			stub.handle("/twirp/comic.v1.Comic/GetEpisodeBuyInfo", ok(`{"recommend_coupon_id":`+id+`}`))

			coupon, err := client.RecommendCoupon(context.Background(), 103, "")
			assert.ErrorIs(t, err, ErrNoCouponAvailable)
			assert.Nil(t, coupon)
		})
	}
}

func TestRecommendCoupon_Missing(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/comic.v1.Comic/GetEpisodeBuyInfo", ok(`{"allow_coupon":true}`))

	_, err := client.RecommendCoupon(context.Background(), 103, "")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestUserCoupons_Paginates(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/user.v1.User/GetCoupons", func(body map[string]any) (int, string) {
		switch body["page_num"] {
		case float64(1):
			return http.StatusOK, `{"code":0,"data":{"user_coupons":[
				{"ID":1,"remain_amount":1,"expire_time":"2021-04-01 00:00:00","type_num":1},
				{"ID":2,"remain_amount":3,"expire_time":"2021-04-02 00:00:00","type_num":1}
			]}}`
		case float64(2):
			return http.StatusOK, `{"code":0,"data":{"user_coupons":[
				{"ID":3,"remain_amount":1,"expire_time":"2021-04-03 00:00:00","type_num":2}
			]}}`
		default:
			return http.StatusOK, `{"code":0,"data":{"user_coupons":[]}}`
		}
	})

	coupons, err := client.UserCoupons(context.Background(), "SESSDATA=abc")
	require.NoError(t, err)
	require.Len(t, coupons, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{coupons[0].ID, coupons[1].ID, coupons[2].ID})

	calls := stub.calls("/twirp/user.v1.User/GetCoupons")
	require.Len(t, calls, 3)
	for i, c := range calls {
		assert.EqualValues(t, i+1, c.Body["page_num"])
		assert.EqualValues(t, 15, c.Body["page_size"])
		assert.Equal(t, true, c.Body["not_expired"])
	}
}

func TestUserCoupons_NullList(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/user.v1.User/GetCoupons", ok(`{"user_coupons":null}`))

	coupons, err := client.UserCoupons(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, coupons)
}

func TestUserCoupons_Malformed(t *testing.T) {
	stub, client := newGatewayStub(t)
	stub.handle("/twirp/user.v1.User/GetCoupons", ok(`{"coupons":[]}`))

	_, err := client.UserCoupons(context.Background(), "")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCheckLogin(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    bool
		wantErr error
	}{
		{"logged in", `{"code":0,"message":"0","data":{"isLogin":true}}`, true, nil},
		{"logged out", `{"code":-101,"message":"账号未登录","data":{"isLogin":false}}`, false, nil},
		{"unexpected code", `{"code":-400,"message":"bad request"}`, false, ErrUnexpectedResponse},
		{"missing code", `{"message":"?"}`, false, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub, client := newGatewayStub(t)
			body := tt.body
			stub.handle("/x/web-interface/nav", func(map[string]any) (int, string) {
				return http.StatusOK, body
			})

			got, err := client.CheckLogin(context.Background(), "SESSDATA=abc")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			calls := stub.calls("/x/web-interface/nav")
			require.Len(t, calls, 1)
			assert.Equal(t, http.MethodGet, calls[0].Method)
			assert.Equal(t, "SESSDATA=abc", calls[0].Cookie)
		})
	}
}

func TestCheckLogin_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewAPIClient(Options{AccountBaseURL: srv.URL, Timeout: time.Second})
	_, err := client.CheckLogin(context.Background(), "")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestContextCancelled(t *testing.T) {
	_, client := newGatewayStub(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ComicDetail(ctx, 1, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
