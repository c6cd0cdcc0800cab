package bilimanga

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// gatewayZone is the zone the gateway writes its naive timestamps in
var gatewayZone = time.FixedZone("CST", 8*60*60)

type chapterPayload struct {
	ID       *int    `json:"id"`
	Title    *string `json:"title"`
	Comments *int    `json:"comments"`
	IsLocked *bool   `json:"is_locked"`
	PayMode  *int    `json:"pay_mode"`
	PayGold  *int    `json:"pay_gold"`
	PubTime  *string `json:"pub_time"`
}

type comicPayload struct {
	ID         *int               `json:"id"`
	Title      *string            `json:"title"`
	AuthorName *[]string          `json:"author_name"`
	ComicType  *int               `json:"comic_type"`
	Styles     *[]string          `json:"styles"`
	EpList     *[]json.RawMessage `json:"ep_list"`
}

type comicSummaryPayload struct {
	ID         *int      `json:"id"`
	OrgTitle   *string   `json:"org_title"`
	AuthorName *[]string `json:"author_name"`
	Styles     *[]string `json:"styles"`
}

type couponPayload struct {
	ID         *int `json:"ID"`
	Remaining  *int `json:"remain_amount"`
	ExpireTime any  `json:"expire_time"`
	TypeNum    *int `json:"type_num"`
}

// ParseChapter builds a chapter from one ep_list entry
func ParseChapter(raw []byte) (Chapter, error) {
	var p chapterPayload
	if err := decode(raw, &p); err != nil {
		return Chapter{}, err
	}

	if err := requireFields(raw,
		field{"id", p.ID == nil},
		field{"title", p.Title == nil},
		field{"comments", p.Comments == nil},
		field{"is_locked", p.IsLocked == nil},
		field{"pay_mode", p.PayMode == nil},
		field{"pay_gold", p.PayGold == nil},
		field{"pub_time", p.PubTime == nil},
	); err != nil {
		return Chapter{}, err
	}

	released, err := parseTimestamp(*p.PubTime)
	if err != nil {
		return Chapter{}, &MalformedResponseError{Field: "pub_time", Raw: raw, Err: err}
	}

	return Chapter{
		ID:            *p.ID,
		Title:         *p.Title,
		CommentCount:  *p.Comments,
		UserPurchased: !*p.IsLocked,
		Locked:        *p.PayMode == 1,
		Price:         *p.PayGold,
		ReleaseTime:   released,
	}, nil
}

// ParseComic builds a comic from a ComicDetail data object
func ParseComic(raw []byte) (*Comic, error) {
	var p comicPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	if err := requireFields(raw,
		field{"id", p.ID == nil},
		field{"title", p.Title == nil},
		field{"author_name", p.AuthorName == nil},
		field{"comic_type", p.ComicType == nil},
		field{"styles", p.Styles == nil},
		field{"ep_list", p.EpList == nil},
	); err != nil {
		return nil, err
	}

	chapters := make([]Chapter, 0, len(*p.EpList))
	for _, ep := range *p.EpList {
		ch, err := ParseChapter(ep)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}

	return NewComic(*p.ID, *p.Title, *p.AuthorName, Category(*p.ComicType), *p.Styles, chapters), nil
}

// ParseComicSummary builds a chapterless comic from a search list entry
func ParseComicSummary(raw []byte) (*Comic, error) {
	var p comicSummaryPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	if err := requireFields(raw,
		field{"id", p.ID == nil},
		field{"org_title", p.OrgTitle == nil},
		field{"author_name", p.AuthorName == nil},
		field{"styles", p.Styles == nil},
	); err != nil {
		return nil, err
	}

	return NewComic(*p.ID, *p.OrgTitle, *p.AuthorName, DefaultCategory, *p.Styles, nil), nil
}

// ParseCoupon builds a coupon from a user_coupons entry
func ParseCoupon(raw []byte) (*Coupon, error) {
	var p couponPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}

	if err := requireFields(raw,
		field{"ID", p.ID == nil},
		field{"remain_amount", p.Remaining == nil},
		field{"expire_time", p.ExpireTime == nil},
		field{"type_num", p.TypeNum == nil},
	); err != nil {
		return nil, err
	}

	expire, err := parseTimestamp(p.ExpireTime)
	if err != nil {
		return nil, &MalformedResponseError{Field: "expire_time", Raw: raw, Err: err}
	}

	return &Coupon{
		ID:        *p.ID,
		Remaining: *p.Remaining,
		Expire:    expire,
		Type:      *p.TypeNum,
	}, nil
}

// looseLayouts cover slash separated and unpadded dates
var looseLayouts = []string{
	"2006-1-2 15:4:5",
	"2006/1/2 15:4:5",
	"2006-1-2",
	"2006/1/2",
}

// parseTimestamp accepts the gateway's "2006-01-02 15:04:05" strings as well as unix seconds
func parseTimestamp(v any) (time.Time, error) {
	t, err := cast.ToTimeInDefaultLocationE(v, gatewayZone)
	if err == nil {
		return t, nil
	}

	s, ok := v.(string)
	if !ok {
		return time.Time{}, err
	}
	s = strings.TrimSpace(s)
	for _, layout := range looseLayouts {
		if t, perr := time.ParseInLocation(layout, s, gatewayZone); perr == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

type field struct {
	name    string
	missing bool
}

func requireFields(raw []byte, fields ...field) error {
	for _, f := range fields {
		if f.missing {
			return &MalformedResponseError{Field: f.name, Raw: raw, Err: errors.New("missing")}
		}
	}
	return nil
}

func decode(raw []byte, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &MalformedResponseError{Raw: raw, Err: errors.New("empty payload")}
	}

	if err := json.Unmarshal(raw, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &MalformedResponseError{Field: typeErr.Field, Raw: raw, Err: err}
		}
		return &MalformedResponseError{Raw: raw, Err: err}
	}
	return nil
}
