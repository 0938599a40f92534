// Package chaturbate adapts the Chaturbate affiliate online-rooms feed.
//
// The feed lists only rooms that are broadcasting, so being listed is the
// online signal. Responses are {"count": N, "results": [...]}; some mirrors
// return the bare results array instead.
package chaturbate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/performer-crawler/internal/adapters/normalize"
	"github.com/JakeFAU/performer-crawler/internal/crawler"
)

// Slug is the platform slug served by this adapter.
const Slug = "chaturbate"

const (
	defaultAPIURL       = "https://chaturbate.com/api/public/affiliates/onlinerooms/"
	defaultAffiliateURL = "https://chaturbate.com/in/"
	defaultSiteURL      = "https://chaturbate.com/"
)

var genderCodes = map[string]crawler.Gender{
	"f": crawler.GenderFemale,
	"m": crawler.GenderMale,
	"c": crawler.GenderCouple,
	"t": crawler.GenderTrans,
	"s": crawler.GenderTrans,
}

var genderParams = map[crawler.Gender]string{
	crawler.GenderFemale: "f",
	crawler.GenderMale:   "m",
	crawler.GenderCouple: "c",
	crawler.GenderTrans:  "t",
}

// Adapter implements crawler.Adapter for Chaturbate.
type Adapter struct {
	fetcher crawler.Fetcher
	logger  *zap.Logger
}

// New builds an Adapter.
func New(fetcher crawler.Fetcher, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{fetcher: fetcher, logger: logger.Named(Slug)}
}

// Slug implements crawler.Adapter.
func (a *Adapter) Slug() string {
	return Slug
}

// FetchPage implements crawler.Adapter.
func (a *Adapter) FetchPage(ctx context.Context, platform crawler.Platform, req crawler.PageRequest) (crawler.Page, error) {
	params := url.Values{
		"wm":        {req.Account.AffiliateID},
		"client_ip": {"request_ip"},
		"format":    {"json"},
		"limit":     {strconv.Itoa(req.Limit)},
		"offset":    {strconv.Itoa(req.Offset)},
		"gender":    {genderParams[req.Gender]},
	}
	endpoint, err := normalize.Endpoint(platform.APIURL, defaultAPIURL, params)
	if err != nil {
		return crawler.Page{}, err
	}

	resp, err := a.fetcher.Fetch(ctx, crawler.FetchRequest{Platform: Slug, URL: endpoint})
	if err != nil {
		return crawler.Page{}, fmt.Errorf("fetch chaturbate rooms at offset %d: %w", req.Offset, err)
	}
	return a.parsePage(resp.Body), nil
}

type roomsEnvelope struct {
	Count   normalize.Int     `json:"count"`
	Results []json.RawMessage `json:"results"`
}

func (a *Adapter) parsePage(body []byte) crawler.Page {
	var env roomsEnvelope
	err := json.Unmarshal(body, &env)
	if err == nil && env.Results != nil {
		return crawler.Page{Records: normalize.Records(env.Results), Total: int(env.Count.Value), Body: body}
	}

	var bare []json.RawMessage
	altErr := json.Unmarshal(body, &bare)
	if altErr == nil {
		return crawler.Page{Records: normalize.Records(bare), Body: body}
	}

	a.logger.Warn("rooms payload matched neither shape; treating as end of listing",
		zap.NamedError("envelope_error", err),
		zap.NamedError("array_error", altErr),
		zap.Int("bytes", len(body)),
	)
	return crawler.Page{Body: body}
}

type room struct {
	Username        string         `json:"username"`
	Slug            string         `json:"slug"`
	DisplayName     string         `json:"display_name"`
	Gender          string         `json:"gender"`
	Age             normalize.Int  `json:"age"`
	Location        string         `json:"location"`
	Country         string         `json:"country"`
	RoomSubject     string         `json:"room_subject"`
	Tags            []string       `json:"tags"`
	NumUsers        normalize.Int  `json:"num_users"`
	NumFollowers    normalize.Int  `json:"num_followers"`
	SpokenLanguages string         `json:"spoken_languages"`
	ImageURL        string         `json:"image_url"`
	ImageURL360     string         `json:"image_url_360x270"`
	ChatRoomURL     string         `json:"chat_room_url"`
	IsHD            normalize.Bool `json:"is_hd"`
	IsNew           normalize.Bool `json:"is_new"`
}

// Normalize implements crawler.Adapter. The room username doubles as the
// external id because the feed carries no numeric identifier.
func (a *Adapter) Normalize(raw crawler.RawRecord) (*crawler.Performer, bool) {
	var r room
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false
	}
	username := strings.TrimSpace(r.Username)
	if username == "" {
		username = strings.TrimSpace(r.Slug)
	}
	externalID := strings.ToLower(username)
	if !normalize.Required(externalID, username) {
		return nil, false
	}

	var flags []string
	if r.IsHD.Value {
		flags = append(flags, "hd")
	}
	if r.IsNew.Value {
		flags = append(flags, "new")
	}

	profileURL := r.ChatRoomURL
	if profileURL == "" {
		profileURL = defaultSiteURL + url.PathEscape(username) + "/"
	}
	avatar := r.ImageURL360
	if avatar == "" {
		avatar = r.ImageURL
	}

	return &crawler.Performer{
		ExternalID:     externalID,
		Username:       username,
		DisplayName:    normalize.String(r.DisplayName),
		ProfileURL:     normalize.String(profileURL),
		AvatarURL:      normalize.String(avatar),
		Bio:            normalize.String(r.RoomSubject),
		Tags:           normalize.Tags(r.Tags, normalize.Hashtags(r.RoomSubject), flags),
		Gender:         normalize.Gender(r.Gender, genderCodes),
		Age:            normalize.Age(r.Age),
		Location:       normalize.String(r.Location),
		Country:        normalize.Country(r.Country),
		IsOnline:       normalize.True(),
		FollowersCount: r.NumFollowers.Ptr(),
		ViewersCount:   r.NumUsers.Ptr(),
		Languages:      normalize.Languages(r.SpokenLanguages),
		RawData:        append(json.RawMessage(nil), raw...),
	}, true
}

// BuildAffiliateURL implements crawler.Adapter.
func (a *Adapter) BuildAffiliateURL(platform crawler.Platform, account crawler.Account, performer crawler.Performer) string {
	endpoint, err := normalize.Endpoint(platform.AffiliateURL, defaultAffiliateURL, url.Values{
		"tour":     {"dT8X"},
		"campaign": {account.AffiliateID},
		"track":    {"default"},
		"room":     {performer.Username},
	})
	if err != nil {
		a.logger.Warn("invalid affiliate base url", zap.String("base", platform.AffiliateURL), zap.Error(err))
		return ""
	}
	return endpoint
}
