// Package bongacams adapts the BongaCams promo tools online-models feed.
//
// The feed answers with a bare JSON array and sends nearly every number as a
// string. Older promo endpoints wrap the array as {"models": [...]}.
package bongacams

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
const Slug = "bongacams"

const (
	defaultAPIURL       = "https://tools.bongacams.com/promo.php?type=api&api_type=json"
	defaultAffiliateURL = "https://bongacams.com/track"
	defaultSiteURL      = "https://bongacams.com/"
)

var genderCodes = map[string]crawler.Gender{
	"female":      crawler.GenderFemale,
	"male":        crawler.GenderMale,
	"couple":      crawler.GenderCouple,
	"couples":     crawler.GenderCouple,
	"female+male": crawler.GenderCouple,
	"transsexual": crawler.GenderTrans,
	"trans":       crawler.GenderTrans,
}

var genderParams = map[crawler.Gender]string{
	crawler.GenderFemale: "female",
	crawler.GenderMale:   "male",
	crawler.GenderCouple: "couples",
	crawler.GenderTrans:  "transsexual",
}

// Adapter implements crawler.Adapter for BongaCams.
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
		"c":        {req.Account.AffiliateID},
		"limit":    {strconv.Itoa(req.Limit)},
		"offset":   {strconv.Itoa(req.Offset)},
		"category": {genderParams[req.Gender]},
	}
	endpoint, err := normalize.Endpoint(platform.APIURL, defaultAPIURL, params)
	if err != nil {
		return crawler.Page{}, err
	}

	resp, err := a.fetcher.Fetch(ctx, crawler.FetchRequest{Platform: Slug, URL: endpoint})
	if err != nil {
		return crawler.Page{}, fmt.Errorf("fetch bongacams models at offset %d: %w", req.Offset, err)
	}
	return a.parsePage(resp.Body), nil
}

func (a *Adapter) parsePage(body []byte) crawler.Page {
	var bare []json.RawMessage
	err := json.Unmarshal(body, &bare)
	if err == nil {
		return crawler.Page{Records: normalize.Records(bare), Body: body}
	}

	var wrapped struct {
		Models []json.RawMessage `json:"models"`
	}
	altErr := json.Unmarshal(body, &wrapped)
	if altErr == nil && wrapped.Models != nil {
		return crawler.Page{Records: normalize.Records(wrapped.Models), Body: body}
	}

	a.logger.Warn("models payload matched neither shape; treating as end of listing",
		zap.NamedError("array_error", err),
		zap.NamedError("models_error", altErr),
		zap.Int("bytes", len(body)),
	)
	return crawler.Page{Body: body}
}

type profileImages struct {
	ThumbnailBigLive string `json:"thumbnail_image_big_live"`
	ThumbnailBig     string `json:"thumbnail_image_big"`
	ProfileImage     string `json:"profile_image"`
}

type performer struct {
	Username          string         `json:"username"`
	DisplayName       string         `json:"display_name"`
	Gender            string         `json:"gender"`
	DisplayAge        normalize.Int  `json:"display_age"`
	Ethnicity         string         `json:"ethnicity"`
	Build             string         `json:"build"`
	City              string         `json:"city"`
	Country           string         `json:"homecountry"`
	ChatURL           string         `json:"chat_url"`
	ProfileImages     profileImages  `json:"profile_images"`
	MembersCount      normalize.Int  `json:"members_count"`
	FavoritesCount    normalize.Int  `json:"favorites_count"`
	Tags              []string       `json:"tags"`
	Turnons           string         `json:"turns_on"`
	PrimaryLanguage   string         `json:"primary_language"`
	SecondaryLanguage string         `json:"secondary_language"`
	Online            normalize.Bool `json:"online"`
	HDCam             normalize.Bool `json:"hd_cam"`
	VibraToy          normalize.Bool `json:"vibratoy"`
	IsNew             normalize.Bool `json:"is_new"`
}

// Normalize implements crawler.Adapter. BongaCams usernames are stable and
// unique, so they serve as the external id.
func (a *Adapter) Normalize(raw crawler.RawRecord) (*crawler.Performer, bool) {
	var p performer
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	username := strings.TrimSpace(p.Username)
	externalID := strings.ToLower(username)
	if !normalize.Required(externalID, username) {
		return nil, false
	}

	var flags []string
	if p.HDCam.Value {
		flags = append(flags, "hd")
	}
	if p.VibraToy.Value {
		flags = append(flags, "interactive toy")
	}
	if p.IsNew.Value {
		flags = append(flags, "new")
	}

	// Listed in the online feed unless the record says otherwise.
	online := p.Online.Ptr()
	if online == nil {
		online = normalize.True()
	}

	profileURL := p.ChatURL
	if profileURL == "" {
		profileURL = defaultSiteURL + url.PathEscape(username)
	}
	avatar := p.ProfileImages.ThumbnailBigLive
	if avatar == "" {
		avatar = p.ProfileImages.ThumbnailBig
	}

	return &crawler.Performer{
		ExternalID:     externalID,
		Username:       username,
		DisplayName:    normalize.String(p.DisplayName),
		ProfileURL:     normalize.String(profileURL),
		AvatarURL:      normalize.String(avatar),
		CoverURL:       normalize.String(p.ProfileImages.ProfileImage),
		Bio:            normalize.String(p.Turnons),
		Tags:           normalize.Tags(p.Tags, flags),
		Gender:         normalize.Gender(p.Gender, genderCodes),
		BodyType:       normalize.String(strings.ToLower(p.Build)),
		Ethnicity:      normalize.String(strings.ToLower(p.Ethnicity)),
		Age:            normalize.Age(p.DisplayAge),
		Location:       normalize.String(p.City),
		Country:        normalize.String(p.Country),
		IsOnline:       online,
		FollowersCount: p.FavoritesCount.Ptr(),
		ViewersCount:   p.MembersCount.Ptr(),
		Languages:      normalize.Languages(p.PrimaryLanguage, p.SecondaryLanguage),
		RawData:        append(json.RawMessage(nil), raw...),
	}, true
}

// BuildAffiliateURL implements crawler.Adapter.
func (a *Adapter) BuildAffiliateURL(platform crawler.Platform, account crawler.Account, performer crawler.Performer) string {
	endpoint, err := normalize.Endpoint(platform.AffiliateURL, defaultAffiliateURL, url.Values{
		"c":     {account.AffiliateID},
		"csurl": {defaultSiteURL + url.PathEscape(performer.Username)},
	})
	if err != nil {
		a.logger.Warn("invalid affiliate base url", zap.String("base", platform.AffiliateURL), zap.Error(err))
		return ""
	}
	return endpoint
}
