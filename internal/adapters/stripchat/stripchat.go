// Package stripchat adapts the Stripchat affiliate models feed.
package stripchat

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
const Slug = "stripchat"

const (
	defaultAPIURL       = "https://go.stripchat.com/api/models"
	defaultAffiliateURL = "https://go.stripchat.com/"
	defaultSiteURL      = "https://stripchat.com/"
)

var genderCodes = map[string]crawler.Gender{
	"female":       crawler.GenderFemale,
	"male":         crawler.GenderMale,
	"couples":      crawler.GenderCouple,
	"malefemale":   crawler.GenderCouple,
	"femalefemale": crawler.GenderCouple,
	"malemale":     crawler.GenderCouple,
	"trans":        crawler.GenderTrans,
	"tranny":       crawler.GenderTrans,
}

var genderParams = map[crawler.Gender]string{
	crawler.GenderFemale: "girls",
	crawler.GenderMale:   "men",
	crawler.GenderCouple: "couples",
	crawler.GenderTrans:  "trans",
}

// Statuses that mean the model is broadcasting in some form.
var liveStatuses = map[string]bool{
	"public":    true,
	"private":   true,
	"p2p":       true,
	"groupshow": true,
	"virtual":   true,
}

// Adapter implements crawler.Adapter for Stripchat.
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
		"userId": {req.Account.AffiliateID},
		"limit":  {strconv.Itoa(req.Limit)},
		"offset": {strconv.Itoa(req.Offset)},
		"tag":    {genderParams[req.Gender]},
	}
	if req.JobType == crawler.JobTypeOnlineSync {
		params.Set("isOnline", "true")
	}
	endpoint, err := normalize.Endpoint(platform.APIURL, defaultAPIURL, params)
	if err != nil {
		return crawler.Page{}, err
	}

	fetchReq := crawler.FetchRequest{Platform: Slug, URL: endpoint}
	if req.Account.APIKey != "" {
		fetchReq.Headers = map[string]string{"Authorization": "Bearer " + req.Account.APIKey}
	}
	resp, err := a.fetcher.Fetch(ctx, fetchReq)
	if err != nil {
		return crawler.Page{}, fmt.Errorf("fetch stripchat models at offset %d: %w", req.Offset, err)
	}
	return a.parsePage(resp.Body), nil
}

type modelsEnvelope struct {
	Count  normalize.Int     `json:"count"`
	Total  normalize.Int     `json:"total"`
	Models []json.RawMessage `json:"models"`
}

type dataEnvelope struct {
	Total normalize.Int     `json:"total"`
	Data  []json.RawMessage `json:"data"`
}

func (a *Adapter) parsePage(body []byte) crawler.Page {
	var env modelsEnvelope
	err := json.Unmarshal(body, &env)
	if err == nil && env.Models != nil {
		total := env.Total.Value
		if !env.Total.Valid {
			total = env.Count.Value
		}
		return crawler.Page{Records: normalize.Records(env.Models), Total: int(total), Body: body}
	}

	var alt dataEnvelope
	altErr := json.Unmarshal(body, &alt)
	if altErr == nil && alt.Data != nil {
		return crawler.Page{Records: normalize.Records(alt.Data), Total: int(alt.Total.Value), Body: body}
	}

	a.logger.Warn("models payload matched neither shape; treating as end of listing",
		zap.NamedError("models_error", err),
		zap.NamedError("data_error", altErr),
		zap.Int("bytes", len(body)),
	)
	return crawler.Page{Body: body}
}

type model struct {
	ID              normalize.Int  `json:"id"`
	Username        string         `json:"username"`
	DisplayName     string         `json:"displayName"`
	Gender          string         `json:"gender"`
	BroadcastGender string         `json:"broadcastGender"`
	AvatarURL       string         `json:"avatarUrl"`
	SnapshotURL     string         `json:"snapshotUrl"`
	PreviewURL      string         `json:"previewUrl"`
	Description     string         `json:"description"`
	Tags            []string       `json:"tags"`
	AutoTags        []string       `json:"autoTags"`
	Languages       []string       `json:"languages"`
	Country         string         `json:"country"`
	Age             normalize.Int  `json:"age"`
	BodyType        string         `json:"bodyType"`
	Ethnicity       string         `json:"ethnicity"`
	IsOnline        normalize.Bool `json:"isOnline"`
	Status          string         `json:"status"`
	IsVerified      normalize.Bool `json:"isVerified"`
	ViewersCount    normalize.Int  `json:"viewersCount"`
	FavoritedCount  normalize.Int  `json:"favoritedCount"`
	IsNew           normalize.Bool `json:"isNew"`
}

// Normalize implements crawler.Adapter.
func (a *Adapter) Normalize(raw crawler.RawRecord) (*crawler.Performer, bool) {
	var m model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	externalID := ""
	if m.ID.Valid && m.ID.Value > 0 {
		externalID = strconv.FormatInt(m.ID.Value, 10)
	}
	username := strings.TrimSpace(m.Username)
	if !normalize.Required(externalID, username) {
		return nil, false
	}

	gender := m.BroadcastGender
	if gender == "" {
		gender = m.Gender
	}
	var flags []string
	if m.IsNew.Value {
		flags = append(flags, "new")
	}
	cover := m.SnapshotURL
	if cover == "" {
		cover = m.PreviewURL
	}

	return &crawler.Performer{
		ExternalID:     externalID,
		Username:       username,
		DisplayName:    normalize.String(m.DisplayName),
		ProfileURL:     normalize.String(defaultSiteURL + url.PathEscape(username)),
		AvatarURL:      normalize.String(m.AvatarURL),
		CoverURL:       normalize.String(cover),
		Bio:            normalize.String(m.Description),
		Tags:           normalize.Tags(m.Tags, m.AutoTags, flags),
		Gender:         normalize.Gender(gender, genderCodes),
		BodyType:       normalize.String(strings.ToLower(m.BodyType)),
		Ethnicity:      normalize.String(strings.ToLower(m.Ethnicity)),
		Age:            normalize.Age(m.Age),
		Country:        normalize.Country(m.Country),
		IsVerified:     m.IsVerified.Ptr(),
		IsOnline:       onlineSignal(m),
		FollowersCount: m.FavoritedCount.Ptr(),
		ViewersCount:   m.ViewersCount.Ptr(),
		Languages:      normalize.Tags(m.Languages),
		RawData:        append(json.RawMessage(nil), raw...),
	}, true
}

// onlineSignal prefers the explicit flag and falls back to the show status.
func onlineSignal(m model) *bool {
	if m.IsOnline.Valid {
		return m.IsOnline.Ptr()
	}
	status := strings.ToLower(strings.TrimSpace(m.Status))
	if status == "" {
		return nil
	}
	online := liveStatuses[status]
	return &online
}

// BuildAffiliateURL implements crawler.Adapter.
func (a *Adapter) BuildAffiliateURL(platform crawler.Platform, account crawler.Account, performer crawler.Performer) string {
	endpoint, err := normalize.Endpoint(platform.AffiliateURL, defaultAffiliateURL, url.Values{
		"userId": {account.AffiliateID},
		"path":   {"/" + performer.Username},
	})
	if err != nil {
		a.logger.Warn("invalid affiliate base url", zap.String("base", platform.AffiliateURL), zap.Error(err))
		return ""
	}
	return endpoint
}
