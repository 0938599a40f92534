package crawler

import (
	"encoding/json"
	"time"
)

// Gender is the canonical performer gender vocabulary.
type Gender string

// Canonical genders.
const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
	GenderCouple Gender = "couple"
	GenderTrans  Gender = "trans"
)

// ParseGender maps the CLI/config spelling onto the canonical vocabulary.
func ParseGender(s string) (Gender, bool) {
	switch s {
	case "":
		return "", true
	case "f", "female", "woman", "women":
		return GenderFemale, true
	case "m", "male", "man", "men":
		return GenderMale, true
	case "c", "couple", "couples":
		return GenderCouple, true
	case "t", "s", "trans", "transgender":
		return GenderTrans, true
	default:
		return "", false
	}
}

// Performer is the canonical shape every adapter produces. Pointer, slice and
// map fields are nil when the platform did not supply them.
type Performer struct {
	ID         string `json:"id"`
	PlatformID int64  `json:"platform_id"`
	ExternalID string `json:"external_id"`
	Username   string `json:"username"`

	DisplayName *string `json:"display_name,omitempty"`
	ProfileURL  *string `json:"profile_url,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	CoverURL    *string `json:"cover_url,omitempty"`
	Bio         *string `json:"bio,omitempty"`

	Tags []string `json:"tags,omitempty"`

	Gender    *Gender `json:"gender,omitempty"`
	BodyType  *string `json:"body_type,omitempty"`
	Ethnicity *string `json:"ethnicity,omitempty"`
	Age       *int    `json:"age,omitempty"`
	Location  *string `json:"location,omitempty"`
	Country   *string `json:"country,omitempty"`

	IsVerified    *bool      `json:"is_verified,omitempty"`
	IsOnline      *bool      `json:"is_online,omitempty"`
	LastOnlineAt  *time.Time `json:"last_online_at,omitempty"`
	LastCrawledAt *time.Time `json:"last_crawled_at,omitempty"`

	FollowersCount   *int64 `json:"followers_count,omitempty"`
	SubscribersCount *int64 `json:"subscribers_count,omitempty"`
	MediaCount       *int64 `json:"media_count,omitempty"`
	ViewersCount     *int64 `json:"viewers_count,omitempty"`

	SubscriptionPrice *float64 `json:"subscription_price,omitempty"`
	Currency          *string  `json:"currency,omitempty"`

	Languages   []string          `json:"languages,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
	IsPromoted  *bool             `json:"is_promoted,omitempty"`

	RawData json.RawMessage `json:"raw_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Promoted reports whether the performer is flagged for affiliate promotion.
func (p Performer) Promoted() bool {
	return p.IsPromoted != nil && *p.IsPromoted
}
