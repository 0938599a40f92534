package crawler

import "slices"

// Field names a Performer attribute that can be marked always-fresh.
type Field string

// Fields eligible for always-fresh treatment.
const (
	FieldIsOnline      Field = "is_online"
	FieldLastOnlineAt  Field = "last_online_at"
	FieldLastCrawledAt Field = "last_crawled_at"
)

// DefaultAlwaysFresh lists the fields every crawl overwrites unconditionally.
var DefaultAlwaysFresh = []Field{FieldIsOnline, FieldLastOnlineAt, FieldLastCrawledAt}

// MergeExisting folds incoming into existing. A nil incoming value keeps the
// stored one; fields listed in alwaysFresh take the incoming value even when
// it is nil. Identity and creation time always come from existing.
func MergeExisting(existing, incoming Performer, alwaysFresh []Field) Performer {
	fresh := make(map[Field]bool, len(alwaysFresh))
	for _, f := range alwaysFresh {
		fresh[f] = true
	}

	out := existing
	if incoming.Username != "" {
		out.Username = incoming.Username
	}

	out.DisplayName = keep(existing.DisplayName, incoming.DisplayName)
	out.ProfileURL = keep(existing.ProfileURL, incoming.ProfileURL)
	out.AvatarURL = keep(existing.AvatarURL, incoming.AvatarURL)
	out.CoverURL = keep(existing.CoverURL, incoming.CoverURL)
	out.Bio = keep(existing.Bio, incoming.Bio)
	out.Gender = keep(existing.Gender, incoming.Gender)
	out.BodyType = keep(existing.BodyType, incoming.BodyType)
	out.Ethnicity = keep(existing.Ethnicity, incoming.Ethnicity)
	out.Age = keep(existing.Age, incoming.Age)
	out.Location = keep(existing.Location, incoming.Location)
	out.Country = keep(existing.Country, incoming.Country)
	out.IsVerified = keep(existing.IsVerified, incoming.IsVerified)
	out.FollowersCount = keep(existing.FollowersCount, incoming.FollowersCount)
	out.SubscribersCount = keep(existing.SubscribersCount, incoming.SubscribersCount)
	out.MediaCount = keep(existing.MediaCount, incoming.MediaCount)
	out.ViewersCount = keep(existing.ViewersCount, incoming.ViewersCount)
	out.SubscriptionPrice = keep(existing.SubscriptionPrice, incoming.SubscriptionPrice)
	out.Currency = keep(existing.Currency, incoming.Currency)
	out.IsPromoted = keep(existing.IsPromoted, incoming.IsPromoted)

	if incoming.Tags != nil {
		out.Tags = slices.Clone(incoming.Tags)
	}
	if incoming.Languages != nil {
		out.Languages = slices.Clone(incoming.Languages)
	}
	if incoming.SocialLinks != nil {
		links := make(map[string]string, len(incoming.SocialLinks))
		for k, v := range incoming.SocialLinks {
			links[k] = v
		}
		out.SocialLinks = links
	}
	if len(incoming.RawData) > 0 {
		out.RawData = append([]byte(nil), incoming.RawData...)
	}

	out.IsOnline = pick(fresh[FieldIsOnline], existing.IsOnline, incoming.IsOnline)
	out.LastOnlineAt = pick(fresh[FieldLastOnlineAt], existing.LastOnlineAt, incoming.LastOnlineAt)
	out.LastCrawledAt = pick(fresh[FieldLastCrawledAt], existing.LastCrawledAt, incoming.LastCrawledAt)

	if !incoming.UpdatedAt.IsZero() {
		out.UpdatedAt = incoming.UpdatedAt
	}
	return out
}

func keep[T any](existing, incoming *T) *T {
	if incoming != nil {
		return incoming
	}
	return existing
}

func pick[T any](fresh bool, existing, incoming *T) *T {
	if fresh {
		return incoming
	}
	return keep(existing, incoming)
}
