package service

import (
	"github.com/google/uuid"

	"github.com/mmynk/profilekeeper/internal/api"
	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/profile"
)

// accountToAPI converts a stored account to its wire form.
func accountToAPI(acc *models.UserAccount) *api.Account {
	social := socialToAPI(acc.Profile.Social)
	return &api.Account{
		Principal: acc.Principal.String(),
		CreatedAt: acc.CreatedAt,
		Profile: api.Profile{
			Personal: acc.Profile.Personal,
			Social:   *social,
			Job:      acc.Profile.Job,
		},
		Stats: acc.Stats,
	}
}

// socialToAPI gives each additional link a fresh id. Ids are only stable
// within one response.
func socialToAPI(s models.SocialLinks) *api.SocialLinks {
	out := &api.SocialLinks{
		LinkedIn:  s.LinkedIn,
		GitHub:    s.GitHub,
		Instagram: s.Instagram,
		X:         s.X,
	}
	if urls, ok := s.Additional.Get(); ok {
		links := make([]api.AdditionalLink, len(urls))
		for i, u := range urls {
			links[i] = api.AdditionalLink{ID: uuid.NewString(), URL: u}
		}
		out.Additional = models.Some(links)
	}
	return out
}

// socialPatchFromAPI drops link ids; only order is stored.
func socialPatchFromAPI(p api.SocialLinksPatch) profile.SocialPatch {
	return profile.SocialPatch{
		LinkedIn:  p.LinkedIn,
		GitHub:    p.GitHub,
		Instagram: p.Instagram,
		X:         p.X,
		Additional: profile.MapField(p.Additional, func(links []api.AdditionalLink) []string {
			urls := make([]string, len(links))
			for i, l := range links {
				urls[i] = l.URL
			}
			return urls
		}),
	}
}
