package api

import (
	"time"

	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/profile"
)

// Account is the wire form of models.UserAccount.
type Account struct {
	Principal string       `json:"principal"`
	CreatedAt time.Time    `json:"createdAt"`
	Profile   Profile      `json:"profile"`
	Stats     models.Stats `json:"stats"`
}

type Profile struct {
	Personal models.PersonalInfo   `json:"personal"`
	Social   SocialLinks           `json:"social"`
	Job      models.JobPreferences `json:"job"`
}

// AdditionalLink is an extra social link. ID is generated per response so
// clients can key list items; it is not stored and ignored on input.
type AdditionalLink struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url"`
}

// SocialLinks is the wire form of models.SocialLinks.
type SocialLinks struct {
	LinkedIn   models.Opt[string]           `json:"linkedin,omitzero"`
	GitHub     models.Opt[string]           `json:"github,omitzero"`
	Instagram  models.Opt[string]           `json:"instagram,omitzero"`
	X          models.Opt[string]           `json:"x,omitzero"`
	Additional models.Opt[[]AdditionalLink] `json:"additional,omitzero"`
}

// SocialLinksPatch is the wire form of profile.SocialPatch.
type SocialLinksPatch struct {
	LinkedIn   profile.Field[string]           `json:"linkedin,omitzero"`
	GitHub     profile.Field[string]           `json:"github,omitzero"`
	Instagram  profile.Field[string]           `json:"instagram,omitzero"`
	X          profile.Field[string]           `json:"x,omitzero"`
	Additional profile.Field[[]AdditionalLink] `json:"additional,omitzero"`
}

type GetOrCreateAccountRequest struct{}

type GetOrCreateAccountResponse struct {
	Account *Account `json:"account"`
}

type GetCompleteAccountRequest struct{}

type GetCompleteAccountResponse struct {
	Account *Account `json:"account"`
}

type GetPersonalInfoRequest struct{}

type GetPersonalInfoResponse struct {
	Personal *models.PersonalInfo `json:"personal,omitempty"`
}

type UpdatePersonalInfoRequest struct {
	Personal profile.PersonalPatch `json:"personal"`
}

// UpdatePersonalInfoResponse carries the stored section. Personal is nil when
// the update was dropped because the caller has no account.
type UpdatePersonalInfoResponse struct {
	Personal *models.PersonalInfo `json:"personal,omitempty"`
}

type GetSocialLinksRequest struct{}

type GetSocialLinksResponse struct {
	Social *SocialLinks `json:"social,omitempty"`
}

type UpdateSocialLinksRequest struct {
	Social SocialLinksPatch `json:"social"`
}

type UpdateSocialLinksResponse struct {
	Social *SocialLinks `json:"social,omitempty"`
}

type GetJobPreferencesRequest struct{}

type GetJobPreferencesResponse struct {
	Job *models.JobPreferences `json:"job,omitempty"`
}

type UpdateJobPreferencesRequest struct {
	Job profile.JobPatch `json:"job"`
}

type UpdateJobPreferencesResponse struct {
	Job *models.JobPreferences `json:"job,omitempty"`
}

type ChallengeRequest struct{}

type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginRequest proves control of an ed25519 key by signing a challenge nonce.
type LoginRequest struct {
	PublicKey []byte `json:"publicKey"` // DER SubjectPublicKeyInfo
	Nonce     string `json:"nonce"`
	Signature []byte `json:"signature"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Principal string    `json:"principal"`
	ExpiresAt time.Time `json:"expiresAt"`
}
