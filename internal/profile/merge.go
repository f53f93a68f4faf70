package profile

import "github.com/mmynk/profilekeeper/internal/models"

// MergePersonal builds the section to store from the current one and a patch.
// Absent fields keep their current value.
func MergePersonal(cur models.PersonalInfo, patch PersonalPatch) models.PersonalInfo {
	return models.PersonalInfo{
		FullName:         patch.FullName.Apply(cur.FullName),
		Email:            patch.Email.Apply(cur.Email),
		Bio:              patch.Bio.Apply(cur.Bio),
		IsSearching:      patch.IsSearching.Apply(cur.IsSearching),
		ShareContactInfo: patch.ShareContactInfo.Apply(cur.ShareContactInfo),
		ProfilePic:       patch.ProfilePic.Apply(cur.ProfilePic),
		CV:               patch.CV.Apply(cur.CV),
	}.Clone()
}

// MergeSocial builds the social section to store. The additional list is
// replaced whole, never merged element by element.
func MergeSocial(cur models.SocialLinks, patch SocialPatch) models.SocialLinks {
	return models.SocialLinks{
		LinkedIn:   patch.LinkedIn.Apply(cur.LinkedIn),
		GitHub:     patch.GitHub.Apply(cur.GitHub),
		Instagram:  patch.Instagram.Apply(cur.Instagram),
		X:          patch.X.Apply(cur.X),
		Additional: patch.Additional.Apply(cur.Additional),
	}.Clone()
}

// MergeJob builds the job section to store. Lists are replaced whole.
func MergeJob(cur models.JobPreferences, patch JobPatch) models.JobPreferences {
	return models.JobPreferences{
		Locations:         patch.Locations.Apply(cur.Locations),
		SalaryRange:       patch.SalaryRange.Apply(cur.SalaryRange),
		WorkplaceTags:     patch.WorkplaceTags.Apply(cur.WorkplaceTags),
		PreferredTimezone: patch.PreferredTimezone.Apply(cur.PreferredTimezone),
	}.Clone()
}
