package model

import "time"

// User is the profile kept next to the credential held by the identity provider.
type User struct {
	Id                string    `json:"uid"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	AvatarId          string    `json:"avatarId"`
	AvatarUrl         string    `json:"avatarUrl"`
	SelectedAllergies []string  `json:"selectedAllergies"`
	Country           string    `json:"country"`
	CountryCode       string    `json:"countryCode"`
	IsAdmin           bool      `json:"isAdmin"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Author is the snapshot of a user stored with the content they create.
type Author struct {
	Id        string `json:"userId"`
	Username  string `json:"username"`
	AvatarUrl string `json:"userAvatarUrl"`
}

func (u *User) AsAuthor() *Author {
	return &Author{
		Id:        u.Id,
		Username:  u.Username,
		AvatarUrl: u.AvatarUrl,
	}
}

// HasAllergy reports whether the allergen matches one of the user's allergies, ignoring case.
func (u *User) HasAllergy(allergen string) bool {
	for _, allergy := range u.SelectedAllergies {
		if equalFold(allergy, allergen) {
			return true
		}
	}
	return false
}
