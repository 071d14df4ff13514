package app

import (
	"context"
	"errors"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	appDb "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/nutriscan/nutriscan-be/services"
	"github.com/nutriscan/nutriscan-be/util"
	"go.uber.org/zap"
)

const (
	MaxUsernameLength = 40

	// avatar ids for pictures that are not one of the preset options
	AvatarIdGenerated = "generated"
	AvatarIdCustom    = "custom"
)

type Profiles struct {
	users    appDb.UserDatabase
	identity services.Identity
	blobs    services.BlobStore
	events   Publisher
	log      *zap.Logger
}

func NewProfiles(users appDb.UserDatabase, identity services.Identity, blobs services.BlobStore, events Publisher, log *zap.Logger) *Profiles {
	return &Profiles{
		users:    users,
		identity: identity,
		blobs:    blobs,
		events:   events,
		log:      log,
	}
}

type ProfileRequest struct {
	Username          string   `json:"username"`
	AvatarId          string   `json:"avatarId"`
	SelectedAllergies []string `json:"selectedAllergies"`
	Country           string   `json:"country"`
	CountryCode       string   `json:"countryCode"`
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	ProfileRequest
}

type AccountResult struct {
	User *model.User `json:"user"`
	// Session is nil when the identity provider issues tokens to the client itself.
	Session *services.Session `json:"session,omitempty"`
}

// SignUp creates the credential and then the profile. The credential is removed
// again when the profile cannot be stored.
func (p *Profiles) SignUp(ctx context.Context, req *SignUpRequest) (*AccountResult, error) {
	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidInput("email address is invalid")
	}
	user, err := buildProfile(&req.ProfileRequest)
	if err != nil {
		return nil, err
	}

	userId, err := p.identity.SignUp(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}
	user.Id = userId
	user.Email = strings.ToLower(email)
	if err := p.users.CreateUser(ctx, user); err != nil {
		if rollbackErr := p.identity.DeleteAccount(ctx, userId); rollbackErr != nil {
			p.log.Error("failed to roll back credential", zap.String("userId", userId), zap.Error(rollbackErr))
		}
		return nil, err
	}

	session, err := p.identity.SignIn(ctx, email, req.Password)
	if err != nil && !errors.Is(err, services.ErrUnsupported) {
		return nil, err
	}
	return &AccountResult{User: user, Session: session}, nil
}

// CreateProfile stores the profile of a caller who already holds a credential, which
// is how clients that sign up with Firebase directly finish registration.
func (p *Profiles) CreateProfile(ctx context.Context, claims *services.Claims, req *ProfileRequest) (*model.User, error) {
	user, err := buildProfile(req)
	if err != nil {
		return nil, err
	}
	user.Id = claims.UserId
	user.Email = strings.ToLower(claims.Email)
	if err := p.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (p *Profiles) SignIn(ctx context.Context, email string, password string) (*AccountResult, error) {
	session, err := p.identity.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	user, err := p.users.GetUser(ctx, session.UserId)
	if err != nil {
		return nil, err
	}
	return &AccountResult{User: user, Session: session}, nil
}

func buildProfile(req *ProfileRequest) (*model.User, error) {
	username, err := cleanUsername(req.Username)
	if err != nil {
		return nil, err
	}
	allergies, err := NormalizeAllergies(req.SelectedAllergies)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:          username,
		SelectedAllergies: allergies,
		Country:           strings.TrimSpace(req.Country),
		CountryCode:       strings.ToUpper(strings.TrimSpace(req.CountryCode)),
	}
	if req.AvatarId == "" {
		user.AvatarId = AvatarIdGenerated
		user.AvatarUrl = util.Avatar(username)
		return user, nil
	}
	option, ok := model.FindAvatarOption(req.AvatarId)
	if !ok {
		return nil, invalidInput("unknown avatar %q", req.AvatarId)
	}
	user.AvatarId = option.Id
	user.AvatarUrl = option.Uri
	return user, nil
}

func cleanUsername(raw string) (string, error) {
	username := util.CleanText(raw)
	if username == "" {
		return "", invalidInput("username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return "", invalidInput("username is longer than %d characters", MaxUsernameLength)
	}
	return username, nil
}

// NormalizeAllergies maps every entry to its spelling in the allergy options and
// returns them de-duplicated and sorted.
func NormalizeAllergies(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	allergies := []string{}
	for _, name := range raw {
		allergy, ok := model.CanonicalAllergy(name)
		if !ok {
			return nil, invalidInput("unknown allergy %q", name)
		}
		if _, dup := seen[allergy]; dup {
			continue
		}
		seen[allergy] = struct{}{}
		allergies = append(allergies, allergy)
	}
	sort.Strings(allergies)
	return allergies, nil
}

type UpdateProfileRequest struct {
	Username          *string  `json:"username"`
	AvatarId          *string  `json:"avatarId"`
	SelectedAllergies []string `json:"selectedAllergies"`
	Country           *string  `json:"country"`
	CountryCode       *string  `json:"countryCode"`
}

// UpdateProfile changes only the fields present in the request. Posts keep the
// author name and avatar they were written with.
func (p *Profiles) UpdateProfile(ctx context.Context, userId string, req *UpdateProfileRequest) (*model.User, error) {
	update := &appDb.UpdateUser{}
	if req.Username != nil {
		username, err := cleanUsername(*req.Username)
		if err != nil {
			return nil, err
		}
		update.Username = &username
	}
	if req.AvatarId != nil {
		option, ok := model.FindAvatarOption(*req.AvatarId)
		if !ok {
			return nil, invalidInput("unknown avatar %q", *req.AvatarId)
		}
		update.AvatarId = &option.Id
		update.AvatarUrl = &option.Uri
	}
	if req.SelectedAllergies != nil {
		allergies, err := NormalizeAllergies(req.SelectedAllergies)
		if err != nil {
			return nil, err
		}
		update.SelectedAllergies = allergies
	}
	if req.Country != nil {
		country := strings.TrimSpace(*req.Country)
		update.Country = &country
	}
	if req.CountryCode != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.CountryCode))
		update.CountryCode = &code
	}

	if err := p.users.UpdateUser(ctx, userId, update); err != nil {
		return nil, err
	}
	return p.getUser(ctx, userId)
}

// UploadAvatar stores a custom picture and makes it the user's avatar.
func (p *Profiles) UploadAvatar(ctx context.Context, userId string, dataURL string) (*model.User, error) {
	url, err := services.UploadDataURL(ctx, p.blobs, "avatars/"+userId, dataURL)
	if err != nil {
		return nil, err
	}
	avatarId := AvatarIdCustom
	if err := p.users.UpdateUser(ctx, userId, &appDb.UpdateUser{
		AvatarId:  &avatarId,
		AvatarUrl: &url,
	}); err != nil {
		return nil, err
	}
	return p.getUser(ctx, userId)
}

func (p *Profiles) getUser(ctx context.Context, userId string) (*model.User, error) {
	user, err := p.users.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, appDb.ErrNotFound
	}
	return user, nil
}

func (p *Profiles) ChangePassword(ctx context.Context, userId string, current string, next string) error {
	return p.identity.ChangePassword(ctx, userId, current, next)
}

func (p *Profiles) SignOut(ctx context.Context, userId string) error {
	return p.identity.SignOut(ctx, userId)
}

// DeleteAccount removes the login, then the profile with everything the user wrote.
// A failure in between leaves a profile nobody can sign in to, never a login
// without a profile.
func (p *Profiles) DeleteAccount(ctx context.Context, userId string) error {
	if err := p.identity.DeleteAccount(ctx, userId); err != nil {
		return err
	}
	postIds, err := p.users.DeleteUser(ctx, userId)
	if err != nil && !errors.Is(err, appDb.ErrNotFound) {
		p.log.Error("login deleted but the profile was not",
			zap.String("userId", userId),
			zap.Error(err))
		return err
	}
	for _, postId := range postIds {
		publishPostDeleted(p.events, postId)
	}
	return nil
}
