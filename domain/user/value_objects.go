package user

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"iam/domain/shared"
)

const (
	MaxPasswordHashLength = 255
	MaxPersonNameLength   = 50
	MaxTimezoneLength     = 64
)

var (
	emailRegex    = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)
	languageRegex = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)
)

// UserID identifies a user aggregate.
type UserID struct{ value string }

func NewUserID(raw string) (UserID, error) {
	v, err := shared.ParseUUID(entityName, "user_id", raw)
	if err != nil {
		return UserID{}, err
	}
	return UserID{value: v}, nil
}

func GenerateUserID() UserID           { return UserID{value: shared.NewUUID()} }
func (id UserID) String() string       { return id.value }
func (id UserID) IsZero() bool         { return id.value == "" }
func (id UserID) Equals(o UserID) bool { return id.value == o.value }

// Email Value object - immutable, trimmed and lower-cased
type Email struct {
	value string
}

func NewEmail(email string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(normalized) {
		return Email{}, NewInvalidEmailError(email)
	}
	return Email{value: normalized}, nil
}

func (e Email) Value() string           { return e.value }
func (e Email) String() string          { return e.value }
func (e Email) IsZero() bool            { return e.value == "" }
func (e Email) Equals(other Email) bool { return e.value == other.value }

// PasswordHash is an opaque, already hashed credential. Hashing lives outside the domain.
type PasswordHash struct {
	value string
}

func NewPasswordHash(hash string) (PasswordHash, error) {
	if hash == "" {
		return PasswordHash{}, newValidationError(ErrInvalidPasswordHash, "password_hash", "password hash cannot be empty")
	}
	if len(hash) > MaxPasswordHashLength {
		return PasswordHash{}, newValidationError(ErrInvalidPasswordHash, "password_hash",
			fmt.Sprintf("password hash must be at most %d bytes", MaxPasswordHashLength))
	}
	return PasswordHash{value: hash}, nil
}

func (h PasswordHash) Value() string                  { return h.value }
func (h PasswordHash) IsZero() bool                   { return h.value == "" }
func (h PasswordHash) Equals(other PasswordHash) bool { return h.value == other.value }

// String never reveals the hash.
func (h PasswordHash) String() string { return "********" }

// ProfileData is the input and serialized form of Profile.
type ProfileData struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Profile is the personal information of a user.
type Profile struct {
	data ProfileData
}

func NewProfile(d ProfileData) (Profile, error) {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.PhoneNumber = strings.TrimSpace(d.PhoneNumber)
	d.Avatar = strings.TrimSpace(d.Avatar)

	if err := validatePersonName("firstName", d.FirstName); err != nil {
		return Profile{}, err
	}
	if err := validatePersonName("lastName", d.LastName); err != nil {
		return Profile{}, err
	}
	if d.PhoneNumber != "" && !phoneRegex.MatchString(d.PhoneNumber) {
		return Profile{}, newValidationError(ErrInvalidProfile, "phoneNumber", "invalid phone number: "+d.PhoneNumber)
	}
	if d.Avatar != "" {
		u, err := url.Parse(d.Avatar)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Profile{}, newValidationError(ErrInvalidProfile, "avatar", "avatar must be an http(s) URL")
		}
	}
	return Profile{data: d}, nil
}

func validatePersonName(field, value string) error {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return newValidationError(ErrInvalidProfile, field, field+" cannot be empty")
	}
	if n > MaxPersonNameLength {
		return newValidationError(ErrInvalidProfile, field,
			fmt.Sprintf("%s must be at most %d characters", field, MaxPersonNameLength))
	}
	return nil
}

func (p Profile) FirstName() string   { return p.data.FirstName }
func (p Profile) LastName() string    { return p.data.LastName }
func (p Profile) PhoneNumber() string { return p.data.PhoneNumber }
func (p Profile) Avatar() string      { return p.data.Avatar }
func (p Profile) FullName() string    { return p.data.FirstName + " " + p.data.LastName }
func (p Profile) Data() ProfileData   { return p.data }
func (p Profile) Equals(other Profile) bool {
	return p.data == other.data
}

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// PreferencesData is the input and serialized form of Preferences.
type PreferencesData struct {
	Language           string `json:"language"`
	Timezone           string `json:"timezone"`
	Theme              string `json:"theme"`
	EmailNotifications bool   `json:"emailNotifications"`
}

// Preferences are user interface and notification settings.
type Preferences struct {
	data PreferencesData
}

func NewPreferences(d PreferencesData) (Preferences, error) {
	d.Language = strings.TrimSpace(d.Language)
	d.Timezone = strings.TrimSpace(d.Timezone)
	d.Theme = strings.ToLower(strings.TrimSpace(d.Theme))

	if !languageRegex.MatchString(d.Language) {
		return Preferences{}, newValidationError(ErrInvalidPreferences, "language", "language must look like en or en-US")
	}
	if d.Timezone == "" || len(d.Timezone) > MaxTimezoneLength {
		return Preferences{}, newValidationError(ErrInvalidPreferences, "timezone",
			fmt.Sprintf("timezone must be 1-%d characters", MaxTimezoneLength))
	}
	switch d.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return Preferences{}, newValidationError(ErrInvalidPreferences, "theme", "unknown theme: "+d.Theme)
	}
	return Preferences{data: d}, nil
}

// DefaultPreferences en, UTC, system theme, notifications on.
func DefaultPreferences() Preferences {
	return Preferences{data: PreferencesData{
		Language:           "en",
		Timezone:           "UTC",
		Theme:              ThemeSystem,
		EmailNotifications: true,
	}}
}

func (p Preferences) Language() string         { return p.data.Language }
func (p Preferences) Timezone() string         { return p.data.Timezone }
func (p Preferences) Theme() string            { return p.data.Theme }
func (p Preferences) EmailNotifications() bool { return p.data.EmailNotifications }
func (p Preferences) Data() PreferencesData    { return p.data }
func (p Preferences) Equals(other Preferences) bool {
	return p.data == other.data
}
