package domain

import "time"

type Area string

const (
	AreaDurable   Area = "durable"
	AreaEphemeral Area = "ephemeral"
)

// AreaFor selects where a session lives. Remembered sessions survive restarts.
func AreaFor(remember bool) Area {
	if remember {
		return AreaDurable
	}
	return AreaEphemeral
}

func (a Area) Other() Area {
	if a == AreaDurable {
		return AreaEphemeral
	}
	return AreaDurable
}

type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	Remember    bool
}

func (s Session) Valid(now time.Time) bool {
	if s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt.After(now)
}

type Credentials struct {
	Email    string
	Password string
}

type Identity struct {
	UserID      string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

type SignupRequest struct {
	Email       string
	Password    string
	DisplayName string
	Remember    bool
}
