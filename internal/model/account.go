package model

import "strings"

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"-"`
}

func NewCredentials(email, password string) Credentials {
	return Credentials{
		Email:    strings.TrimSpace(email),
		Password: strings.TrimSpace(password),
	}
}
