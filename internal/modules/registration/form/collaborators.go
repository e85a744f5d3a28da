package form

import (
	"context"
	"errors"

	"legalconnect.io/portal/pkg/apperror"
)

var (
	ErrSubmissionInFlight = apperror.ErrSubmissionInFlight
	ErrPasswordMismatch   = errors.New("password confirmation does not match")
	ErrSignInRejected     = errors.New("sign-in rejected")
	ErrUnknownSlot        = errors.New("unknown document slot")
	ErrUnknownGroup       = errors.New("unknown selection group")
	ErrUnknownOption      = errors.New("unknown catalog option")
	ErrEmptyUpload        = errors.New("upload finished without any file")
)

// ClientAccount is the body of the create-client request.
type ClientAccount struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	FullName    string `json:"full_name"`
}

// LawyerAccount is the body of the create-lawyer request.
type LawyerAccount struct {
	Email         string   `json:"email"`
	Password      string   `json:"password"`
	ID            string   `json:"id"`
	Qualification string   `json:"qualification"`
	CV            string   `json:"cv"`
	Resume        string   `json:"resume"`
	Courts        []string `json:"courts"`
	Languages     []string `json:"languages"`
	Specialties   []string `json:"specialties"`
	Photo         string   `json:"photo"`
	Description   string   `json:"description"`
	PhoneNumber   string   `json:"phone_number"`
	FullName      string   `json:"full_name"`
}

type AccountCreator interface {
	CreateClient(ctx context.Context, account ClientAccount) error
	CreateLawyer(ctx context.Context, account LawyerAccount) error
}

// SignInResult mirrors the credential sign-in response.
type SignInResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) error
	SignInWithCredentials(ctx context.Context, email, password string) (SignInResult, error)
}

type Notifier interface {
	Notify(ctx context.Context, toast Toast)
}

type Navigator interface {
	Push(route string)
	Refresh()
}

// Catalog answers whether a value belongs to one of the selectable lists.
type Catalog interface {
	Contains(group SelectionGroup, value string) bool
}

// UserMessenger is implemented by errors that carry a message fit to show
// the registrant, such as an upstream error body.
type UserMessenger interface {
	UserMessage() string
}

func userMessage(err error, fallback string) string {
	var m UserMessenger
	if errors.As(err, &m) && m.UserMessage() != "" {
		return m.UserMessage()
	}
	return fallback
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Toast) {}

type nopNavigator struct{}

func (nopNavigator) Push(string) {}
func (nopNavigator) Refresh()    {}
