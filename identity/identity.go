// Package identity supplies the acting user for a client process. The
// realtime layer treats it as opaque input: it only attributes cursor
// broadcasts and presence membership.
package identity

import (
	"errors"

	"github.com/anyproto/any-sync/app"

	"github.com/jpjaydus/pixelpin/domain"
)

const CName = "identity"

var ErrNoIdentity = errors.New("no acting identity configured")

type configGetter interface {
	GetIdentity() Config
}

type Config struct {
	Id    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Image string `yaml:"image"`
}

func New() Service {
	return new(identityService)
}

type Service interface {
	app.Component
	// Account returns the acting user; ErrNoIdentity when none is
	// configured.
	Account() (domain.Author, error)
}

type identityService struct {
	account domain.Author
}

func (s *identityService) Init(a *app.App) (err error) {
	conf := a.MustComponent("config").(configGetter).GetIdentity()
	s.account = domain.Author{
		Id:    conf.Id,
		Name:  conf.Name,
		Email: conf.Email,
		Image: conf.Image,
	}
	return nil
}

func (s *identityService) Name() (name string) {
	return CName
}

func (s *identityService) Account() (domain.Author, error) {
	if s.account.Id == "" {
		return domain.Author{}, ErrNoIdentity
	}
	return s.account, nil
}
