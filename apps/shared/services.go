// Package shared wires the services used by every dashboard binary.
package shared

import (
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/apiclient"
	"github.com/trezcool/masomo-admin/core/cache"
	"github.com/trezcool/masomo-admin/core/collection"
	"github.com/trezcool/masomo-admin/core/message"
	"github.com/trezcool/masomo-admin/core/offer"
	"github.com/trezcool/masomo-admin/core/recruitment"
	"github.com/trezcool/masomo-admin/core/schoolyear"
	"github.com/trezcool/masomo-admin/core/screen"
	"github.com/trezcool/masomo-admin/core/student"
	"github.com/trezcool/masomo-admin/core/user"
	appfs "github.com/trezcool/masomo-admin/fs"
)

// Services holds one instance of each entity service, sharing a cache and a client.
type Services struct {
	API       *apiclient.Client
	Cache     *cache.Cache
	Validator *core.Validator
	Screens   *screen.Registry

	Users        *user.Service
	SchoolYears  *schoolyear.Service
	Students     *student.Service
	Offers       *offer.Service
	Recruitments *recruitment.Service
	Messages     *message.Service
}

// Getters merges the named column getters of every entity.
func Getters() map[string]collection.Getter {
	getters := make(map[string]collection.Getter)
	for _, g := range []map[string]collection.Getter{schoolyear.Getters(), student.Getters(), message.Getters()} {
		for name, fn := range g {
			getters[name] = fn
		}
	}
	return getters
}

// LoadScreens reads the embedded screen definitions.
func LoadScreens() (*screen.Registry, error) {
	data, err := appfs.FS.ReadFile(appfs.ScreensFile)
	if err != nil {
		return nil, errors.Wrap(err, "reading screens")
	}
	return screen.Load(data, Getters())
}

// NewServices builds the services from conf. api may be nil, in which case a client
// for conf.API is created. mailer may be nil: no email is sent then.
func NewServices(conf *core.Config, api *apiclient.Client, mailer core.EmailService, logger core.Logger) (*Services, error) {
	screens, err := LoadScreens()
	if err != nil {
		return nil, err
	}
	if api == nil {
		api = apiclient.New(apiclient.NewOptions(conf.API), logger)
	}
	c := cache.New(cache.WithTTL(conf.Cache.TTL), cache.WithMaxEntries(conf.Cache.MaxEntries))
	v := core.NewValidator(conf.Lang)

	return &Services{
		API:          api,
		Cache:        c,
		Validator:    v,
		Screens:      screens,
		Users:        user.NewService(api, v),
		SchoolYears:  schoolyear.NewService(api, c, v),
		Students:     student.NewService(api, c, v),
		Offers:       offer.NewService(api, c, v),
		Recruitments: recruitment.NewService(api, c, v, mailer, logger),
		Messages:     message.NewService(api, c, v, mailer),
	}, nil
}
