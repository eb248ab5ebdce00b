// Package session wires the client side components of one user session
// together. Every component gets its collaborators here; nothing reaches for
// globals.
package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/pkg/i18n"
	"github.com/naiba/nezha-uptime/pkg/utils"
	"github.com/naiba/nezha-uptime/service/autorefresh"
	"github.com/naiba/nezha-uptime/service/boundary"
	"github.com/naiba/nezha-uptime/service/form"
	"github.com/naiba/nezha-uptime/service/pagination"
	"github.com/naiba/nezha-uptime/service/preference"
	"github.com/naiba/nezha-uptime/service/push"
	"github.com/naiba/nezha-uptime/service/reconciler"
	"github.com/naiba/nezha-uptime/service/remote"
)

var ErrNoUser = errors.New("no user id configured")

type Options struct {
	Notifier  boundary.Notifier
	Navigator boundary.Navigator
	Location  boundary.Location
	Clock     clockwork.Clock
	// Listener replaces the push transport chosen from the config.
	Listener   push.Listener
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

type Session struct {
	User       model.Session
	Config     *model.Config
	Localizer  *i18n.Localizer
	Remote     *remote.Client
	Store      preference.Store
	Listener   push.Listener
	Toggle     *autorefresh.Toggle
	Reconciler *reconciler.Reconciler
	Form       *form.Controller

	logger  zerolog.Logger
	closers []func()
}

// New builds a session for conf.UserID. Nothing talks to the dashboard
// until Start.
func New(conf *model.Config, opts Options) (*Session, error) {
	if conf.UserID == "" {
		return nil, ErrNoUser
	}
	s := &Session{
		User:   model.Session{UserID: conf.UserID},
		Config: conf,
		logger: log.Logger,
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}

	localizer, err := i18n.NewLocalizer(conf.Language)
	if err != nil {
		return nil, err
	}
	s.Localizer = localizer

	hc := opts.HTTPClient
	if hc == nil {
		hc = utils.IfOr(conf.Dashboard.Insecure, utils.HttpClientSkipTlsVerify, utils.HttpClient)
	}
	s.Remote = remote.NewClient(conf.Dashboard.URL, hc, remote.WithToken(conf.Dashboard.Token))

	if conf.Preference.Path != "" {
		store, err := preference.OpenDBStore(conf.Preference.Path, conf.Debug)
		if err != nil {
			return nil, err
		}
		s.Store = store
		s.closers = append(s.closers, func() { store.Close() })
	} else {
		s.Store = preference.NewMemoryStore()
	}

	s.Listener = opts.Listener
	if s.Listener == nil {
		if s.Listener, err = s.openListener(); err != nil {
			s.Close()
			return nil, err
		}
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = &boundary.LogNotifier{Logger: s.logger}
	}
	navigator := opts.Navigator
	if navigator == nil {
		navigator = boundary.Nop{}
	}
	location := opts.Location
	if location == nil {
		location = url.Values{}
	}

	s.Toggle = autorefresh.NewToggle(s.Remote, s.Store)
	s.Reconciler = reconciler.New(reconciler.Options{
		Fetcher:    s.Remote,
		Listener:   s.Listener,
		Toggle:     s.Toggle,
		Store:      s.Store,
		Pages:      pagination.New(0, conf.PageSize),
		Notifier:   notifier,
		Navigator:  navigator,
		Location:   location,
		Translator: localizer,
		Clock:      opts.Clock,
		Logger:     &s.logger,
	})
	s.Form = form.New(form.Options{
		Remote:     s.Remote,
		Merger:     s.Reconciler,
		Notifier:   notifier,
		Navigator:  navigator,
		Translator: localizer,
		Logger:     &s.logger,
		UserID:     conf.UserID,
	})
	return s, nil
}

func (s *Session) openListener() (push.Listener, error) {
	if s.Config.NATS.URL != "" {
		l, err := push.NewNATSListener(s.Config.NATS.URL, s.Config.NATS.Subject)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, l.Close)
		return l, nil
	}
	header := http.Header{}
	if s.Config.Dashboard.Token != "" {
		header.Set("Authorization", "Bearer "+s.Config.Dashboard.Token)
	}
	l := push.NewWSListener(s.Config.Dashboard.PushURL, header)
	s.closers = append(s.closers, l.Close)
	return l, nil
}

// Start connects the push transport, performs the first fetch and loads the
// notification groups the form validates against.
func (s *Session) Start(ctx context.Context) error {
	if wl, ok := s.Listener.(*push.WSListener); ok {
		wl.Start(ctx)
	}
	if err := s.Reconciler.Initialize(ctx, s.User.UserID); err != nil {
		return err
	}
	groups, err := s.Remote.FetchNotificationGroups(ctx, s.User.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("[Session] Load notification groups failed")
		return nil
	}
	s.Form.SetNotificationGroups(groups)
	return nil
}

// SetLanguage switches the language of later notifications.
func (s *Session) SetLanguage(lang string) {
	s.Localizer.SetLanguage(lang)
}

func (s *Session) Close() {
	if s.Reconciler != nil {
		s.Reconciler.Close()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
