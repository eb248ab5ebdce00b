package i18n

import (
	"io/fs"
	"path"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/naiba/nezha-uptime/resource"
)

const DefaultLanguage = "en-US"

var Languages = map[string]string{
	"en-US": "English",
	"zh-CN": "简体中文",
}

// Localizer translates message ids from resource/l10n. The language can be
// switched at runtime, e.g. when the config file changes.
type Localizer struct {
	bundle *i18n.Bundle

	mu        sync.RWMutex
	lang      string
	localizer *i18n.Localizer
}

func NewLocalizer(lang string) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(resource.I18nFS, "l10n/*.toml")
	if err != nil {
		return nil, err
	}
	for _, name := range files {
		buf, err := fs.ReadFile(resource.I18nFS, name)
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(buf, path.Base(name)); err != nil {
			return nil, err
		}
	}

	l := &Localizer{bundle: bundle}
	l.SetLanguage(lang)
	return l, nil
}

// SetLanguage falls back to DefaultLanguage for unknown languages.
func (l *Localizer) SetLanguage(lang string) {
	if _, ok := Languages[lang]; !ok {
		lang = DefaultLanguage
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lang = lang
	l.localizer = i18n.NewLocalizer(l.bundle, lang, DefaultLanguage)
}

func (l *Localizer) Language() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lang
}

// T localizes id. Unknown ids come back unchanged.
func (l *Localizer) T(id string, data ...map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: id}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}
	l.mu.RLock()
	loc := l.localizer
	l.mu.RUnlock()
	msg, err := loc.Localize(cfg)
	if err != nil {
		return id
	}
	return msg
}
