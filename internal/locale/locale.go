package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/tartampluch/go-contact-events/internal/engine"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// labelKeys maps the well-known labels to their translation keys.
// Custom labels have no entry and are displayed verbatim.
var labelKeys = map[string]string{
	config.LabelBirthday:    config.TKeyLabelBirthday,
	config.LabelAnniversary: config.TKeyLabelAnniversary,
	config.LabelOther:       config.TKeyLabelOther,
}

// Titler renders localized labels and event titles.
type Titler struct {
	Lang      string
	Languages []string

	bundle    *i18n.Bundle
	localizer *i18n.Localizer
}

// New loads the embedded locales and selects lang (falls back to English).
func New(lang string) *Titler {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Titler{bundle: bundle}

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		t.Languages = append(t.Languages, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
		)
	}

	t.SetLanguage(lang)
	return t
}

// SetLanguage switches the active language.
func (t *Titler) SetLanguage(lang string) {
	if lang == "" {
		lang = config.DefaultLanguage
	}
	t.Lang = lang
	t.localizer = i18n.NewLocalizer(t.bundle, lang)
}

// Tag returns the language tag used for collating names.
func (t *Titler) Tag() language.Tag {
	tag, err := language.Parse(t.Lang)
	if err != nil {
		return language.English
	}
	return tag
}

// Msg translates key with optional template data. Missing keys return ok=false.
func (t *Titler) Msg(key string, data map[string]any) (string, bool) {
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return "", false
	}
	return msg, true
}

// Label translates a well-known label; custom labels pass through unchanged.
func (t *Titler) Label(label string) string {
	key, known := labelKeys[label]
	if !known {
		return label
	}
	if msg, ok := t.Msg(key, nil); ok {
		return msg
	}
	return label
}

// Title renders "name — label". It satisfies engine.TitleFunc.
func (t *Titler) Title(ev engine.EventInfo) string {
	label := t.Label(ev.Label)
	msg, ok := t.Msg(config.TKeyEvtTitle, map[string]any{
		"Name":  ev.Contact.DisplayName,
		"Label": label,
	})
	if !ok {
		return fmt.Sprintf(config.FallbackTitle, ev.Contact.DisplayName, label)
	}
	return msg
}

// AgeTitle is Title plus the number of years when the stored date has a year
// that is not after the occurrence.
func (t *Titler) AgeTitle(ev engine.EventInfo) string {
	years, known := ev.Years()
	if !known || years < 0 {
		return t.Title(ev)
	}
	label := t.Label(ev.Label)
	msg, ok := t.Msg(config.TKeyEvtTitleAge, map[string]any{
		"Name":  ev.Contact.DisplayName,
		"Label": label,
		"Years": years,
	})
	if !ok {
		return fmt.Sprintf(config.FallbackTitleAge, ev.Contact.DisplayName, label, years)
	}
	return msg
}

// Prompt returns the access question for source.
func (t *Titler) Prompt(source string) string {
	if msg, ok := t.Msg(config.TKeyPromptAccess, map[string]any{"Source": source}); ok {
		return msg
	}
	return fmt.Sprintf(config.FallbackPrompt, config.AppName, source)
}
