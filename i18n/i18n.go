// Package i18n holds the localized user-facing messages of the quota engine.
//
// Messages are registered in the x/text default catalog by the messages_*.go
// files. Code refers to them by key and renders them with a Printer.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supportedTags = []language.Tag{
	language.French,
	language.English,
}

var tagMatcher = language.NewMatcher(supportedTags)

// Default returns the default language tag.
func Default() language.Tag {
	return language.French
}

// Supported returns the list of supported language tags.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Match resolves a locale string ("fr", "en-GB", ...) to a supported tag.
// Unknown or empty values resolve to the default.
func Match(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return Default()
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return Default()
	}
	_, idx, conf := tagMatcher.Match(tag)
	if conf == language.No {
		return Default()
	}
	return supportedTags[idx]
}

// Printer returns a message printer for the supplied tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// DefaultPrinter returns a printer for the default language.
func DefaultPrinter() *message.Printer {
	return Printer(Default())
}

// Notice is a message key with its arguments, rendered lazily so pure
// calculation code does not need a printer.
type Notice struct {
	Key  string
	Args []any
}

// NewNotice builds a Notice.
func NewNotice(key string, args ...any) Notice {
	return Notice{Key: key, Args: args}
}

// IsZero reports whether the notice carries no message.
func (n Notice) IsZero() bool { return n.Key == "" }

// Render formats the notice with p. A nil printer uses the default language.
func (n Notice) Render(p *message.Printer) string {
	if n.IsZero() {
		return ""
	}
	if p == nil {
		p = DefaultPrinter()
	}
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		if l, ok := a.(Label); ok {
			a = p.Sprintf(string(l))
		}
		args[i] = a
	}
	return p.Sprintf(n.Key, args...)
}

// Label is a notice argument that is itself a message key, translated with
// the same printer as the notice.
type Label string

// Join renders several notices separated by a space, skipping empty ones.
func Join(p *message.Printer, notices ...Notice) string {
	parts := make([]string, 0, len(notices))
	for _, n := range notices {
		if s := n.Render(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
