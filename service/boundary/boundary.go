// Package boundary holds the presentation-side collaborators the core talks
// to: transient notifications, navigation and the caller's addressable
// location.
package boundary

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/naiba/nezha-uptime/pkg/i18n"
)

type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type Navigator interface {
	Push(path string)
}

// Location is the query part of the caller's current address. url.Values
// satisfies it.
type Location interface {
	Get(key string) string
	Del(key string)
	Encode() string
}

// Translator resolves a message id to display text.
type Translator interface {
	T(id string, data ...map[string]any) string
}

var _ Translator = (*i18n.Localizer)(nil)

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{Logger: log.Logger}
}

func (n *LogNotifier) Success(msg string) {
	n.Logger.Info().Msg(msg)
}

func (n *LogNotifier) Error(msg string) {
	n.Logger.Warn().Msg(msg)
}

type Note struct {
	OK  bool
	Msg string
}

// Recorder keeps every notification and navigation it receives.
type Recorder struct {
	mu    sync.Mutex
	notes []Note
	paths []string
}

func (r *Recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Note{OK: true, Msg: msg})
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Note{Msg: msg})
}

func (r *Recorder) Push(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *Recorder) Notes() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Note(nil), r.notes...)
}

func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}
func (Nop) Push(string)    {}

// Identity returns message ids untranslated.
type Identity struct{}

func (Identity) T(id string, _ ...map[string]any) string { return id }
