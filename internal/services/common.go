package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/events"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

// Actor is the authenticated caller of a service method.
type Actor struct {
	ID   string
	Role domain.Role
}

// IsAdmin reports whether the actor operates the back-office.
func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// pageBounds applies the default page and size and returns the offset.
func pageBounds(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize, (page - 1) * pageSize
}

// emit publishes an event after the state it describes is committed.
// Delivery failures are logged; the caller's operation already succeeded.
func emit(ctx context.Context, p events.Publisher, event string, data any) {
	if err := events.Emit(ctx, p, event, data); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("publish failed")
	}
}

// notFound maps repo.ErrNotFound to the given service error.
func notFound(err, as error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return as
	}
	return err
}

// inTx runs fn in a transaction bound to ctx.
func inTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// normalizeLine trims and collapses all whitespace to single spaces.
func normalizeLine(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// sanitizeText trims s and drops control characters other than newline and
// tab. Runs of more than two newlines are collapsed.
func sanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' || unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}

var firstUpper = cases.Title(language.Norwegian, cases.NoLower)

// titleStart upper-cases the first word of a title and keeps the rest.
func titleStart(s string) string {
	s = normalizeLine(s)
	head, tail, found := strings.Cut(s, " ")
	head = firstUpper.String(head)
	if !found {
		return head
	}
	return head + " " + tail
}

// runeLen is the user-visible length of s.
func runeLen(s string) int { return utf8.RuneCountInString(s) }

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	if n > 0 && runeLen(s) > n {
		return string([]rune(s)[:n])
	}
	return s
}
