package intake

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	noteDateLayout = "02/01/2006"
	noteTimeLayout = "15:04"
)

// AppendNote returns notes with text prepended as a new entry stamped with
// now in loc. Blank text leaves notes unchanged. The input slice is never
// modified.
func AppendNote(notes []Note, text string, now time.Time, loc *time.Location) []Note {
	text = strings.TrimSpace(text)
	if text == "" {
		return notes
	}
	if loc != nil {
		now = now.In(loc)
	}
	n := Note{
		ID:   uuid.NewString(),
		Date: now.Format(noteDateLayout),
		Time: now.Format(noteTimeLayout),
		Text: text,
	}
	out := make([]Note, 0, len(notes)+1)
	out = append(out, n)
	return append(out, notes...)
}

// appendOnce is AppendNote guarded against a re-submitted form: when the
// newest note already carries the same text at the same minute, nothing is
// added.
func appendOnce(notes []Note, text string, now time.Time, loc *time.Location) (out []Note, added bool) {
	out = AppendNote(notes, text, now, loc)
	if len(out) == len(notes) {
		return notes, false
	}
	if len(notes) > 0 {
		newest, candidate := notes[0], out[0]
		if newest.Text == candidate.Text && newest.Date == candidate.Date && newest.Time == candidate.Time {
			return notes, false
		}
	}
	return out, true
}
