package gate

import (
	"sort"

	"github.com/kmkrofficial/signature/internal/core"
)

// AllowList is the fixed set of emails that may enter the admin area.
// An empty list authorizes nobody.
type AllowList struct {
	emails map[string]struct{}
}

func NewAllowList(emails []string) AllowList {
	a := AllowList{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if n := core.NormalizeEmail(e); n != "" {
			a.emails[n] = struct{}{}
		}
	}
	return a
}

// Allows reports whether email is on the list, ignoring case and surrounding whitespace.
func (a AllowList) Allows(email string) bool {
	n := core.NormalizeEmail(email)
	if n == "" {
		return false
	}
	_, ok := a.emails[n]
	return ok
}

func (a AllowList) Len() int {
	return len(a.emails)
}

// Emails returns the normalized entries in sorted order.
func (a AllowList) Emails() []string {
	out := make([]string, 0, len(a.emails))
	for e := range a.emails {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
