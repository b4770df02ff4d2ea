// Package moderation holds the ban ledger and the admin command set.
package moderation

import (
	"cmp"
	"slices"
	"time"
)

// Ban is keyed by the network identity the bannee used at ban time.
type Ban struct {
	IP     string    `json:"ip"`
	Bannee string    `json:"bannee"`
	Banner string    `json:"banner"`
	Reason string    `json:"reason,omitempty"`
	Date   time.Time `json:"date"`
}

// Ledger is the set of active bans. It is not safe for concurrent use; the
// zone loop owns it.
type Ledger struct {
	bans map[string]Ban
}

func NewLedger() *Ledger {
	return &Ledger{bans: make(map[string]Ban)}
}

// Ban records b, replacing any earlier ban of the same IP. It reports whether
// the IP was not banned before.
func (l *Ledger) Ban(b Ban) bool {
	_, existed := l.bans[b.IP]
	l.bans[b.IP] = b
	return !existed
}

// Unban lifts the ban on ip and reports whether there was one.
func (l *Ledger) Unban(ip string) bool {
	if _, ok := l.bans[ip]; !ok {
		return false
	}
	delete(l.bans, ip)
	return true
}

// IsBanned reports whether ip is banned. The empty identity is never banned.
func (l *Ledger) IsBanned(ip string) bool {
	if ip == "" {
		return false
	}
	_, ok := l.bans[ip]
	return ok
}

// List returns every ban, oldest first.
func (l *Ledger) List() []Ban {
	list := make([]Ban, 0, len(l.bans))
	for _, b := range l.bans {
		list = append(list, b)
	}
	slices.SortFunc(list, func(a, b Ban) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.IP, b.IP)
	})
	return list
}

// Restore replaces the ledger with list.
func (l *Ledger) Restore(list []Ban) {
	l.bans = make(map[string]Ban, len(list))
	for _, b := range list {
		if b.IP == "" {
			continue
		}
		l.bans[b.IP] = b
	}
}
