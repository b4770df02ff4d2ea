/*
Package ticket implements the join handshake broker.

POST /join asks the Broker for a ticket. The ticket is a one-shot credential:
the first websocket upgrade that presents it consumes it, every later attempt
fails, and a ticket nobody redeems is deleted when its expiry timer fires.
*/
package ticket

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zone/internal/pkg/auth/jwt"
	"zone/internal/pkg/clock"
	"zone/internal/pkg/errs"
	"zone/internal/pkg/logx"
	"zone/internal/pkg/randx"
)

// DefaultExpiry is how long an unredeemed ticket stays valid.
const DefaultExpiry = 60 * time.Second

// Record is a pending join, created by RequestJoin and handed to the zone on
// the first successful Consume.
type Record struct {
	Ticket string `json:"ticket"`
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Name   string `json:"-"`
	Avatar string `json:"-"`

	IssuedAt time.Time `json:"-"`
}

type pending struct {
	record Record
	expiry clock.Timer
}

// Broker issues and redeems tickets. It is safe for concurrent use.
type Broker struct {
	clock  clock.Clock
	secret string
	expiry time.Duration

	mu         sync.Mutex
	tickets    map[string]*pending
	lastUserID uint64

	logger zerolog.Logger
}

// NewBroker returns a Broker that signs tokens with secret and expires
// tickets after expiry (DefaultExpiry when zero).
func NewBroker(c clock.Clock, secret string, expiry time.Duration) *Broker {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Broker{
		clock:   c,
		secret:  secret,
		expiry:  expiry,
		tickets: make(map[string]*pending),
		logger:  logx.Component("ticket"),
	}
}

// RequestJoin allocates the next user id, a ticket and a bearer token. No
// user exists until the ticket is consumed.
func (b *Broker) RequestJoin(name, avatar string) (Record, error) {
	if err := ValidateIdentity(name, avatar); err != nil {
		return Record{}, err
	}

	nonce, err := randx.Secret()
	if err != nil {
		return Record{}, errs.NewError(errs.ErrUnknown, err)
	}

	now := b.clock.Now()

	b.mu.Lock()
	b.lastUserID++
	userID := strconv.FormatUint(b.lastUserID, 10)
	b.mu.Unlock()

	token, err := jwt.GenerateToken(&jwt.Payload{UserID: userID, Nonce: nonce}, b.secret, jwt.SessionExpiration, now)
	if err != nil {
		return Record{}, errs.NewError(errs.ErrUnknown, err)
	}

	record := Record{
		Ticket:   randx.Ticket(),
		Token:    token,
		UserID:   userID,
		Name:     name,
		Avatar:   avatar,
		IssuedAt: now,
	}

	b.mu.Lock()
	p := &pending{record: record}
	b.tickets[record.Ticket] = p
	p.expiry = b.clock.AfterFunc(b.expiry, func() { b.expire(record.Ticket) })
	b.mu.Unlock()

	b.logger.Debug().Str("user_id", userID).Msg("Ticket issued")
	return record, nil
}

// Consume redeems ticketID. Lookup and deletion happen under one lock, so
// concurrent calls with the same id see exactly one success.
func (b *Broker) Consume(ticketID string) (Record, error) {
	b.mu.Lock()
	p, ok := b.tickets[ticketID]
	if ok {
		delete(b.tickets, ticketID)
	}
	b.mu.Unlock()

	if !ok {
		return Record{}, errs.NewError(errs.ErrTicketInvalid)
	}

	p.expiry.Stop()
	return p.record, nil
}

// Pending returns the number of unredeemed tickets.
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tickets)
}

// Close cancels every expiry timer and forgets all pending tickets.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, p := range b.tickets {
		p.expiry.Stop()
		delete(b.tickets, id)
	}
}

func (b *Broker) expire(ticketID string) {
	b.mu.Lock()
	_, ok := b.tickets[ticketID]
	delete(b.tickets, ticketID)
	b.mu.Unlock()

	if ok {
		b.logger.Debug().Str("ticket", ticketID).Msg("Ticket expired unused")
	}
}
