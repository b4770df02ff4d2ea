package zone

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"zone/internal/app/echo"
	"zone/internal/app/moderation"
	"zone/internal/app/playback"
	"zone/internal/app/storage"
	"zone/internal/app/user"
	"zone/internal/pkg/clock"
	"zone/internal/pkg/errs"
	"zone/internal/pkg/logx"
)

const (
	inboundBuffer = 256
	opsBuffer     = 256
)

// Config holds the zone's tunables.
type Config struct {
	Playback playback.Config

	// AdminPasswordHash is the bcrypt hash of the shared admin secret.
	// Empty disables every password gate.
	AdminPasswordHash []byte

	// Store receives saves. Nil disables the save command.
	Store storage.Backend
}

// member is one live user and the connection currently bound to it.
type member struct {
	user   user.User
	client *Client
	ip     string
	token  string
}

type frame struct {
	client *Client
	data   []byte
}

// Zone owns the presence map, the token map, the playback scheduler, the
// echo grid and the ban ledger. All of it is touched only by the Run loop;
// every other goroutine submits work through channels.
type Zone struct {
	clock clock.Clock
	cfg   Config

	members map[string]*member
	tokens  map[string]string
	sched   *playback.Scheduler
	echoes  *echo.Store
	bans    *moderation.Ledger

	register   chan *Client
	unregister chan *Client
	inbound    chan frame
	ops        chan func()

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// saving serialises persistence writes, which run outside the loop.
	saving sync.Mutex

	logger zerolog.Logger
}

// New builds an idle zone. Call Run to start it.
func New(c clock.Clock, cfg Config) *Zone {
	z := &Zone{
		clock:      c,
		cfg:        cfg,
		members:    make(map[string]*member),
		tokens:     make(map[string]string),
		echoes:     echo.NewStore(),
		bans:       moderation.NewLedger(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan frame, inboundBuffer),
		ops:        make(chan func(), opsBuffer),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logx.Component("zone"),
	}
	z.sched = playback.New(c, cfg.Playback, timeline{z}, func() {
		z.post(z.sched.Advance)
	})
	return z
}

// Run is the zone's event loop. It returns after Stop.
func (z *Zone) Run() {
	z.logger.Info().Msg("Zone loop started.")

	defer func() {
		z.sched.Stop()
		for _, m := range z.members {
			m.client.close(websocket.CloseGoingAway, "server shutting down")
		}
		close(z.done)
		z.logger.Info().Int("users", len(z.members)).Msg("Zone loop finished.")
	}()

	for {
		select {
		case c := <-z.register:
			z.join(c)

		case c := <-z.unregister:
			z.disconnect(c, websocket.CloseNormalClosure, "connection closed")

		case f := <-z.inbound:
			z.dispatch(f.client, f.data)

		case op := <-z.ops:
			op()

		case <-z.stopChan:
			return
		}
	}
}

// Stop signals the loop to exit. Wait on Done for it to finish.
func (z *Zone) Stop() {
	z.stopOnce.Do(func() {
		z.logger.Info().Msg("Received stop signal.")
		close(z.stopChan)
	})
}

// Done is closed once the loop has exited.
func (z *Zone) Done() <-chan struct{} {
	return z.done
}

// Register hands a freshly upgraded connection to the loop. It reports
// false when the zone is gone and the caller must close the connection.
func (z *Zone) Register(c *Client) bool {
	select {
	case z.register <- c:
		return true
	case <-z.done:
		return false
	}
}

// Unregister tears down c's binding. Safe to call any number of times from
// any goroutine; only the first call for the bound connection has an effect.
func (z *Zone) Unregister(c *Client) {
	select {
	case z.unregister <- c:
	case <-z.done:
	}
}

// deliver forwards an inbound frame. It reports false once the zone is gone.
func (z *Zone) deliver(c *Client, data []byte) bool {
	select {
	case z.inbound <- frame{client: c, data: data}:
		return true
	case <-z.done:
		return false
	}
}

// post schedules fn on the loop without blocking the caller.
func (z *Zone) post(fn func()) {
	select {
	case z.ops <- fn:
	default:
		go func() {
			select {
			case z.ops <- fn:
			case <-z.done:
			}
		}()
	}
}

// do runs fn on the loop and waits for it to finish.
func (z *Zone) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}

	select {
	case z.ops <- op:
	case <-ctx.Done():
		return errs.NewError(errs.ErrZoneUnavailable)
	case <-z.done:
		return errs.NewError(errs.ErrZoneUnavailable)
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return errs.NewError(errs.ErrZoneUnavailable)
	case <-z.done:
		return errs.NewError(errs.ErrZoneUnavailable)
	}
}

// call runs fn on the loop and returns its results.
func call[T any](ctx context.Context, z *Zone, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	if doErr := z.do(ctx, func() { result, err = fn() }); doErr != nil {
		var zero T
		return zero, doErr
	}
	return result, err
}

func (z *Zone) join(c *Client) {
	id := c.UserID()
	logger := z.logger.With().Str("user_id", id).Logger()

	if z.bans.IsBanned(c.ip) {
		logger.Info().Str("ip", logx.AnonymizeIP(c.ip)).Msg("Connection from banned IP refused.")
		c.close(CloseBanned, "banned")
		return
	}

	if existing, ok := z.members[id]; ok {
		logger.Warn().Msg("User already connected. Closing old connection for replacement.")
		existing.client.close(CloseSuperseded, "session replaced by a new connection")
		delete(z.tokens, existing.token)
		existing.client = c
		existing.ip = c.ip
		existing.token = c.record.Token
		z.tokens[existing.token] = id
		z.sendSnapshot(c)
		return
	}

	m := &member{
		user:   user.User{ID: id, Name: c.record.Name, Avatar: c.record.Avatar},
		client: c,
		ip:     c.ip,
		token:  c.record.Token,
	}
	z.members[id] = m
	z.tokens[m.token] = id

	logger.Info().Int("total_users", len(z.members)).Msg("User joined zone.")

	z.sendSnapshot(c)
	z.broadcastExcept(fullUser(m.user), c)
}

// sendSnapshot sends the initial state burst in its fixed order.
func (z *Zone) sendSnapshot(c *Client) {
	current, elapsed := z.sched.Current()

	z.sendTo(c, UsersMessage{Type: TypeUsers, Users: z.userList()})
	z.sendTo(c, QueueMessage{Type: TypeQueue, Items: publicItems(z.sched.Queue())})
	z.sendTo(c, newPlayMessage(current, elapsed))
	z.sendTo(c, EchoesMessage{Type: TypeEchoes, Added: z.echoes.List(), Removed: []user.Position{}})
	z.sendTo(c, ReadyMessage{Type: TypeReady, UserID: c.UserID()})
}

// disconnect removes the user bound to c, if c is still its connection,
// and closes c either way.
func (z *Zone) disconnect(c *Client, code int, reason string) {
	id := c.UserID()
	m, ok := z.members[id]
	if !ok || m.client != c {
		c.close(code, reason)
		return
	}

	delete(z.members, id)
	delete(z.tokens, m.token)
	z.sched.Withdraw(id)
	c.close(code, reason)

	z.logger.Info().
		Str("user_id", id).
		Str("reason", reason).
		Int("total_users", len(z.members)).
		Msg("User left zone.")

	z.broadcast(LeaveMessage{Type: TypeLeave, UserID: id})
}

func (z *Zone) userList() []user.User {
	users := make([]user.User, 0, len(z.members))
	for _, m := range z.members {
		users = append(users, m.user.Clone())
	}
	slices.SortFunc(users, func(a, b user.User) int {
		return compareIDs(a.ID, b.ID)
	})
	return users
}

// compareIDs orders numeric ids numerically and anything else lexically.
func compareIDs(a, b string) int {
	ai, aErr := strconv.ParseUint(a, 10, 64)
	bi, bErr := strconv.ParseUint(b, 10, 64)
	if aErr == nil && bErr == nil {
		return cmp.Compare(ai, bi)
	}
	return cmp.Compare(a, b)
}

func (z *Zone) encode(msg any) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		z.logger.Error().Err(err).Msg("Error marshaling outbound message.")
		return nil
	}
	return data
}

// sendTo queues msg for one connection.
func (z *Zone) sendTo(c *Client, msg any) {
	data := z.encode(msg)
	if data == nil {
		return
	}
	if !c.enqueue(data) {
		z.dropLater(c)
	}
}

func (z *Zone) broadcast(msg any) {
	z.broadcastExcept(msg, nil)
}

// broadcastExcept queues msg for every live connection but skip.
func (z *Zone) broadcastExcept(msg any, skip *Client) {
	data := z.encode(msg)
	if data == nil {
		return
	}
	for _, m := range z.members {
		if m.client == skip {
			continue
		}
		if !m.client.enqueue(data) {
			z.dropLater(m.client)
		}
	}
}

// dropLater tears c down on a later loop turn so fan-out is never
// interrupted by a removal.
func (z *Zone) dropLater(c *Client) {
	z.post(func() {
		z.disconnect(c, websocket.ClosePolicyViolation, "send failed")
	})
}

// timeline adapts scheduler events to broadcasts.
type timeline struct {
	z *Zone
}

func (t timeline) Queued(item playback.QueueItem) {
	t.z.broadcast(QueueMessage{Type: TypeQueue, Items: []playback.QueueItem{item.Public()}})
}

func (t timeline) Unqueued(itemID int64) {
	t.z.broadcast(UnqueueMessage{Type: TypeUnqueue, ItemID: itemID})
}

func (t timeline) Played(item *playback.QueueItem, elapsed time.Duration) {
	if item != nil {
		t.z.logger.Info().Int64("item_id", item.ItemID).Str("title", item.Media.Title).Msg("Now playing.")
	} else {
		t.z.logger.Info().Msg("Playback stopped.")
	}
	t.z.broadcast(newPlayMessage(item, elapsed))
}
