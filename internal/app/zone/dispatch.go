package zone

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"zone/internal/app/user"
)

// ChatLimit is the maximum chat line length in runes.
const ChatLimit = 512

// inboundHandler handles one inbound frame from a bound member.
type inboundHandler func(z *Zone, m *member, raw []byte)

var inboundHandlers = map[MessageType]inboundHandler{
	TypeUser:   handleUser,
	TypeChat:   handleChat,
	TypeResync: handleResync,
}

// dispatch routes a frame by its type. Frames from connections that are no
// longer bound are ignored.
func (z *Zone) dispatch(c *Client, data []byte) {
	m, ok := z.members[c.UserID()]
	if !ok || m.client != c {
		return
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn().Err(err).Int("size", len(data)).Msg("Client sent invalid JSON")
		return
	}

	handle, ok := inboundHandlers[env.Type]
	if !ok {
		c.logger.Warn().Str("msg_type", string(env.Type)).Msg("Client sent unsupported message type")
		z.sendTo(c, StatusMessage{Type: TypeStatus, Text: fmt.Sprintf("unhandled message type %q", env.Type)})
		return
	}
	handle(z, m, data)
}

func (z *Zone) reject(c *Client, reason string) {
	z.sendTo(c, RejectMessage{Type: TypeReject, Reason: reason})
}

// handleUser applies a validated presence update and broadcasts the delta.
func handleUser(z *Zone, m *member, raw []byte) {
	patch, err := user.ParseUpdate(raw)
	if err != nil {
		z.reject(m.client, err.Message)
		return
	}
	if patch.Empty() {
		return
	}
	patch.Apply(&m.user)
	z.broadcast(userDelta(m.user.ID, patch.Fields()))
}

func handleChat(z *Zone, m *member, raw []byte) {
	var msg struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		z.reject(m.client, "invalid chat message")
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "":
		z.reject(m.client, "chat message is empty")
		return
	case !utf8.ValidString(text):
		z.reject(m.client, "chat message is not valid UTF-8")
		return
	case utf8.RuneCountInString(text) > ChatLimit:
		z.reject(m.client, fmt.Sprintf("chat message is longer than %d characters", ChatLimit))
		return
	}

	z.broadcast(ChatMessage{Type: TypeChat, UserID: m.user.ID, Text: text})
}

// handleResync answers with the timeline computed fresh from the clock.
func handleResync(z *Zone, m *member, _ []byte) {
	current, elapsed := z.sched.Current()
	z.sendTo(m.client, newPlayMessage(current, elapsed))
}
