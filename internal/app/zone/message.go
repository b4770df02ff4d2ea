package zone

import (
	"time"

	"zone/internal/app/echo"
	"zone/internal/app/playback"
	"zone/internal/app/user"
)

// MessageType is the "type" field of every frame.
type MessageType string

// Inbound types.
const (
	TypeUser   MessageType = "user"
	TypeChat   MessageType = "chat"
	TypeResync MessageType = "resync"
)

// Outbound-only types.
const (
	TypeUsers   MessageType = "users"
	TypeLeave   MessageType = "leave"
	TypeQueue   MessageType = "queue"
	TypeUnqueue MessageType = "unqueue"
	TypePlay    MessageType = "play"
	TypeEchoes  MessageType = "echoes"
	TypeStatus  MessageType = "status"
	TypeReject  MessageType = "reject"
	TypeReady   MessageType = "ready"
)

// envelope is decoded first to route an inbound frame.
type envelope struct {
	Type MessageType `json:"type"`
}

type UsersMessage struct {
	Type  MessageType `json:"type"`
	Users []user.User `json:"users"`
}

type LeaveMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
}

// QueueMessage carries appended items. The join snapshot sends the whole
// queue in one message.
type QueueMessage struct {
	Type  MessageType          `json:"type"`
	Items []playback.QueueItem `json:"items"`
}

type UnqueueMessage struct {
	Type   MessageType `json:"type"`
	ItemID int64       `json:"itemId"`
}

// PlayMessage announces the timeline. A nil Item means playback stopped.
// Time is the elapsed playback time in milliseconds when the message was built.
type PlayMessage struct {
	Type MessageType         `json:"type"`
	Item *playback.QueueItem `json:"item,omitempty"`
	Time int64               `json:"time"`
}

type EchoesMessage struct {
	Type    MessageType     `json:"type"`
	Added   []echo.Echo     `json:"added"`
	Removed []user.Position `json:"removed"`
}

type StatusMessage struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type RejectMessage struct {
	Type   MessageType `json:"type"`
	Reason string      `json:"reason"`
}

type ReadyMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
}

type ChatMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
	Text   string      `json:"text"`
}

// userDelta renders a presence delta. The acting user id is always present.
func userDelta(userID string, fields map[string]any) map[string]any {
	msg := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		msg[k] = v
	}
	msg["type"] = TypeUser
	msg["userId"] = userID
	return msg
}

// fullUser renders a complete record as a presence delta, used to announce
// a join.
func fullUser(u user.User) map[string]any {
	fields := map[string]any{
		"name":   u.Name,
		"avatar": u.Avatar,
		"emotes": emptyIfNil(u.Emotes),
		"tags":   emptyIfNil(u.Tags),
	}
	if u.Position != nil {
		fields["position"] = *u.Position
	} else {
		fields["position"] = nil
	}
	return userDelta(u.ID, fields)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func newPlayMessage(item *playback.QueueItem, elapsed time.Duration) PlayMessage {
	msg := PlayMessage{Type: TypePlay, Time: elapsed.Milliseconds()}
	if item != nil {
		public := item.Public()
		msg.Item = &public
	}
	return msg
}

func publicItems(items []playback.QueueItem) []playback.QueueItem {
	out := make([]playback.QueueItem, len(items))
	for i, item := range items {
		out[i] = item.Public()
	}
	return out
}
