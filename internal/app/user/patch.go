package user

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"zone/internal/pkg/errs"
)

// Patch is a validated partial update. Nil fields are left untouched.
type Patch struct {
	Name     *string
	Avatar   *string
	Emotes   *[]string
	Position *Position

	// Despawn clears the position. It is set by moderation, never by clients.
	Despawn bool

	// Tags is set by moderation only.
	Tags *[]string
}

// updateFrame is the wire shape of an inbound "user" message.
type updateFrame struct {
	Type     string    `json:"type"`
	Name     *string   `json:"name"`
	Avatar   *string   `json:"avatar"`
	Emotes   *[]string `json:"emotes"`
	Position *Position `json:"position"`
}

// ParseUpdate decodes and validates an inbound "user" frame. Fields other
// than name, avatar, emotes and position are rejected.
func ParseUpdate(raw []byte) (Patch, *errs.CustomError) {
	var frame updateFrame

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&frame); err != nil {
		return Patch{}, errs.Validation(fmt.Sprintf("invalid user update: %v", err))
	}

	patch := Patch{
		Name:     frame.Name,
		Avatar:   frame.Avatar,
		Emotes:   frame.Emotes,
		Position: frame.Position,
	}
	if err := patch.Validate(); err != nil {
		return Patch{}, err
	}
	return patch, nil
}

// Validate checks every present field.
func (p Patch) Validate() *errs.CustomError {
	if p.Name != nil {
		if err := ValidateName(*p.Name); err != nil {
			return err
		}
	}
	if p.Avatar != nil {
		if err := ValidateAvatar(*p.Avatar); err != nil {
			return err
		}
	}
	if p.Emotes != nil {
		seen := make(map[string]struct{}, len(*p.Emotes))
		for _, emote := range *p.Emotes {
			if !slices.Contains(Emotes, emote) {
				return errs.Validation(fmt.Sprintf("unknown emote %q", emote))
			}
			if _, dup := seen[emote]; dup {
				return errs.Validation(fmt.Sprintf("duplicate emote %q", emote))
			}
			seen[emote] = struct{}{}
		}
	}
	if p.Position != nil && !p.Position.InBounds() {
		return errs.Validation(fmt.Sprintf("position %v is outside the room", *p.Position))
	}
	if p.Tags != nil {
		for _, tag := range *p.Tags {
			if !ValidTag(tag) {
				return errs.Validation(fmt.Sprintf("unknown tag %q", tag))
			}
		}
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Avatar == nil && p.Emotes == nil &&
		p.Position == nil && !p.Despawn && p.Tags == nil
}

// Apply merges p into u.
func (p Patch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Emotes != nil {
		u.Emotes = slices.Clone(*p.Emotes)
	}
	if p.Position != nil {
		pos := *p.Position
		u.Position = &pos
	}
	if p.Despawn {
		u.Position = nil
	}
	if p.Tags != nil {
		u.Tags = slices.Clone(*p.Tags)
		slices.Sort(u.Tags)
	}
}

// Fields renders the delta only, keyed by wire field name. A despawn is
// rendered as an explicit null position.
func (p Patch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Avatar != nil {
		fields["avatar"] = *p.Avatar
	}
	if p.Emotes != nil {
		fields["emotes"] = *p.Emotes
	}
	if p.Position != nil {
		fields["position"] = *p.Position
	}
	if p.Despawn {
		fields["position"] = nil
	}
	if p.Tags != nil {
		fields["tags"] = *p.Tags
	}
	return fields
}

// ValidateName checks the display name.
func ValidateName(name string) *errs.CustomError {
	if !utf8.ValidString(name) {
		return errs.Validation("name is not valid UTF-8")
	}
	if utf8.RuneCountInString(name) > NameLimit {
		return errs.Validation(fmt.Sprintf("name is longer than %d characters", NameLimit))
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return errs.Validation("name contains control characters")
	}
	return nil
}

// ValidateAvatar checks the encoded avatar bitmap. The bitmap itself is
// opaque here; only its envelope is checked.
func ValidateAvatar(avatar string) *errs.CustomError {
	if len(avatar) > AvatarLimit {
		return errs.Validation(fmt.Sprintf("avatar is larger than %d bytes", AvatarLimit))
	}
	if avatar == "" {
		return nil
	}
	if _, err := base64.StdEncoding.DecodeString(avatar); err != nil {
		return errs.Validation("avatar is not valid base64")
	}
	return nil
}
