package moderation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"zone/internal/app/user"
	"zone/internal/pkg/errs"
)

// Name identifies an admin command.
type Name string

const (
	CmdBan     Name = "ban"
	CmdUnban   Name = "unban"
	CmdGrant   Name = "grant"
	CmdRevoke  Name = "revoke"
	CmdMode    Name = "mode"
	CmdDespawn Name = "despawn"
	CmdKill    Name = "kill"
	CmdSave    Name = "save"
)

// ReasonLimit caps the ban reason length in bytes.
const ReasonLimit = 256

// Command is a decoded admin command. Only the fields its Name uses are set.
type Command struct {
	Name       Name   `json:"name"`
	UserID     string `json:"userId,omitempty"`
	IP         string `json:"ip,omitempty"`
	Tag        string `json:"tag,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Restricted *bool  `json:"restricted,omitempty"`
}

// permits lists, per command, the tags any one of which allows it.
var permits = map[Name][]string{
	CmdBan:     {user.TagAdmin},
	CmdUnban:   {user.TagAdmin},
	CmdGrant:   {user.TagAdmin},
	CmdRevoke:  {user.TagAdmin},
	CmdMode:    {user.TagAdmin},
	CmdDespawn: {user.TagAdmin, user.TagDJ},
	CmdKill:    {user.TagAdmin},
	CmdSave:    {user.TagAdmin},
}

// ParseCommand decodes and validates a command body.
func ParseCommand(raw []byte) (Command, error) {
	var cmd Command
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return Command{}, errs.Validation(fmt.Sprintf("malformed command: %v", err))
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// Validate checks that the fields cmd.Name needs are present.
func (c Command) Validate() error {
	if _, ok := permits[c.Name]; !ok {
		return errs.Validation(fmt.Sprintf("unknown command %q", c.Name))
	}

	switch c.Name {
	case CmdBan, CmdDespawn, CmdKill:
		if c.UserID == "" {
			return errs.Validation(fmt.Sprintf("%s needs a userId", c.Name))
		}
	case CmdGrant, CmdRevoke:
		if c.UserID == "" {
			return errs.Validation(fmt.Sprintf("%s needs a userId", c.Name))
		}
		if !user.ValidTag(c.Tag) {
			return errs.Validation(fmt.Sprintf("unknown tag %q", c.Tag))
		}
	case CmdUnban:
		if c.IP == "" {
			return errs.Validation("unban needs an ip")
		}
	case CmdMode:
		if c.Restricted == nil {
			return errs.Validation("mode needs restricted")
		}
	}

	if len(c.Reason) > ReasonLimit {
		return errs.Validation(fmt.Sprintf("reason is longer than %d bytes", ReasonLimit))
	}
	return nil
}

// Permit checks the actor's current tags against cmd.
func Permit(tags []string, cmd Command) error {
	allowed, ok := permits[cmd.Name]
	if !ok {
		return errs.Validation(fmt.Sprintf("unknown command %q", cmd.Name))
	}
	for _, t := range allowed {
		if slices.Contains(tags, t) {
			return nil
		}
	}
	return errs.NewError(errs.ErrForbidden, string(cmd.Name))
}
