package moderation

import (
	"testing"
	"time"

	"zone/internal/app/user"
	"zone/internal/pkg/errs"
)

func TestLedger(t *testing.T) {
	l := NewLedger()
	now := time.Unix(1700000000, 0)

	if !l.Ban(Ban{IP: "10.0.0.1", Bannee: "4", Banner: "1", Date: now}) {
		t.Fatal("first ban should report a new entry")
	}
	if l.Ban(Ban{IP: "10.0.0.1", Bannee: "5", Banner: "1", Date: now.Add(time.Minute)}) {
		t.Fatal("re-ban should report an existing entry")
	}
	l.Ban(Ban{IP: "10.0.0.2", Bannee: "6", Banner: "1", Date: now.Add(-time.Minute)})

	if !l.IsBanned("10.0.0.1") || l.IsBanned("10.0.0.3") || l.IsBanned("") {
		t.Fatal("unexpected IsBanned results")
	}

	list := l.List()
	if len(list) != 2 || list[0].IP != "10.0.0.2" || list[1].Bannee != "5" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if !l.Unban("10.0.0.1") || l.Unban("10.0.0.1") {
		t.Fatal("unban should succeed exactly once")
	}

	restored := NewLedger()
	restored.Restore(append(list, Ban{IP: ""}))
	if len(restored.List()) != 2 || !restored.IsBanned("10.0.0.1") {
		t.Fatalf("unexpected restored ledger: %+v", restored.List())
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Name
		wantErr bool
	}{
		{name: "ban", raw: `{"name":"ban","userId":"3","reason":"spam"}`, want: CmdBan},
		{name: "ban without user", raw: `{"name":"ban"}`, wantErr: true},
		{name: "unban", raw: `{"name":"unban","ip":"10.0.0.1"}`, want: CmdUnban},
		{name: "unban without ip", raw: `{"name":"unban"}`, wantErr: true},
		{name: "grant dj", raw: `{"name":"grant","userId":"3","tag":"dj"}`, want: CmdGrant},
		{name: "grant unknown tag", raw: `{"name":"grant","userId":"3","tag":"owner"}`, wantErr: true},
		{name: "mode", raw: `{"name":"mode","restricted":true}`, want: CmdMode},
		{name: "mode without flag", raw: `{"name":"mode"}`, wantErr: true},
		{name: "despawn", raw: `{"name":"despawn","userId":"2"}`, want: CmdDespawn},
		{name: "save", raw: `{"name":"save"}`, want: CmdSave},
		{name: "unknown", raw: `{"name":"nuke"}`, wantErr: true},
		{name: "unknown field", raw: `{"name":"save","force":true}`, wantErr: true},
		{name: "not json", raw: `ban 3`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand([]byte(tt.raw))
			if tt.wantErr {
				if !errs.Is(err, errs.ErrValidation) {
					t.Fatalf("got %v want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand() error = %v", err)
			}
			if cmd.Name != tt.want {
				t.Fatalf("got %q want %q", cmd.Name, tt.want)
			}
		})
	}
}

func TestPermit(t *testing.T) {
	tests := []struct {
		tags []string
		cmd  Name
		ok   bool
	}{
		{tags: []string{user.TagAdmin}, cmd: CmdBan, ok: true},
		{tags: []string{user.TagDJ}, cmd: CmdBan, ok: false},
		{tags: nil, cmd: CmdSave, ok: false},
		{tags: []string{user.TagDJ}, cmd: CmdDespawn, ok: true},
		{tags: []string{user.TagAdmin, user.TagDJ}, cmd: CmdMode, ok: true},
	}

	for _, tt := range tests {
		err := Permit(tt.tags, Command{Name: tt.cmd})
		if (err == nil) != tt.ok {
			t.Fatalf("Permit(%v, %s) = %v, want ok=%v", tt.tags, tt.cmd, err, tt.ok)
		}
		if err != nil && !errs.Is(err, errs.ErrForbidden) {
			t.Fatalf("Permit(%v, %s) = %v, want ErrForbidden", tt.tags, tt.cmd, err)
		}
	}
}
