package user

import (
	"encoding/json"
	"testing"

	"zone/internal/pkg/errs"
)

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"name only", `{"type":"user","name":"ada"}`, false},
		{"position", `{"type":"user","position":[1,0,15]}`, false},
		{"emotes", `{"type":"user","emotes":["wiggle","spin"]}`, false},
		{"avatar", `{"type":"user","avatar":"AAECAwQFBgc="}`, false},
		{"unknown field", `{"type":"user","tags":["admin"]}`, true},
		{"long name", `{"type":"user","name":"abcdefghijklmnopq"}`, true},
		{"control char", `{"type":"user","name":"a\u0007"}`, true},
		{"out of bounds", `{"type":"user","position":[16,0,0]}`, true},
		{"negative", `{"type":"user","position":[0,-1,0]}`, true},
		{"two coords", `{"type":"user","position":[1,2]}`, true},
		{"bad emote", `{"type":"user","emotes":["moonwalk"]}`, true},
		{"dup emote", `{"type":"user","emotes":["spin","spin"]}`, true},
		{"bad avatar", `{"type":"user","avatar":"***"}`, true},
		{"not json", `{"type":`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseUpdate([]byte(tc.raw))
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseUpdate(%s) error = %v, wantErr %v", tc.raw, err, tc.wantErr)
			}
			if err != nil && err.Code != errs.ErrValidation {
				t.Fatalf("unexpected error code %d", err.Code)
			}
		})
	}
}

func TestPatchApplyAndFields(t *testing.T) {
	u := User{ID: "1", Name: "old"}

	patch, err := ParseUpdate([]byte(`{"type":"user","name":"new","position":[2,3,4]}`))
	if err != nil {
		t.Fatalf("ParseUpdate() error = %v", err)
	}
	patch.Apply(&u)

	if u.Name != "new" || u.Position == nil || *u.Position != (Position{2, 3, 4}) {
		t.Fatalf("unexpected user after apply: %+v", u)
	}

	fields := patch.Fields()
	if len(fields) != 2 {
		t.Fatalf("delta should only carry changed fields, got %v", fields)
	}

	despawn := Patch{Despawn: true}
	despawn.Apply(&u)
	if u.Spawned() {
		t.Fatal("despawn left a position behind")
	}

	encoded, _ := json.Marshal(despawn.Fields())
	if string(encoded) != `{"position":null}` {
		t.Fatalf("unexpected despawn delta: %s", encoded)
	}
}

func TestTags(t *testing.T) {
	u := User{ID: "1"}
	if !u.AddTag(TagDJ) || u.AddTag(TagDJ) {
		t.Fatal("AddTag should change the set exactly once")
	}
	if !u.IsDJ() || u.IsAdmin() {
		t.Fatalf("unexpected roles: %v", u.Tags)
	}

	clone := u.Clone()
	clone.Tags[0] = "mutated"
	if u.Tags[0] != TagDJ {
		t.Fatal("Clone shares the tag slice")
	}

	if !u.RemoveTag(TagDJ) || u.RemoveTag(TagDJ) {
		t.Fatal("RemoveTag should change the set exactly once")
	}
}
