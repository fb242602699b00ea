package session

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/xoxserver/xox-server/internal/errors"
)

type spawnCall struct {
	name, script, dir string
}

type fakeMux struct {
	sessions  []string
	listErr   error
	spawnErr  error
	listCalls int
	spawns    []spawnCall
	attached  []string
	killed    []string
}

func (f *fakeMux) ListSessions(context.Context) ([]string, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sessions, nil
}

func (f *fakeMux) Spawn(_ context.Context, name, script, dir string) error {
	if f.spawnErr != nil {
		return f.spawnErr
	}
	f.spawns = append(f.spawns, spawnCall{name, script, dir})
	f.sessions = append(f.sessions, name)
	return nil
}

func (f *fakeMux) Attach(_ context.Context, name string) error {
	f.attached = append(f.attached, name)
	return nil
}

func (f *fakeMux) Kill(_ context.Context, name string) error {
	f.killed = append(f.killed, name)
	f.sessions = slices.DeleteFunc(f.sessions, func(s string) bool { return s == name })
	return nil
}

func interactive() bool { return true }

func TestIdentity(t *testing.T) {
	id := Identity{DisplayName: "Test-World", ExternalID: "a1b2c3d4"}

	if got := id.Name(); got != "Test-World-a1b2c3d4" {
		t.Errorf("Name() = %q, want Test-World-a1b2c3d4", got)
	}
	if got := id.Shard("caves").Name(); got != "Test-World-caves-a1b2c3d4" {
		t.Errorf("Shard(caves).Name() = %q, want Test-World-caves-a1b2c3d4", got)
	}
	if id.Shard("") != id {
		t.Error("Shard(\"\") should return the primary identity")
	}
}

func TestIdentity_Owns(t *testing.T) {
	id := Identity{DisplayName: "XoX-DST", ExternalID: "0000ffff"}
	tests := []struct {
		name      string
		wantShard string
		wantOK    bool
	}{
		{"XoX-DST-0000ffff", "", true},
		{"XoX-DST-caves-0000ffff", "caves", true},
		{id.Shard("caves").Name(), "caves", true},
		{"XoX-DST-0000fffe", "", false},
		{"XoX-DST--0000ffff", "", false},
		{"Other-0000ffff", "", false},
		{"stray", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shard, ok := id.Owns(tt.name)
			if shard != tt.wantShard || ok != tt.wantOK {
				t.Errorf("Owns(%q) = %q, %v; want %q, %v", tt.name, shard, ok, tt.wantShard, tt.wantOK)
			}
		})
	}
}

func TestRegistry_Exists(t *testing.T) {
	id := Identity{DisplayName: "World", ExternalID: "a1b2"}

	tests := []struct {
		name     string
		sessions []string
		listErr  error
		want     bool
	}{
		{"exact match", []string{"other-ffff", "World-a1b2"}, nil, true},
		{"no sessions", nil, nil, false},
		{"prefix is not a match", []string{"World-a1b2-caves"}, nil, false},
		{"substring is not a match", []string{"My-World-a1b2"}, nil, false},
		{"list failure", []string{"World-a1b2"}, errors.New("No Sockets found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := &fakeMux{sessions: tt.sessions, listErr: tt.listErr}
			r := NewRegistry(mux, nil)
			if got := r.Exists(context.Background(), id); got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry_Create(t *testing.T) {
	id := Identity{DisplayName: "World", ExternalID: "a1b2"}
	ctx := context.Background()

	t.Run("spawns with banner", func(t *testing.T) {
		mux := &fakeMux{}
		r := NewRegistry(mux, nil)

		err := r.Create(ctx, id, []string{"./valheim_server.x86_64", "-name", "World"}, "/srv/valheim")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if len(mux.spawns) != 1 {
			t.Fatalf("spawned %d sessions, want 1", len(mux.spawns))
		}
		got := mux.spawns[0]
		wantScript := "./valheim_server.x86_64 -name World; " + ClosedBanner
		if got.name != "World-a1b2" || got.dir != "/srv/valheim" || got.script != wantScript {
			t.Errorf("spawn = %+v", got)
		}
		if !r.Exists(ctx, id) {
			t.Error("Exists() = false after Create")
		}
	})

	t.Run("existing session", func(t *testing.T) {
		mux := &fakeMux{sessions: []string{"World-a1b2"}}
		r := NewRegistry(mux, nil)

		err := r.Create(ctx, id, []string{"run"}, "")
		var exists *errors.SessionAlreadyExistsError
		if !errors.As(err, &exists) || exists.SessionName != "World-a1b2" {
			t.Fatalf("Create() error = %v, want SessionAlreadyExistsError", err)
		}
		if len(mux.spawns) != 0 {
			t.Error("Create() spawned despite an existing session")
		}
	})

	t.Run("double quote rejected before listing", func(t *testing.T) {
		mux := &fakeMux{}
		r := NewRegistry(mux, nil)

		err := r.Create(ctx, id, []string{"run", `-name "World"`}, "")
		if !errors.Is(err, errors.ErrIllegalArgument) {
			t.Fatalf("Create() error = %v, want ErrIllegalArgument", err)
		}
		if mux.listCalls != 0 || len(mux.spawns) != 0 {
			t.Errorf("multiplexer touched: %d lists, %d spawns", mux.listCalls, len(mux.spawns))
		}
	})

	t.Run("spawn failure", func(t *testing.T) {
		mux := &fakeMux{spawnErr: errors.New("exit status 1")}
		r := NewRegistry(mux, nil)

		err := r.Create(ctx, id, []string{"run"}, "")
		if err == nil || !strings.Contains(err.Error(), "World-a1b2") {
			t.Errorf("Create() error = %v, want wrapped spawn failure", err)
		}
	})
}

func TestRegistry_Attach(t *testing.T) {
	id := Identity{DisplayName: "World", ExternalID: "a1b2"}
	ctx := context.Background()

	t.Run("interactive", func(t *testing.T) {
		mux := &fakeMux{sessions: []string{"World-a1b2"}}
		r := NewRegistry(mux, nil, WithTerminalCheck(interactive))

		if err := r.Attach(ctx, id); err != nil {
			t.Fatalf("Attach() error = %v", err)
		}
		if !slices.Equal(mux.attached, []string{"World-a1b2"}) {
			t.Errorf("attached = %v", mux.attached)
		}
	})

	t.Run("not a terminal", func(t *testing.T) {
		mux := &fakeMux{sessions: []string{"World-a1b2"}}
		r := NewRegistry(mux, nil, WithTerminalCheck(func() bool { return false }))

		if err := r.Attach(ctx, id); !errors.Is(err, errors.ErrValidation) {
			t.Fatalf("Attach() error = %v, want ErrValidation", err)
		}
		if len(mux.attached) != 0 {
			t.Error("Attach() reached the multiplexer without a terminal")
		}
	})
}

func TestRegistry_Kill(t *testing.T) {
	ctx := context.Background()
	mux := &fakeMux{sessions: []string{"World-a1b2", "Other-ffff"}}
	r := NewRegistry(mux, nil)

	if err := r.Kill(ctx, "World-a1b2"); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	names, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !slices.Equal(names, []string{"Other-ffff"}) {
		t.Errorf("List() = %v, want [Other-ffff]", names)
	}
	if err := r.Kill(ctx, "World-a1b2"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second Kill() error = %v, want ErrNotFound", err)
	}
}

func TestScript(t *testing.T) {
	script, err := Script([]string{"cd /srv &&", "./start.sh"})
	if err != nil {
		t.Fatalf("Script() error = %v", err)
	}
	if script != "cd /srv && ./start.sh; "+ClosedBanner {
		t.Errorf("Script() = %q", script)
	}

	if _, err := Script([]string{`say "hi"`}); !errors.Is(err, errors.ErrIllegalArgument) {
		t.Errorf("Script() error = %v, want ErrIllegalArgument", err)
	}
}
