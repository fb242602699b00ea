// Package internal contains integration tests that drive the console from the
// game menu down to the session multiplexer, with a real SQLite store and
// in-memory sessions.
package internal

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/xoxserver/xox-server/internal/game"
	"github.com/xoxserver/xox-server/internal/lifecycle"
	"github.com/xoxserver/xox-server/internal/prompt/prompttest"
	"github.com/xoxserver/xox-server/internal/session"
	"github.com/xoxserver/xox-server/internal/steam"
	"github.com/xoxserver/xox-server/internal/store"
)

// memMux keeps sessions in memory.
type memMux struct {
	mu      sync.Mutex
	scripts map[string]string
	dirs    map[string]string
}

func newMemMux() *memMux {
	return &memMux{scripts: map[string]string{}, dirs: map[string]string{}}
}

func (m *memMux) ListSessions(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.scripts))
	for n := range m.scripts {
		names = append(names, n)
	}
	slices.Sort(names)
	return names, nil
}

func (m *memMux) Spawn(_ context.Context, name, script, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[name] = script
	m.dirs[name] = dir
	return nil
}

func (m *memMux) Attach(context.Context, string) error { return nil }

func (m *memMux) Kill(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scripts, name)
	delete(m.dirs, name)
	return nil
}

type recordingSteam struct {
	mu   sync.Mutex
	apps []steam.App
}

func (s *recordingSteam) Update(_ context.Context, app steam.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps = append(s.apps, app)
	return nil
}

func TestConsoleIntegration(t *testing.T) {
	ctx := context.Background()
	home := t.TempDir()
	steamHome := filepath.Join(home, ".steam", "steamapps", "common")
	if err := os.MkdirAll(steamHome, 0755); err != nil {
		t.Fatal(err)
	}
	cluster := filepath.Join(home, "dst")
	if err := os.MkdirAll(cluster, 0755); err != nil {
		t.Fatal(err)
	}

	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "appdata.sqlite3"), nil)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer db.Close()

	mux := newMemMux()
	updater := &recordingSteam{}
	deps := func(p *prompttest.Scripted) game.Deps {
		return game.Deps{
			DB:       db,
			Sessions: session.NewRegistry(mux, nil, session.WithTerminalCheck(func() bool { return true })),
			Prompter: p,
			Env: game.Env{
				HomeDir:             home,
				SteamHomeCandidates: []string{steamHome},
				Steam:               updater,
				Command: func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
					return exec.CommandContext(ctx, "true")
				},
			},
		}
	}
	run := func(p *prompttest.Scripted) {
		t.Helper()
		menu := lifecycle.NewMenu(p, nil, game.MenuEntries(deps(p))...)
		if err := menu.Run(ctx); err != nil {
			t.Fatalf("menu.Run() error = %v", err)
		}
		if p.Remaining() != 0 {
			t.Fatalf("%d scripted answers left, asked %v", p.Remaining(), p.Asked)
		}
	}

	// Create a cluster.
	run(prompttest.New().
		Choose("dst").
		Choose("create").
		Type("XoX DST").
		Type(cluster).
		Answer(true).
		Choose("cancel").
		Choose("quit"))

	entry, ok := game.Lookup("dst")
	if !ok {
		t.Fatal("dst not registered")
	}
	metas, err := entry.List(ctx, db)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 1 || metas[0].Name != "XoX-DST" {
		t.Fatalf("instances = %+v", metas)
	}
	primary := session.Identity{DisplayName: "XoX-DST", ExternalID: metas[0].ExternalID}

	// Launch it twice; the second launch finds both sessions running.
	launch := "launch:" + metas[0].ExternalID
	for i := range 2 {
		p := prompttest.New().
			Choose("dst").
			Choose(launch).
			Answer(false).
			Choose("cancel").
			Choose("quit")
		run(p)

		if i == 1 {
			if len(p.Infos) < 2 || !strings.Contains(p.Infos[0], "already running") {
				t.Errorf("relaunch infos = %v", p.Infos)
			}
		}
	}

	names, _ := mux.ListSessions(ctx)
	want := []string{primary.Shard("caves").Name(), primary.Name()}
	slices.Sort(want)
	if !slices.Equal(names, want) {
		t.Fatalf("sessions = %v, want %v", names, want)
	}
	if !strings.Contains(mux.scripts[primary.Shard("caves").Name()], "-shard Caves") {
		t.Errorf("caves script = %q", mux.scripts[primary.Shard("caves").Name()])
	}
	if !strings.Contains(mux.scripts[primary.Name()], "-conf_dir '"+primary.Name()+"'") {
		t.Errorf("primary script = %q", mux.scripts[primary.Name()])
	}
	if len(updater.apps) != 2 || updater.apps[0].AppID != game.DSTAppID {
		t.Errorf("steam updates = %+v", updater.apps)
	}

	// Delete the cluster; its sessions are left to the operator.
	run(prompttest.New().
		Choose("dst").
		Choose("delete").
		Choose(metas[0].ExternalID).
		Choose("cancel").
		Choose("quit"))

	if metas, _ := entry.List(ctx, db); len(metas) != 0 {
		t.Errorf("instances after delete = %+v", metas)
	}
	reg := session.NewRegistry(mux, nil)
	if err := reg.Kill(ctx, primary.Name()); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if reg.Exists(ctx, primary) {
		t.Error("session survived Kill()")
	}
}
