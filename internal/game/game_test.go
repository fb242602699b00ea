package game

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/xoxserver/xox-server/internal/download"
	"github.com/xoxserver/xox-server/internal/lifecycle"
	"github.com/xoxserver/xox-server/internal/steam"
	"github.com/xoxserver/xox-server/internal/store"
)

type fakeSteam struct {
	apps []steam.App
	err  error
}

func (f *fakeSteam) Update(_ context.Context, app steam.App) error {
	f.apps = append(f.apps, app)
	return f.err
}

// fakeDownloader serves canned bodies keyed by URL.
type fakeDownloader struct {
	bodies  map[string]string
	fetched []string
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{bodies: map[string]string{}}
}

func (f *fakeDownloader) serve(url, body string) *fakeDownloader {
	f.bodies[url] = body
	return f
}

func (f *fakeDownloader) body(url string) (string, error) {
	f.fetched = append(f.fetched, url)
	b, ok := f.bodies[url]
	if !ok {
		return "", &download.StatusError{URL: url, Status: 404}
	}
	return b, nil
}

func (f *fakeDownloader) File(_ context.Context, url, dest string) (int64, error) {
	b, err := f.body(url)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), os.WriteFile(dest, []byte(b), 0644)
}

func (f *fakeDownloader) Exists(_ context.Context, url string) (bool, error) {
	_, ok := f.bodies[url]
	return ok, nil
}

func (f *fakeDownloader) GetJSON(_ context.Context, url string, out any) error {
	b, err := f.body(url)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(b), out)
}

func (f *fakeDownloader) GetString(_ context.Context, url string) (string, error) {
	return f.body(url)
}

// testEnv returns an environment rooted in temp directories with an existing
// steamapps/common directory.
func testEnv(t *testing.T) (Env, *fakeSteam, *fakeDownloader) {
	t.Helper()
	home := t.TempDir()
	steamHome := filepath.Join(home, ".steam", "steamapps", "common")
	if err := os.MkdirAll(steamHome, 0755); err != nil {
		t.Fatal(err)
	}
	st := &fakeSteam{}
	dl := newFakeDownloader()
	return Env{
		HomeDir:             home,
		SteamHomeCandidates: []string{filepath.Join(home, "missing"), steamHome},
		Steam:               st,
		Download:            dl,
		Out:                 io.Discard,
		Now:                 func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}, st, dl
}

func steamHomeOf(env Env) string {
	return env.SteamHomeCandidates[len(env.SteamHomeCandidates)-1]
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func script(l lifecycle.Launch) string {
	return strings.Join(l.Commands, " ")
}

func TestRegistry(t *testing.T) {
	wantKeys := []string{"valheim", "palworld", "terraria", "dst", "minecraft-java"}
	var keys, tables []string
	for _, e := range Registry {
		keys = append(keys, e.Key)
		tables = append(tables, e.Table)
		if e.Title == "" || e.Open == nil || e.List == nil {
			t.Errorf("entry %q is incomplete", e.Key)
		}
	}
	if !slices.Equal(keys, wantKeys) {
		t.Errorf("keys = %v, want %v", keys, wantKeys)
	}
	wantTables := []string{"game_valheim", "game_palworld", "game_terraria", "game_do_not_starve_together", "game_minecraft_java"}
	if !slices.Equal(tables, wantTables) {
		t.Errorf("tables = %v, want %v", tables, wantTables)
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		key       string
		wantTitle string
		wantOK    bool
	}{
		{"dst", "Don't Starve Together", true},
		{"minecraft-java", "Minecraft (Java Edition) (Vanilla | Modded)", true},
		{"theforest", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			e, ok := Lookup(tt.key)
			if ok != tt.wantOK || e.Title != tt.wantTitle {
				t.Errorf("Lookup(%q) = %q, %v", tt.key, e.Title, ok)
			}
		})
	}
}

func openDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), store.MemoryPath, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEntry_OpenAndList(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	env, _, _ := testEnv(t)

	// Every registered record type must match its table.
	for _, e := range Registry {
		if _, err := e.Open(ctx, Deps{DB: db, Env: env}); err != nil {
			t.Errorf("%s: Open() error = %v", e.Key, err)
		}
	}

	terraria, err := store.NewTable[TerrariaRecord](ctx, db, "game_terraria")
	if err != nil {
		t.Fatal(err)
	}
	rec := NewTerraria(env).DefaultSchema()
	rec.Name = "Victor-World"
	created, err := terraria.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	entry, _ := Lookup("terraria")
	metas, err := entry.List(ctx, db)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 1 || metas[0].Name != "Victor-World" || metas[0].ExternalID != created.ExternalID {
		t.Errorf("List() = %+v", metas)
	}

	entry, _ = Lookup("valheim")
	metas, err = entry.List(ctx, db)
	if err != nil || len(metas) != 0 {
		t.Errorf("List() = %+v, %v", metas, err)
	}
}

func TestMinecraftRecord_RoundTrip(t *testing.T) {
	ctx := context.Background()
	table, err := store.NewTable[MinecraftJavaRecord](ctx, openDB(t), "game_minecraft_java")
	if err != nil {
		t.Fatal(err)
	}
	rec := NewMinecraftJava(Env{}).DefaultSchema()
	rec.Name = "ATM6"
	rec.WorkingDirectoryPath = "/srv/atm6"
	rec.Version = "1.16.5"
	rec.ModloaderVersion = "36.2.39"
	rec.JavaVersion = 8

	created, err := table.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := table.Get(ctx, created.ExternalID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ModloaderType != ModloaderForge || got.MaxRAM != 6144 || got.JavaVersion != 8 {
		t.Errorf("Get() = %+v", got)
	}
}

func TestMenuEntries(t *testing.T) {
	entries := MenuEntries(Deps{})
	if len(entries) != len(Registry) {
		t.Fatalf("len = %d", len(entries))
	}
	for i, e := range entries {
		if e.Key != Registry[i].Key || e.Title != Registry[i].Title || e.Open == nil {
			t.Errorf("entry %d = %+v", i, e)
		}
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "'plain'"},
		{"/srv/Don't Starve", `'/srv/Don'\''t Starve'`},
		{"", "''"},
	}
	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
