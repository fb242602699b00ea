package game

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/mod/semver"

	"github.com/xoxserver/xox-server/internal/errors"
)

// Modloader types.
const (
	ModloaderForge    = "forge"
	ModloaderNeoForge = "neoforge"
	ModloaderFabric   = "fabric"
)

// fabricLauncherVersion is the Fabric server launcher the console installs.
const fabricLauncherVersion = "1.0.0"

const neoForgeProjectURL = "https://projects.neoforged.net/neoforged/neoforge"

// MinecraftEndpoints are the upstream locations of modloader metadata and
// installers.
type MinecraftEndpoints struct {
	ForgeFiles       string
	ForgeMaven       string
	NeoForgeMaven    string
	NeoForgeVersions string
	FabricMeta       string
}

func (e MinecraftEndpoints) withDefaults() MinecraftEndpoints {
	if e.ForgeFiles == "" {
		e.ForgeFiles = "https://files.minecraftforge.net/net/minecraftforge/forge"
	}
	if e.ForgeMaven == "" {
		e.ForgeMaven = "https://maven.minecraftforge.net/net/minecraftforge/forge"
	}
	if e.NeoForgeMaven == "" {
		e.NeoForgeMaven = "https://maven.neoforged.net/releases/net/neoforged/neoforge"
	}
	if e.NeoForgeVersions == "" {
		e.NeoForgeVersions = "https://maven.neoforged.net/api/maven/versions/releases/net/neoforged/neoforge"
	}
	if e.FabricMeta == "" {
		e.FabricMeta = "https://meta.fabricmc.net/v2/versions/loader"
	}
	return e
}

// ForgeIndex is the Forge download page of a Minecraft version. Its presence
// is how a Minecraft version is recognized.
func (e MinecraftEndpoints) ForgeIndex(mc string) string {
	return e.ForgeFiles + "/index_" + mc + ".html"
}

func (e MinecraftEndpoints) ForgeInstaller(mc, version string) string {
	full := mc + "-" + version
	return e.ForgeMaven + "/" + full + "/forge-" + full + "-installer.jar"
}

func (e MinecraftEndpoints) NeoForgeInstaller(version string) string {
	return e.NeoForgeMaven + "/" + version + "/neoforge-" + version + "-installer.jar"
}

func (e MinecraftEndpoints) FabricServerJar(mc, loader string) string {
	return e.FabricMeta + "/" + mc + "/" + loader + "/" + fabricLauncherVersion + "/server/jar"
}

// VersionsPage is the page linked from the modloader version prompt.
func (e MinecraftEndpoints) VersionsPage(modloader, mc string) string {
	switch modloader {
	case ModloaderForge:
		return e.ForgeIndex(mc)
	case ModloaderNeoForge:
		return neoForgeProjectURL
	default:
		return e.FabricMeta
	}
}

// minorVersion returns the second component of a Minecraft version such as
// 1.20.1.
func minorVersion(mc string) (int, error) {
	parts := strings.Split(mc, ".")
	if len(parts) < 2 {
		return 0, errors.NewValidationError("Invalid Minecraft version").WithValue(mc)
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.NewValidationError("Invalid Minecraft version").WithValue(mc)
	}
	return n, nil
}

// JavaVersionFor returns the Java major version a Minecraft release runs on.
func JavaVersionFor(mc string) (int, error) {
	minor, err := minorVersion(mc)
	if err != nil {
		return 0, err
	}
	switch {
	case minor <= 16:
		return 8, nil
	case minor == 17:
		return 16, nil
	case minor <= 19:
		return 17, nil
	default:
		return 21, nil
	}
}

// neoForgePrefix maps a Minecraft version to the NeoForge version prefix:
// 1.20.4 publishes as 20.4.x, 1.21 as 21.0.x.
func neoForgePrefix(mc string) (string, error) {
	if _, err := minorVersion(mc); err != nil {
		return "", err
	}
	parts := strings.Split(mc, ".")
	patch := "0"
	if len(parts) > 2 && parts[2] != "" {
		patch = parts[2]
	}
	return parts[1] + "." + patch + ".", nil
}

// versions resolves and checks Minecraft and modloader versions upstream.
type versions struct {
	dl Downloader
	ep MinecraftEndpoints
}

// MinecraftExists reports whether Forge publishes a page for mc.
func (v versions) MinecraftExists(ctx context.Context, mc string) (bool, error) {
	return v.dl.Exists(ctx, v.ep.ForgeIndex(mc))
}

// Latest returns the newest modloader release for mc.
func (v versions) Latest(ctx context.Context, modloader, mc string) (string, error) {
	switch modloader {
	case ModloaderForge:
		return v.latestForge(ctx, mc)
	case ModloaderNeoForge:
		return v.latestNeoForge(ctx, mc)
	case ModloaderFabric:
		return v.latestFabric(ctx)
	default:
		return "", errors.NewValidationError("Type must be one of forge/neoforge/fabric").WithValue(modloader)
	}
}

// latestForge reads the "Latest" promotion off the Forge download page. The
// entry renders as "<mc> - <version>".
func (v versions) latestForge(ctx context.Context, mc string) (string, error) {
	page, err := v.dl.GetString(ctx, v.ep.ForgeIndex(mc))
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse Forge download page")
	}
	text := strings.Join(strings.Fields(doc.Find("i.fa.promo-latest").Parent().Find("br + small").Text()), "")
	parts := strings.Split(text, "-")
	if len(parts) < 2 || parts[1] == "" {
		return "", errors.NewNotFoundError("Forge version", mc)
	}
	return parts[1], nil
}

type neoForgeVersions struct {
	Versions []string `json:"versions"`
}

func (v versions) latestNeoForge(ctx context.Context, mc string) (string, error) {
	prefix, err := neoForgePrefix(mc)
	if err != nil {
		return "", err
	}
	var list neoForgeVersions
	if err := v.dl.GetJSON(ctx, v.ep.NeoForgeVersions, &list); err != nil {
		return "", err
	}
	for _, version := range slices.Backward(list.Versions) {
		if strings.HasPrefix(version, prefix) {
			return version, nil
		}
	}
	return "", errors.NewNotFoundError("NeoForge version", mc)
}

type fabricLoader struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

func (v versions) fabricLoaders(ctx context.Context) ([]fabricLoader, error) {
	var loaders []fabricLoader
	if err := v.dl.GetJSON(ctx, v.ep.FabricMeta, &loaders); err != nil {
		return nil, err
	}
	return loaders, nil
}

func (v versions) latestFabric(ctx context.Context) (string, error) {
	loaders, err := v.fabricLoaders(ctx)
	if err != nil {
		return "", err
	}
	latest := ""
	for _, l := range loaders {
		if !l.Stable {
			continue
		}
		if latest == "" || semver.Compare("v"+l.Version, "v"+latest) > 0 {
			latest = l.Version
		}
	}
	if latest == "" {
		return "", errors.NewNotFoundError("Fabric loader version", "stable")
	}
	return latest, nil
}

// ModloaderExists reports whether version of modloader is published for mc.
func (v versions) ModloaderExists(ctx context.Context, modloader, mc, version string) (bool, error) {
	switch modloader {
	case ModloaderForge:
		return v.dl.Exists(ctx, v.ep.ForgeInstaller(mc, version))
	case ModloaderNeoForge:
		return v.dl.Exists(ctx, v.ep.NeoForgeInstaller(version))
	case ModloaderFabric:
		loaders, err := v.fabricLoaders(ctx)
		if err != nil {
			return false, err
		}
		return slices.ContainsFunc(loaders, func(l fabricLoader) bool { return l.Version == version }), nil
	default:
		return false, nil
	}
}
