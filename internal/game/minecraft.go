package game

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/instance"
	"github.com/xoxserver/xox-server/internal/lifecycle"
	"github.com/xoxserver/xox-server/internal/prompt"
	"github.com/xoxserver/xox-server/internal/steam"
)

const (
	eulaURL   = "https://aka.ms/MinecraftEULA"
	minRAMMiB = 1000
)

// MinecraftJavaRecord is a stored Minecraft Java Edition server. The working
// directory holds the world, mods and modloader libraries.
type MinecraftJavaRecord struct {
	instance.Meta
	WorkingDirectoryPath string `db:"game_working_directory_path"`
	Version              string `db:"game_version"`
	ModloaderType        string `db:"game_modloader_type"`
	ModloaderVersion     string `db:"game_modloader_version"`
	// RAM in MiB.
	MaxRAM      int `db:"game_max_ram"`
	MinRAM      int `db:"game_min_ram"`
	JavaVersion int `db:"game_java_version"`
}

// MinecraftJava is the Minecraft Java Edition adapter. It runs Forge,
// NeoForge and Fabric servers.
type MinecraftJava struct {
	env      Env
	versions versions
}

// NewMinecraftJava creates the Minecraft Java Edition adapter.
func NewMinecraftJava(env Env) *MinecraftJava {
	env = env.withDefaults()
	return &MinecraftJava{env: env, versions: versions{dl: env.Download, ep: env.Minecraft}}
}

func (a *MinecraftJava) Table() string { return "game_minecraft_java" }

func (a *MinecraftJava) DefaultSchema() MinecraftJavaRecord {
	return MinecraftJavaRecord{
		ModloaderType: ModloaderForge,
		MaxRAM:        6144,
		MinRAM:        6144,
	}
}

var modloaders = []prompt.Choice{
	{Label: "Forge", Value: ModloaderForge},
	{Label: "NeoForge", Value: ModloaderNeoForge},
	{Label: "Fabric", Value: ModloaderFabric},
}

func (a *MinecraftJava) PromptConfiguration(ctx context.Context, p prompt.Prompter, current MinecraftJavaRecord) (MinecraftJavaRecord, error) {
	if a.env.Download == nil {
		return current, errors.NewValidationError("no download client configured")
	}

	var err error
	if current.Name, err = askName(ctx, p, "Name (e.g. All-The-Mods-6-3_4_5)", current.Name); err != nil {
		return current, err
	}
	if current.WorkingDirectoryPath, err = askDirectory(ctx, p, "Working Directory Path (e.g. /path/to/ATM6-3.4.5)", current.WorkingDirectoryPath); err != nil {
		return current, err
	}

	version, err := askVerified(ctx, p, prompt.Field{
		Title:   "Minecraft Java Edition Version (e.g. 1.16.5)",
		Default: current.Version,
		Validate: func(v string) error {
			_, err := minorVersion(strings.TrimSpace(v))
			return err
		},
	}, current.Version, func(v string) (bool, error) {
		return a.versions.MinecraftExists(ctx, v)
	})
	if err != nil {
		return current, err
	}
	if version != current.Version {
		current.ModloaderVersion = ""
		current.JavaVersion = 0
	}
	current.Version = version

	modloader, err := p.Select(ctx, "Modloader Type", modloaders, current.ModloaderType)
	if err != nil {
		return current, err
	}
	if modloader != current.ModloaderType {
		current.ModloaderVersion = ""
	}
	current.ModloaderType = modloader

	p.Info("Retrieving Modloader Versions, this may take few seconds")
	if current.ModloaderVersion == "" {
		if current.ModloaderVersion, err = a.versions.Latest(ctx, current.ModloaderType, current.Version); err != nil {
			return current, err
		}
	}
	if current.JavaVersion == 0 {
		if current.JavaVersion, err = JavaVersionFor(current.Version); err != nil {
			return current, err
		}
	}

	title := hyperlink(
		a.env.Minecraft.VersionsPage(current.ModloaderType, current.Version),
		"Modloader Version (Leave empty for latest version, e.g. "+current.ModloaderVersion+")",
	)
	current.ModloaderVersion, err = askVerified(ctx, p, prompt.Field{Title: title, Default: current.ModloaderVersion}, current.ModloaderVersion,
		func(v string) (bool, error) {
			return a.versions.ModloaderExists(ctx, current.ModloaderType, current.Version, v)
		})
	if err != nil {
		return current, err
	}

	if current.MinRAM, err = askInt(ctx, p, "Min RAM in MB (e.g. 4096)", current.MinRAM, func(n int) error {
		if n < minRAMMiB {
			return errors.NewValidationError(fmt.Sprintf("RAM must be at least %d MB", minRAMMiB))
		}
		return nil
	}); err != nil {
		return current, err
	}
	minRAM := current.MinRAM
	current.MaxRAM, err = askInt(ctx, p, "Max RAM in MB (e.g. 8192)", max(current.MaxRAM, minRAM), func(n int) error {
		if n < minRAM {
			return errors.NewValidationError(fmt.Sprintf("Max RAM must be greater than the minimum RAM requirement of %d MB.", minRAM))
		}
		return nil
	})
	return current, err
}

// minecraftLayout are the files a modloader installation leaves in the
// working directory.
type minecraftLayout struct {
	forgeLibrary      string
	forgeServerJar    string
	forgeUniversalJar string
	forgeShim         string
	forgeInstaller    string
	forgeLegacy       string

	neoforgeLibrary      string
	neoforgeServerJar    string
	neoforgeUniversalJar string
	neoforgeInstaller    string

	fabricLauncher string
}

func layoutFor(rec MinecraftJavaRecord) minecraftLayout {
	wd := rec.WorkingDirectoryPath
	forge := "forge-" + rec.Version + "-" + rec.ModloaderVersion
	forgeLib := filepath.Join(wd, "libraries/net/minecraftforge/forge", rec.Version+"-"+rec.ModloaderVersion)
	neoforge := "neoforge-" + rec.ModloaderVersion
	neoforgeLib := filepath.Join(wd, "libraries/net/neoforged/neoforge", rec.ModloaderVersion)

	return minecraftLayout{
		forgeLibrary:      forgeLib,
		forgeServerJar:    filepath.Join(forgeLib, forge+"-server.jar"),
		forgeUniversalJar: filepath.Join(forgeLib, forge+"-universal.jar"),
		forgeShim:         filepath.Join(wd, forge+"-shim.jar"),
		forgeInstaller:    filepath.Join(wd, forge+"-installer.jar"),
		forgeLegacy:       filepath.Join(wd, forge+".jar"),

		neoforgeLibrary:      neoforgeLib,
		neoforgeServerJar:    filepath.Join(neoforgeLib, neoforge+"-server.jar"),
		neoforgeUniversalJar: filepath.Join(neoforgeLib, neoforge+"-universal.jar"),
		neoforgeInstaller:    filepath.Join(wd, neoforge+"-installer.jar"),

		fabricLauncher: filepath.Join(wd, fmt.Sprintf("fabric-server-mc.%s-loader.%s-launcher.%s.jar", rec.Version, rec.ModloaderVersion, fabricLauncherVersion)),
	}
}

// java returns the binary for the record's Java version.
func (a *MinecraftJava) java(rec MinecraftJavaRecord) (string, error) {
	path := a.env.JavaPath(rec.JavaVersion)
	if !fileExists(path) {
		return "", errors.NewValidationError(fmt.Sprintf(
			"Java %d not found, please install it with `sudo apt install openjdk-%d-jdk`", rec.JavaVersion, rec.JavaVersion,
		)).WithValue(path)
	}
	return path, nil
}

func (a *MinecraftJava) PerformStartupInitialization(ctx context.Context, p prompt.Prompter, rec MinecraftJavaRecord) error {
	java, err := a.java(rec)
	if err != nil {
		return err
	}
	if err := a.installModloader(ctx, p, rec, java); err != nil {
		return err
	}
	return a.signEula(ctx, p, rec)
}

// installModloader installs the server libraries unless a previous
// installation left them in place.
func (a *MinecraftJava) installModloader(ctx context.Context, p prompt.Prompter, rec MinecraftJavaRecord, java string) error {
	if a.env.Download == nil {
		return errors.NewValidationError("no download client configured")
	}
	l := layoutFor(rec)
	log := a.env.Logger.WithInstance(rec.ExternalID)

	switch rec.ModloaderType {
	case ModloaderForge:
		if fileExists(l.forgeServerJar) && fileExists(l.forgeUniversalJar) {
			return nil
		}
		log.Debug("installing forge", "installer", l.forgeInstaller, "library", l.forgeLibrary)
		return a.runInstaller(ctx, p, "Forge", a.env.Minecraft.ForgeInstaller(rec.Version, rec.ModloaderVersion), l.forgeInstaller, java, rec.WorkingDirectoryPath)

	case ModloaderNeoForge:
		if fileExists(l.neoforgeServerJar) && fileExists(l.neoforgeUniversalJar) {
			return nil
		}
		log.Debug("installing neoforge", "installer", l.neoforgeInstaller, "library", l.neoforgeLibrary)
		return a.runInstaller(ctx, p, "NeoForge", a.env.Minecraft.NeoForgeInstaller(rec.ModloaderVersion), l.neoforgeInstaller, java, rec.WorkingDirectoryPath)

	case ModloaderFabric:
		if fileExists(l.fabricLauncher) {
			return nil
		}
		p.Info("Downloading Fabric Installer Jar")
		url := a.env.Minecraft.FabricServerJar(rec.Version, rec.ModloaderVersion)
		log.Debug("downloading fabric launcher", "url", url, "path", l.fabricLauncher)
		if _, err := a.env.Download.File(ctx, url, l.fabricLauncher); err != nil {
			return errors.Wrap(err, "failed to download Fabric launcher")
		}
		return nil

	default:
		return errors.NewValidationError("Type must be one of forge/neoforge/fabric").WithValue(rec.ModloaderType)
	}
}

// runInstaller fetches an installer jar if needed, runs it headless in dir
// and removes it together with its log.
func (a *MinecraftJava) runInstaller(ctx context.Context, p prompt.Prompter, loader, url, installer, java, dir string) error {
	if !fileExists(installer) {
		p.Info("Downloading " + loader + " Installer Jar")
		if _, err := a.env.Download.File(ctx, url, installer); err != nil {
			return errors.Wrapf(err, "failed to download %s installer", loader)
		}
	}
	p.Info("Installing " + loader + " Library")

	progress := steam.NewProgressWriter(a.env.Out, steam.TerminalWidth)
	cmd := a.env.Command(ctx, java, "-jar", installer, "--installServer")
	cmd.Dir = dir
	cmd.Stdout = progress
	cmd.Stderr = progress
	runErr := cmd.Run()
	_ = progress.Close()
	if runErr != nil {
		return errors.Wrapf(runErr, "%s installer failed", loader)
	}

	for _, path := range []string{installer, installer + ".log"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "failed to remove %s", path)
		}
	}
	return nil
}

func eulaText(date string, accepted bool) string {
	return strings.Join([]string{
		"#By changing the setting below to TRUE you are indicating your agreement to our EULA (" + eulaURL + ").",
		"#" + date,
		fmt.Sprintf("eula=%t", accepted),
	}, "\n")
}

// signEula makes sure eula.txt in the working directory is accepted, asking
// the operator when it is not.
func (a *MinecraftJava) signEula(ctx context.Context, p prompt.Prompter, rec MinecraftJavaRecord) error {
	path := filepath.Join(rec.WorkingDirectoryPath, "eula.txt")
	date := a.env.Now().Format("Mon Jan 02 15:04:05 MST 2006")

	if !fileExists(path) {
		if err := os.WriteFile(path, []byte(eulaText(date, false)), 0644); err != nil {
			return errors.Wrap(err, "failed to write eula.txt")
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read eula.txt")
	}
	if strings.Contains(string(data), "eula=true") {
		return nil
	}

	agreed, err := p.Confirm(ctx, "Do you agree to the Minecraft EULA ("+eulaURL+")", true)
	if err != nil {
		return err
	}
	if !agreed {
		return errors.NewValidationError("The Minecraft EULA must be accepted to start the server")
	}
	if err := os.WriteFile(path, []byte(eulaText(date, true)), 0644); err != nil {
		return errors.Wrap(err, "failed to write eula.txt")
	}
	return nil
}

func (a *MinecraftJava) Launches(rec MinecraftJavaRecord) ([]lifecycle.Launch, error) {
	java := shellQuote(a.env.JavaPath(rec.JavaVersion))
	l := layoutFor(rec)

	var commands []string
	if rec.ModloaderType == ModloaderForge && fileExists(l.forgeShim) {
		commands = append(commands, java, "-jar", shellQuote(l.forgeShim), "--onlyCheckJava", "||", "exit", "1;")
	}
	commands = append(commands,
		java,
		"-server",
		fmt.Sprintf("-Xmx%dM", rec.MaxRAM),
		fmt.Sprintf("-Xms%dM", rec.MinRAM),
	)

	userArgs := shellQuote("@" + filepath.Join(rec.WorkingDirectoryPath, "user_jvm_args.txt"))
	switch rec.ModloaderType {
	case ModloaderFabric:
		commands = append(commands, "-jar", shellQuote(l.fabricLauncher))
	case ModloaderForge:
		if fileExists(l.forgeLegacy) {
			commands = append(commands, "-jar", shellQuote(l.forgeLegacy))
		} else {
			commands = append(commands, userArgs, shellQuote("@"+filepath.Join(l.forgeLibrary, "unix_args.txt")))
		}
	case ModloaderNeoForge:
		commands = append(commands, userArgs, shellQuote("@"+filepath.Join(l.neoforgeLibrary, "unix_args.txt")))
	default:
		return nil, errors.NewValidationError("Type must be one of forge/neoforge/fabric").WithValue(rec.ModloaderType)
	}

	return []lifecycle.Launch{{
		Dir:      rec.WorkingDirectoryPath,
		Commands: append(commands, "nogui"),
	}}, nil
}
