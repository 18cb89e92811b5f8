package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"uvfs/pkg/config"
	"uvfs/pkg/ramfs"
	"uvfs/pkg/vfs"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "uvfs",
		Short: "A virtual filesystem namespace with a syscall-level shell",
		Long: `uvfs hosts an in-memory filesystem behind a vnode namespace layer and
exposes the syscall surface (open, read, write, dup, mkdir, rename, ...)
through an interactive shell or a script runner.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (optional)")

	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Run an interactive shell over a fresh namespace",
		Args:  cobra.NoArgs,
		RunE:  runShell,
	}
	runCmd := &cobra.Command{
		Use:   "run script",
		Short: "Execute shell commands from a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}
	rootCmd.AddCommand(shellCmd, runCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup builds the namespace and a root process from the configuration.
func setup() (*vfs.VFS, *vfs.Proc, error) {
	godotenv.Load()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	v := vfs.New(ramfs.New(), vfs.WithLogger(logger))
	proc := v.NewProc(cfg.MaxFiles)

	if err := seed(proc, cfg.Seed); err != nil {
		proc.Exit()
		v.Shutdown()
		return nil, nil, err
	}
	return v, proc, nil
}

// logLevel resolves the slog level: the UVFS_LOG_LEVEL environment
// variable wins over the config file.
func logLevel(name string) slog.Level {
	if env := os.Getenv("UVFS_LOG_LEVEL"); env != "" {
		name = env
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "", "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func seed(proc *vfs.Proc, seeds []config.Seed) error {
	for _, s := range seeds {
		var err error
		switch s.Kind {
		case config.KindDir:
			err = proc.Mkdir(s.Path)
		case config.KindFile:
			err = writeFile(proc, s.Path, []byte(s.Content))
		case config.KindCharDev:
			err = proc.Mknod(s.Path, vfs.ModeChar, vfs.DevID(s.Device))
		case config.KindBlockDev:
			err = proc.Mknod(s.Path, vfs.ModeBlock, vfs.DevID(s.Device))
		}
		if err != nil {
			return fmt.Errorf("seed %s: %w", s.Path, err)
		}
	}
	return nil
}

func writeFile(proc *vfs.Proc, path string, data []byte) error {
	fd, err := proc.Open(path, vfs.O_WRONLY|vfs.O_CREAT|vfs.O_TRUNC)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := proc.Write(fd, data); err != nil {
			proc.Close(fd)
			return err
		}
	}
	return proc.Close(fd)
}

func runShell(cmd *cobra.Command, args []string) error {
	v, proc, err := setup()
	if err != nil {
		return err
	}
	defer v.Shutdown()
	defer proc.Exit()

	sh := newShell(proc, os.Stdout)
	return sh.repl(os.Stdin)
}

func runScript(cmd *cobra.Command, args []string) error {
	v, proc, err := setup()
	if err != nil {
		return err
	}
	defer v.Shutdown()
	defer proc.Exit()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	sh := newShell(proc, os.Stdout)
	return sh.runAll(f)
}
