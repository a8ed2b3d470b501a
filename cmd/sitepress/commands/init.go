package commands

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitepress/internal/config"
)

//go:embed scaffold
var scaffold embed.FS

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing files"`
	Dir   string `short:"d" name:"dir" help:"Project directory" default:"."`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	cfgPath := root.Config
	if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(i.Dir, cfgPath)
	}
	return RunInit(i.Dir, cfgPath, i.Force)
}

// RunInit writes an example configuration and a small project next to it.
func RunInit(dir, configPath string, force bool) error {
	fmt.Println("Initializing sitepress project")
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	written, err := writeScaffold(dir, force)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d example files\n", written)
	fmt.Println("initialized successfully")
	return nil
}

// writeScaffold copies the embedded project into dir. Existing files are
// kept unless force is set.
func writeScaffold(dir string, force bool) (int, error) {
	written := 0
	err := fs.WalkDir(scaffold, "scaffold", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel("scaffold", filepath.FromSlash(path))
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if _, statErr := os.Stat(target); statErr == nil && !force {
			return nil
		}
		data, err := scaffold.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		written++
		return nil
	})
	return written, err
}
