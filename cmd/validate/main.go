// Package main checks NPC content offline: every definition must load, every
// world reference and relationship connection must resolve, and every script
// function a definition binds must exist.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/npcmod/internal/content"
	"github.com/cory-johannsen/npcmod/internal/game/npc"
	"github.com/cory-johannsen/npcmod/internal/scripting"
)

func main() {
	worldFile := flag.String("world", "content/world.yaml", "path to the world YAML file")
	npcDir := flag.String("npcs", "content/npcs", "path to NPC YAML definitions directory")
	scriptDir := flag.String("scripts", "content/scripts", "path to NPC Lua scripts; empty skips script checks")
	flag.Parse()

	start := time.Now()
	n, err := validate(*worldFile, *npcDir, *scriptDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d npc definitions valid in %s\n", n, time.Since(start).Round(time.Millisecond))
}

func validate(worldFile, npcDir, scriptDir string) (int, error) {
	bundle, err := content.Load(worldFile, npcDir)
	if err != nil {
		return 0, err
	}
	var errs []error
	if err := bundle.Check(); err != nil {
		errs = append(errs, err)
	}
	if scriptDir != "" {
		if err := checkScripts(bundle.Definitions, scriptDir); err != nil {
			errs = append(errs, err)
		}
	}
	return len(bundle.Definitions), errors.Join(errs...)
}

// checkScripts loads each definition's script and confirms every bound hook
// is a defined function.
func checkScripts(defs []*npc.Definition, dir string) error {
	sm := scripting.NewManager(zap.NewNop())
	defer sm.Close()

	var errs []error
	for _, d := range defs {
		hooks := d.Hooks()
		if d.Script == "" {
			continue
		}
		if err := sm.LoadFile(d.ID, filepath.Join(dir, d.Script), 0); err != nil {
			errs = append(errs, fmt.Errorf("npc %q: %w", d.ID, err))
			continue
		}
		bindings := make([]string, 0, len(hooks))
		for b := range hooks {
			bindings = append(bindings, b)
		}
		sort.Strings(bindings)
		for _, b := range bindings {
			if !sm.HasHook(d.ID, hooks[b]) {
				errs = append(errs, fmt.Errorf("npc %q: %s: script function %q is not defined in %s", d.ID, b, hooks[b], d.Script))
			}
		}
	}
	return errors.Join(errs...)
}
