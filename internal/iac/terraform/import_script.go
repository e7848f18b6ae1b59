package terraform

import (
	"strings"

	"github.com/pratik-mahalle/iamgen/internal/domain/generation"
)

// ImportCommand is one terraform import invocation
type ImportCommand struct {
	Address string
	ID      string
}

// ImportScript is a rendered import script
type ImportScript struct {
	Filename string
	Body     string
	Commands int
}

// ImportCommands collects an import command for every instance with a resolvable id.
// Categories without an import id are skipped.
func ImportCommands(sets []ResourceSet, convention string) []ImportCommand {
	var cmds []ImportCommand
	for _, set := range sets {
		if set.Mapping.ImportID == nil {
			continue
		}
		for _, inst := range set.Instances(convention) {
			id := set.Mapping.ImportID(inst.Record)
			if id == "" {
				continue
			}
			cmds = append(cmds, ImportCommand{
				Address: set.Mapping.Address(inst.Label),
				ID:      id,
			})
		}
	}
	return cmds
}

// BuildImportScript assembles cmds into a script of the given format. It returns nil when the
// format is "none" or there is nothing to import. Unknown formats produce bash.
func BuildImportScript(format string, cmds []ImportCommand) *ImportScript {
	if format == generation.ScriptNone || len(cmds) == 0 {
		return nil
	}

	var b strings.Builder
	script := &ImportScript{Commands: len(cmds)}

	if format == generation.ScriptPowerShell {
		script.Filename = "import.ps1"
		b.WriteString("$ErrorActionPreference=\"Stop\"\n\n")
		for _, c := range cmds {
			b.WriteString("terraform import " + powershellQuote(c.Address) + " " + powershellQuote(c.ID) + "\n")
		}
	} else {
		script.Filename = "import.sh"
		b.WriteString("#!/bin/bash\nset -e\n\n")
		for _, c := range cmds {
			b.WriteString("terraform import " + shellQuote(c.Address) + " " + shellQuote(c.ID) + "\n")
		}
	}

	script.Body = b.String()
	return script
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func powershellQuote(s string) string {
	r := strings.NewReplacer("`", "``", `"`, "`\"", "$", "`$")
	return `"` + r.Replace(s) + `"`
}
