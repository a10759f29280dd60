package docs

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"sort"
	"text/template"

	"github.com/keshon/server-herald/internal/command"
)

// CommandSections renders the registry as markdown, one section per category.
// categoryWeights maps category name to sort order (lower first).
func CommandSections(registry *command.Registry, categoryWeights map[string]int) string {
	commands := registry.All()
	sort.SliceStable(commands, func(i, j int) bool {
		ci, cj := commands[i].Definition.Category, commands[j].Definition.Category
		wi, wj := categoryWeights[ci], categoryWeights[cj]
		if wi != wj {
			return wi < wj
		}
		if ci != cj {
			return ci < cj
		}
		return commands[i].Name() < commands[j].Name()
	})

	var buf bytes.Buffer
	currentCategory := ""
	for i, c := range commands {
		d := c.Definition
		if i == 0 || d.Category != currentCategory {
			if i > 0 {
				buf.WriteString("\n")
			}
			currentCategory = d.Category
			title := currentCategory
			if title == "" {
				title = "Other"
			}
			buf.WriteString(fmt.Sprintf("### %s\n\n", title))
		}

		if len(d.Subcommands) == 0 && len(d.Groups) == 0 {
			buf.WriteString(fmt.Sprintf("- **/%s** - %s%s\n", d.Name, d.Description, flags(d)))
			continue
		}
		for _, s := range d.Subcommands {
			buf.WriteString(fmt.Sprintf("- **/%s %s** - %s%s\n", d.Name, s.Name, s.Description, flags(d)))
		}
		for _, g := range d.Groups {
			for _, s := range g.Subcommands {
				buf.WriteString(fmt.Sprintf("- **/%s %s %s** - %s%s\n", d.Name, g.Name, s.Name, s.Description, flags(d)))
			}
		}
	}
	return buf.String()
}

func flags(d *command.Definition) string {
	switch {
	case d.OwnerOnly:
		return " _(owner only)_"
	case !d.DMPermission:
		return " _(servers only)_"
	}
	return ""
}

// UpdateReadme renders tmplPath with the command sections into outPath.
func UpdateReadme(registry *command.Registry, categoryWeights map[string]int, tmplPath, outPath string) error {
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return err
	}

	data := struct {
		CommandSections string
	}{
		CommandSections: CommandSections(registry, categoryWeights),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, out.Bytes(), 0o644); err != nil {
		return err
	}

	log.Printf("[INFO] %s updated with current commands", outPath)
	return nil
}
