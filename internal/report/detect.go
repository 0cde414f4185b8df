package report

import (
	"fmt"
	"sort"

	"github.com/moolen/vigil/internal/environment"
)

// Detection is the output of the detect command.
type Detection struct {
	Profile      environment.ProfileData       `json:"environment"`
	Endpoints    map[string]string             `json:"endpoints"`
	Instructions environment.SetupInstructions `json:"setup_instructions"`
}

// RenderDetect prints a detected environment and how to set it up.
func (p *Printer) RenderDetect(d Detection) {
	p.println(p.title.Render("🔍 Environment detection"))
	p.rule()
	p.printf("%s %s\n", p.label.Render("Environment:"), d.Instructions.Environment)
	p.printf("%s %s\n", p.label.Render("Auth method:"), d.Profile.AuthMethod)
	if d.Profile.CIPlatform != "" {
		p.printf("%s %s\n", p.label.Render("CI platform:"), d.Profile.CIPlatform)
	}
	p.printf("%s %s\n", p.label.Render("Complexity:"), d.Instructions.Complexity)
	p.printf("%s %s\n", p.label.Render("Approach:"), d.Instructions.Approach)

	p.section("Capabilities")
	for _, name := range sortedKeys(d.Profile.Capabilities) {
		mark := "❌"
		if d.Profile.Capabilities[name] {
			mark = "✅"
		}
		p.printf("%s %s\n", mark, name)
	}

	p.section("Endpoints")
	for _, name := range sortedKeys(d.Endpoints) {
		p.printf("  %-14s %s\n", name, d.Endpoints[name])
	}

	if len(d.Instructions.Steps) > 0 {
		p.section("Next steps")
		for i, step := range d.Instructions.Steps {
			p.printf("  %d. %s\n", i+1, step)
		}
	}
	p.renderSettings("Required secrets", d.Instructions.RequiredSecrets)
	p.renderSettings("Optional configuration", d.Instructions.OptionalConfig)

	if d.Instructions.ExampleUsage != "" {
		p.section("Example usage")
		p.println(d.Instructions.ExampleUsage)
	}
	p.rule()
}

func (p *Printer) renderSettings(title string, settings map[string]string) {
	if len(settings) == 0 {
		return
	}
	p.section(title)
	for _, key := range sortedKeys(settings) {
		p.println(fmt.Sprintf("  %s: %s", key, p.muted.Render(settings[key])))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
