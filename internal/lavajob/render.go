// Package lavajob renders LAVA CI job definitions from a template.
//
// Rendering is strict: a template referencing a key the context does not
// define fails instead of silently emitting an empty value, so a typo in a
// job template is caught at generation time rather than on the board farm.
package lavajob

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

// DeviceTypes maps architecture identifiers to the LAVA device type used
// for that architecture.
//
// Intel uses the HP Chromebook x360 12b (octopus); AMD uses the HP
// Chromebook 11A G6 EE (grunt).
var DeviceTypes = map[string]string{
	"intel": "hp-x360-12b-ca0010nr-n4020-octopus",
	"amd":   "hp-11A-G6-EE-grunt",
}

// Context carries the values a job template may reference.
type Context struct {
	CcdecBuildID string
	Arch         string
	DeviceType   string
	TestBranch   string
	RepoURL      string
}

// DeviceTypeFor returns the LAVA device type for arch, or an error for an
// architecture missing from the table. The lookup is strict on purpose: a
// job submitted against an unknown device type would be rejected by the
// farm anyway, with a worse diagnostic.
func DeviceTypeFor(arch string) (string, error) {
	dt, ok := DeviceTypes[arch]
	if !ok {
		return "", fmt.Errorf("no device type known for architecture %q", arch)
	}
	return dt, nil
}

// RenderFile renders the job template at path with ctx and returns the
// document text.
func RenderFile(path string, ctx Context) (string, error) {
	tmpl, err := template.New(filepath.Base(path)).Option("missingkey=error").ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", path, err)
	}
	return render(tmpl, ctx)
}

// Render renders an in-memory template source, for tests and embedding.
func Render(name, src string, ctx Context) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", name, err)
	}
	return render(tmpl, ctx)
}

func render(tmpl *template.Template, ctx Context) (string, error) {
	// missingkey=error only covers map indexing; execute against a map so
	// unknown keys fail rather than rendering "<no value>".
	data := map[string]string{
		"ccdec_build_id": ctx.CcdecBuildID,
		"arch":           ctx.Arch,
		"device_type":    ctx.DeviceType,
		"test_branch":    ctx.TestBranch,
		"repo_url":       ctx.RepoURL,
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering job template: %w", err)
	}
	return buf.String(), nil
}
