// Package canned manages the canned-response template catalog and merges
// extracted ticket data into {{variable}} placeholders.
package canned

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

//go:embed catalog_default.json
var defaultCatalogJSON []byte

// DefaultCatalog parses the catalog shipped with the binary.
func DefaultCatalog() (*Catalog, error) {
	var templates []Template
	if err := json.Unmarshal(defaultCatalogJSON, &templates); err != nil {
		return nil, fmt.Errorf("canned: parse embedded catalog: %w", err)
	}
	return NewCatalog(templates), nil
}

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Variable describes a known placeholder: its display label, whether a draft
// can ship without it, and the default used when the ticket did not provide a
// value.
type Variable struct {
	Label    string
	Required bool
	Default  string
	// HasDefault distinguishes "default is empty string" from "no default".
	HasDefault bool
}

// knownVariables is the static placeholder registry. Required variables have
// no default: they stay as literal placeholders until a human fills them.
var knownVariables = map[string]Variable{
	"customer_name":         {Label: "Customer Name", Default: "there", HasDefault: true},
	"order_number":          {Label: "Order Number", Required: true},
	"product":               {Label: "Product Model", Default: "Apollo", HasDefault: true},
	"device_model":          {Label: "Device Model", Default: "Apollo", HasDefault: true},
	"tracking_number":       {Label: "Tracking Number", Required: true},
	"firmware_version":      {Label: "Firmware Version", Default: "latest", HasDefault: true},
	"device_status":         {Label: "Device Status", Required: true},
	"sync_percentage":       {Label: "Sync Percentage"},
	"connection_type":       {Label: "Connection Type", Default: "Ethernet", HasDefault: true},
	"ip_address":            {Label: "IP Address"},
	"email":                 {Label: "Email Address"},
	"debug_log":             {Label: "Debug Log", Required: true},
	"uptime_or_last_reboot": {Label: "Uptime / Last Reboot"},
}

// Template is one catalog entry.
type Template struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Catalog is the loaded template set, keyed by id. Read-only after load.
type Catalog struct {
	byID map[string]Template
}

// LoadCatalog reads a JSON array of templates from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("canned: read catalog %s: %w", path, err)
	}
	var templates []Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("canned: parse catalog %s: %w", path, err)
	}
	return NewCatalog(templates), nil
}

// NewCatalog builds a catalog from templates already in memory.
func NewCatalog(templates []Template) *Catalog {
	byID := make(map[string]Template, len(templates))
	for _, t := range templates {
		if t.ID != "" {
			byID[t.ID] = t
		}
	}
	return &Catalog{byID: byID}
}

// GetByID returns a template's content by id.
func (c *Catalog) GetByID(id string) (Template, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Len reports the number of templates loaded.
func (c *Catalog) Len() int { return len(c.byID) }

// MissingVariable is a placeholder the extracted data did not satisfy.
type MissingVariable struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// Verification is the result of checking a template's placeholders against
// extracted data.
type Verification struct {
	AllSatisfied       bool              `json:"all_satisfied"`
	Missing            []MissingVariable `json:"missing"`
	Satisfied          []string          `json:"satisfied"`
	TotalVariables     int               `json:"total_variables"`
	HasRequiredMissing bool              `json:"has_required_missing"`
}

// Verify scans the UNMERGED template for placeholders (first-seen order,
// deduplicated) and reports which are satisfied by extracted data or a known
// default. It must run before Merge: merging destroys the placeholders the
// scan needs.
func Verify(templateContent string, extracted map[string]string) Verification {
	if templateContent == "" {
		return Verification{AllSatisfied: true}
	}

	var unique []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(templateContent, -1) {
		if name := m[1]; !seen[name] {
			seen[name] = true
			unique = append(unique, name)
		}
	}

	v := Verification{TotalVariables: len(unique)}
	for _, name := range unique {
		def, known := knownVariables[name]
		switch {
		case strings.TrimSpace(extracted[name]) != "":
			v.Satisfied = append(v.Satisfied, name)
		case known && def.HasDefault:
			v.Satisfied = append(v.Satisfied, name)
		default:
			label := def.Label
			if !known {
				label = titleFromKey(name)
			}
			v.Missing = append(v.Missing, MissingVariable{
				Key:      name,
				Label:    label,
				Required: def.Required,
			})
		}
	}
	v.AllSatisfied = len(v.Missing) == 0
	for _, m := range v.Missing {
		if m.Required {
			v.HasRequiredMissing = true
			break
		}
	}
	return v
}

// Merge substitutes placeholders with extracted values, falling back to known
// defaults. Placeholders with neither a value nor a default stay literal so a
// human can spot them.
func Merge(templateContent string, extracted map[string]string) string {
	if templateContent == "" {
		return templateContent
	}
	return placeholderRe.ReplaceAllStringFunc(templateContent, func(tok string) string {
		name := placeholderRe.FindStringSubmatch(tok)[1]
		if v := strings.TrimSpace(extracted[name]); v != "" {
			return v
		}
		if def, ok := knownVariables[name]; ok && def.HasDefault {
			return def.Default
		}
		return tok
	})
}

// Prepared is the output of the full template pipeline.
type Prepared struct {
	DraftText    string       `json:"draft_text"`
	TemplateUsed bool         `json:"template_used"`
	Verification Verification `json:"verification"`
}

// Prepare loads a template by id, verifies its placeholders on the unmerged
// content, then merges. A missing id or unknown template yields an unused
// result, never an error.
func (c *Catalog) Prepare(templateID string, extracted map[string]string) Prepared {
	if templateID == "" {
		return Prepared{Verification: Verify("", nil)}
	}
	t, ok := c.GetByID(templateID)
	if !ok || t.Content == "" {
		return Prepared{Verification: Verify("", nil)}
	}

	verification := Verify(t.Content, extracted)
	return Prepared{
		DraftText:    Merge(t.Content, extracted),
		TemplateUsed: true,
		Verification: verification,
	}
}

func titleFromKey(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
