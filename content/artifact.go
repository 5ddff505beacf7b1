// Package content holds content artifacts and the store that tracks them
// from generation to publication.
package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/teranos/cadence/errors"
)

// State is the lifecycle position of an artifact.
type State string

const (
	// StateReady artifacts are eligible for publication.
	StateReady State = "ready"
	// StatePosted is terminal.
	StatePosted State = "posted"
	// StateFailed artifacts exhausted their publish attempts and wait for
	// an operator requeue.
	StateFailed State = "failed"
)

// ScriptExcerptRunes bounds the script section of a rendered description.
const ScriptExcerptRunes = 200

// Artifact is one generated piece of marketing content.
type Artifact struct {
	ID           string     `json:"id" yaml:"id,omitempty"`
	ProductID    string     `json:"product_id" yaml:"product_id"`
	ProductName  string     `json:"product_name" yaml:"product_name"`
	TemplateType string     `json:"template_type" yaml:"template_type"`
	Hook         string     `json:"hook" yaml:"hook"`
	Script       string     `json:"script" yaml:"script"`
	CTA          string     `json:"cta" yaml:"cta"`
	Hashtags     []string   `json:"hashtags" yaml:"hashtags"`
	Assets       []string   `json:"assets,omitempty" yaml:"assets,omitempty"`
	GeneratedAt  time.Time  `json:"generated_at" yaml:"generated_at,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty" yaml:"-"`
	State        State      `json:"state" yaml:"-"`
	Attempts     int        `json:"attempts" yaml:"-"`
	LastError    string     `json:"last_error,omitempty" yaml:"-"`
}

// Description renders the text sent to the publishing platform.
func (a *Artifact) Description() string {
	sections := make([]string, 0, 6)
	if a.Hook != "" {
		sections = append(sections, a.Hook)
	}
	if a.Script != "" {
		sections = append(sections, excerpt(a.Script, ScriptExcerptRunes)+"...")
	}
	if a.CTA != "" {
		sections = append(sections, a.CTA)
	}
	sections = append(sections, fmt.Sprintf("Shop %s in our TikTok Shop! 🛒", a.ProductName))
	if len(a.Hashtags) > 0 {
		sections = append(sections, strings.Join(a.Hashtags, " "))
	}
	if len(a.Assets) > 0 {
		sections = append(sections, "Assets: "+strings.Join(a.Assets, ", "))
	}
	return strings.Join(sections, "\n\n")
}

func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Validate checks the fields a content source must provide.
func (a *Artifact) Validate() error {
	var missing []string
	if a.ProductID == "" {
		missing = append(missing, "product_id")
	}
	if a.ProductName == "" {
		missing = append(missing, "product_name")
	}
	if a.TemplateType == "" {
		missing = append(missing, "template_type")
	}
	if len(missing) > 0 {
		return errors.Newf("artifact missing %s", strings.Join(missing, ", "))
	}
	return nil
}
