// Package gate provides the license/feature capability check consumed by
// the core. The engine is fully functional with every feature disabled.
package gate

import "os"

// Feature names gated behind paid tiers.
const (
	FeatureDenseEmbeddings = "dense-embeddings"
	FeaturePDFIngest       = "pdf-ingest"
	FeatureWebIngest       = "web-ingest"
)

// Gate answers boolean capability checks.
type Gate interface {
	Enabled(feature string) bool
}

// Disabled is the default gate: everything off.
type Disabled struct{}

func (Disabled) Enabled(string) bool { return false }

// Static enables an explicit feature set. Useful in tests and for
// tier definitions.
type Static map[string]bool

func (s Static) Enabled(feature string) bool { return s[feature] }

var proFeatures = Static{
	FeatureDenseEmbeddings: true,
	FeaturePDFIngest:       true,
	FeatureWebIngest:       true,
}

// FromEnv derives the gate from MEMBOOT_LICENSE_TIER ("free" or "pro").
func FromEnv() Gate {
	if os.Getenv("MEMBOOT_LICENSE_TIER") == "pro" {
		return proFeatures
	}
	return Disabled{}
}

// Tier names the active tier for display.
func Tier(g Gate) string {
	if g != nil && g.Enabled(FeatureDenseEmbeddings) {
		return "pro"
	}
	return "free"
}
