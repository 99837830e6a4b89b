package risk

import "github.com/abdullahmohammed1234/repopulse/internal/features"

// elevatedTier is the feature value at which the stronger advisory wording
// is used.
const elevatedTier = 0.75

type advisory struct {
	base     string
	elevated string
}

var advisories = map[string]advisory{
	features.KeySize: {
		base:     "Consider splitting this pull request into smaller changes to reduce review complexity.",
		elevated: "This change is very large - break it into independently reviewable pull requests before merge.",
	},
	features.KeyChurnExposure: {
		base:     "Avoid touching hotspot files in the same change; isolate high-churn files into their own pull request.",
		elevated: "High file churn detected - refactor or stabilize the touched hotspot files before merging this change.",
	},
	features.KeyCommitDensity: {
		base:     "Split the work into smaller, focused commits to make review and bisection easier.",
		elevated: "A few very large commits carry most of this change - rework the history into smaller commits.",
	},
	features.KeyContributorRisk: {
		base:     "Assign an experienced reviewer to this change.",
		elevated: "Assign a senior reviewer and require additional testing - contributor history suggests elevated risk.",
	},
}

// Recommend maps the ranked factors to mitigation advice. The mapping is a
// pure lookup: at most one recommendation per distinct feature, output order
// matches the factor order, empty input yields no recommendations.
func Recommend(topFactors []Factor) []string {
	recs := make([]string, 0, len(topFactors))
	seen := make(map[string]bool, len(topFactors))
	for _, f := range topFactors {
		if seen[f.Feature] {
			continue
		}
		seen[f.Feature] = true

		adv, ok := advisories[f.Feature]
		if !ok {
			continue
		}
		if f.Value >= elevatedTier {
			recs = append(recs, adv.elevated)
		} else {
			recs = append(recs, adv.base)
		}
	}
	return recs
}
