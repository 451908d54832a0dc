// File: internal/catalog/catalog.go
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/idofrizler/phone-buddy/internal/config"
)

// AppNotFoundError reports that no installed app scored above the resolve
// threshold for a query.
type AppNotFoundError struct {
	Query string
}

func (e *AppNotFoundError) Error() string {
	return fmt.Sprintf("no installed app matches %q", e.Query)
}

// Device is the slice of device capability the catalog needs.
type Device interface {
	ListPackages(ctx context.Context, thirdPartyOnly bool) ([]string, error)
	Launch(ctx context.Context, packageID string) error
}

// Catalog holds the apps discovered on the device. Entries are collected
// once by Fetch and only change on an explicit Refresh, so Resolve stays a
// pure function of (query, entries) for the catalog's lifetime.
type Catalog struct {
	device  Device
	labeler Labeler // nil when no label tooling is available
	cfg     config.CatalogConfig
	logger  *zap.Logger

	entries []Entry
	labels  map[string]string
}

func New(device Device, labeler Labeler, cfg config.CatalogConfig, logger *zap.Logger) *Catalog {
	return &Catalog{
		device:  device,
		labeler: labeler,
		cfg:     cfg,
		logger:  logger.Named("catalog"),
		labels:  loadLabelCache(cfg.LabelCacheFile),
	}
}

// Entries returns the current catalog contents.
func (c *Catalog) Entries() []Entry { return c.entries }

// Fetch collects third-party packages plus the curated system apps and
// builds the entry list. Entries are sorted by package id so the catalog
// order is reproducible across sessions.
func (c *Catalog) Fetch(ctx context.Context) error {
	thirdParty, err := c.device.ListPackages(ctx, true)
	if err != nil {
		return fmt.Errorf("listing packages: %w", err)
	}

	seen := make(map[string]bool)
	var packages []string
	for _, pkg := range thirdParty {
		if shouldIgnore(pkg) || seen[pkg] {
			continue
		}
		seen[pkg] = true
		packages = append(packages, pkg)
	}

	if system, err := c.device.ListPackages(ctx, false); err == nil {
		wanted := make(map[string]bool, len(usefulSystemApps))
		for _, pkg := range usefulSystemApps {
			wanted[pkg] = true
		}
		for _, pkg := range system {
			if wanted[pkg] && !seen[pkg] {
				seen[pkg] = true
				packages = append(packages, pkg)
			}
		}
	} else {
		c.logger.Warn("Could not list system packages", zap.Error(err))
	}

	sort.Strings(packages)
	c.discoverLabels(ctx, packages)

	c.entries = c.entries[:0]
	for _, pkg := range packages {
		c.entries = append(c.entries, Entry{
			PackageID:   pkg,
			CommonName:  deriveCommonName(pkg),
			DisplayName: c.labels[pkg],
		})
	}
	c.logger.Info("App catalog populated", zap.Int("apps", len(c.entries)))
	return nil
}

// Refresh discards the current entries and fetches again.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.entries = nil
	return c.Fetch(ctx)
}

// discoverLabels fills the label cache for packages it has not seen yet.
// Cached packages are never re-queried, so only the first fetch after an
// install is slow. Lookup failures are tolerated; the derived common name
// covers those entries.
func (c *Catalog) discoverLabels(ctx context.Context, packages []string) {
	if c.labeler == nil {
		return
	}

	discovered := 0
	for _, pkg := range packages {
		if _, ok := c.labels[pkg]; ok {
			continue
		}
		label, err := c.labeler.Label(ctx, pkg)
		if err != nil || label == "" {
			c.logger.Debug("No display label for package",
				zap.String("package", pkg), zap.Error(err))
			continue
		}
		c.labels[pkg] = label
		discovered++
	}
	if discovered == 0 {
		return
	}

	if err := saveLabelCache(c.cfg.LabelCacheFile, c.labels); err != nil {
		c.logger.Warn("Could not persist label cache", zap.Error(err))
		return
	}
	c.logger.Info("Discovered app labels", zap.Int("new", discovered))
}

// Resolve maps a free-text query to the best-matching entry. Scoring is
// deterministic: exact name or package match beats a known alias, which
// beats token overlap, substring containment, and edit-distance similarity
// in that order. Ties break on score, then shorter package id, then
// lexicographic package id, so the same query against the same entries
// always returns the same app.
func (c *Catalog) Resolve(query string) (Entry, error) {
	q := normalize(query)
	if q == "" || len(c.entries) == 0 {
		return Entry{}, &AppNotFoundError{Query: query}
	}

	best := Entry{}
	bestScore := 0.0
	for _, entry := range c.entries {
		score := scoreEntry(q, entry)
		if score > bestScore ||
			(score == bestScore && bestScore > 0 && betterTie(entry, best)) {
			best = entry
			bestScore = score
		}
	}

	if bestScore < c.cfg.MinResolveScore {
		c.logger.Debug("Query below resolve threshold",
			zap.String("query", query),
			zap.Float64("best_score", bestScore),
			zap.String("best_candidate", best.PackageID))
		return Entry{}, &AppNotFoundError{Query: query}
	}
	return best, nil
}

// Launch resolves the query and starts the app.
func (c *Catalog) Launch(ctx context.Context, query string) (Entry, error) {
	entry, err := c.Resolve(query)
	if err != nil {
		return Entry{}, err
	}
	if err := c.device.Launch(ctx, entry.PackageID); err != nil {
		return entry, fmt.Errorf("launching %s: %w", entry.PackageID, err)
	}
	c.logger.Info("Launched app",
		zap.String("query", query),
		zap.String("package", entry.PackageID))
	return entry, nil
}

// Summary renders the catalog as prompt text, capped at MaxSummaryApps.
func (c *Catalog) Summary() string {
	if len(c.entries) == 0 {
		return "No apps known yet."
	}

	max := c.cfg.MaxSummaryApps
	shown := c.entries
	if max > 0 && len(shown) > max {
		shown = shown[:max]
	}
	var b strings.Builder
	for _, entry := range shown {
		fmt.Fprintf(&b, "- %s: %s\n", entry.BestName(), entry.PackageID)
	}
	if rest := len(c.entries) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "... and %d more apps\n", rest)
	}
	return strings.TrimRight(b.String(), "\n")
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// scoreEntry rates how well a normalized query names an entry, in [0,1].
func scoreEntry(q string, entry Entry) float64 {
	names := []string{
		normalize(entry.DisplayName),
		normalize(entry.CommonName),
		normalize(entry.PackageID),
	}

	best := 0.0
	if alias, ok := knownApps[entry.PackageID]; ok && normalize(alias) == q {
		best = 0.9
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		if name == q {
			return 1.0
		}
		if overlap := tokenOverlap(q, name); overlap > 0 {
			best = maxFloat(best, 0.8*overlap)
		}
		if len(q) >= 3 && strings.Contains(name, q) {
			best = maxFloat(best, 0.75)
		}
		best = maxFloat(best, 0.7*editSimilarity(q, name))
	}
	return best
}

// tokenOverlap is the Jaccard similarity of the word sets, with containment
// counted as a full hit so "maps" still matches "google maps".
func tokenOverlap(a, b string) float64 {
	aw := strings.Fields(a)
	bw := strings.Fields(b)
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}

	bset := make(map[string]bool, len(bw))
	for _, w := range bw {
		bset[w] = true
	}
	common := 0
	for _, w := range aw {
		if bset[w] {
			common++
		}
	}
	if common == len(aw) || common == len(bw) {
		return 1.0
	}
	union := len(aw) + len(bw) - common
	return float64(common) / float64(union)
}

// editSimilarity maps Levenshtein distance to [0,1].
func editSimilarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	sim := 1.0 - float64(dist)/float64(longest)
	if sim < 0 {
		return 0
	}
	return sim
}

func betterTie(candidate, current Entry) bool {
	if len(candidate.PackageID) != len(current.PackageID) {
		return len(candidate.PackageID) < len(current.PackageID)
	}
	return candidate.PackageID < current.PackageID
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
