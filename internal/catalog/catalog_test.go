// File: internal/catalog/catalog_test.go
package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/idofrizler/phone-buddy/internal/config"
)

type fakeDevice struct {
	thirdParty []string
	system     []string
	listErr    error
	launched   []string
	launchErr  error
}

func (f *fakeDevice) ListPackages(_ context.Context, thirdPartyOnly bool) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if thirdPartyOnly {
		return f.thirdParty, nil
	}
	return f.system, nil
}

func (f *fakeDevice) Launch(_ context.Context, packageID string) error {
	if f.launchErr != nil {
		return f.launchErr
	}
	f.launched = append(f.launched, packageID)
	return nil
}

func testCatalogConfig(t *testing.T) config.CatalogConfig {
	return config.CatalogConfig{
		MinResolveScore: 0.45,
		MaxSummaryApps:  50,
		LabelCacheFile:  filepath.Join(t.TempDir(), "app_labels.json"),
	}
}

// fakeLabeler hands out scripted display labels and records what it was
// asked for.
type fakeLabeler struct {
	labels  map[string]string
	queried []string
}

func (f *fakeLabeler) Label(_ context.Context, packageID string) (string, error) {
	f.queried = append(f.queried, packageID)
	label, ok := f.labels[packageID]
	if !ok {
		return "", errors.New("no label")
	}
	return label, nil
}

func newTestCatalog(t *testing.T, device *fakeDevice) *Catalog {
	c := New(device, nil, testCatalogConfig(t), zaptest.NewLogger(t))
	require.NoError(t, c.Fetch(context.Background()))
	return c
}

func TestFetchFiltersAndSorts(t *testing.T) {
	device := &fakeDevice{
		thirdParty: []string{
			"com.whatsapp",
			"com.spotify.music",
			"com.samsung.bloat",    // ignored prefix
			"com.android.internal", // ignored prefix
		},
		system: []string{
			"com.google.android.youtube", // curated
			"com.google.android.gsf",     // not curated
		},
	}
	c := newTestCatalog(t, device)

	var ids []string
	for _, e := range c.Entries() {
		ids = append(ids, e.PackageID)
	}
	assert.Equal(t, []string{
		"com.google.android.youtube",
		"com.spotify.music",
		"com.whatsapp",
	}, ids)
}

func TestFetchPropagatesListError(t *testing.T) {
	device := &fakeDevice{listErr: errors.New("device offline")}
	c := New(device, nil, testCatalogConfig(t), zaptest.NewLogger(t))
	require.Error(t, c.Fetch(context.Background()))
}

func TestResolveKnownAlias(t *testing.T) {
	device := &fakeDevice{thirdParty: []string{"com.zhiliaoapp.musically", "com.whatsapp"}}
	c := newTestCatalog(t, device)

	entry, err := c.Resolve("tiktok")
	require.NoError(t, err)
	assert.Equal(t, "com.zhiliaoapp.musically", entry.PackageID)
}

func TestResolveExactName(t *testing.T) {
	device := &fakeDevice{thirdParty: []string{"com.spotify.music", "com.whatsapp"}}
	c := newTestCatalog(t, device)

	entry, err := c.Resolve("Spotify")
	require.NoError(t, err)
	assert.Equal(t, "com.spotify.music", entry.PackageID)
}

func TestResolvePartialWords(t *testing.T) {
	device := &fakeDevice{
		thirdParty: []string{"com.whatsapp"},
		system:     []string{"com.google.android.apps.maps"},
	}
	c := newTestCatalog(t, device)

	entry, err := c.Resolve("maps")
	require.NoError(t, err)
	assert.Equal(t, "com.google.android.apps.maps", entry.PackageID)
}

func TestResolveTypo(t *testing.T) {
	device := &fakeDevice{thirdParty: []string{"com.whatsapp", "com.spotify.music"}}
	c := newTestCatalog(t, device)

	entry, err := c.Resolve("whatsap")
	require.NoError(t, err)
	assert.Equal(t, "com.whatsapp", entry.PackageID)
}

func TestResolveNoMatch(t *testing.T) {
	device := &fakeDevice{thirdParty: []string{"com.whatsapp"}}
	c := newTestCatalog(t, device)

	_, err := c.Resolve("nonexistent flight simulator")
	var notFound *AppNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nonexistent flight simulator", notFound.Query)
}

func TestResolveIsDeterministic(t *testing.T) {
	device := &fakeDevice{
		thirdParty: []string{"com.spotify.music", "com.whatsapp", "com.discord", "com.slack"},
	}
	c := newTestCatalog(t, device)

	first, err := c.Resolve("spot")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := c.Resolve("spot")
		require.NoError(t, err)
		assert.Equal(t, first.PackageID, again.PackageID)
	}
}

func TestLaunchResolvesThenStarts(t *testing.T) {
	device := &fakeDevice{thirdParty: []string{"com.whatsapp"}}
	c := newTestCatalog(t, device)

	entry, err := c.Launch(context.Background(), "whatsapp")
	require.NoError(t, err)
	assert.Equal(t, "com.whatsapp", entry.PackageID)
	assert.Equal(t, []string{"com.whatsapp"}, device.launched)
}

func TestLaunchUnknownApp(t *testing.T) {
	device := &fakeDevice{thirdParty: []string{"com.whatsapp"}}
	c := newTestCatalog(t, device)

	_, err := c.Launch(context.Background(), "definitely not installed")
	var notFound *AppNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Empty(t, device.launched)
}

func TestSummaryCapsList(t *testing.T) {
	device := &fakeDevice{thirdParty: []string{"com.whatsapp", "com.spotify.music", "com.discord"}}
	c := New(device, nil, config.CatalogConfig{
		MinResolveScore: 0.45,
		MaxSummaryApps:  2,
		LabelCacheFile:  filepath.Join(t.TempDir(), "labels.json"),
	}, zaptest.NewLogger(t))
	require.NoError(t, c.Fetch(context.Background()))

	summary := c.Summary()
	assert.Contains(t, summary, "com.discord")
	assert.Contains(t, summary, "... and 1 more apps")
}

func TestDeriveCommonName(t *testing.T) {
	cases := []struct {
		pkg  string
		want string
	}{
		{"com.whatsapp", "WhatsApp"},
		{"com.zhiliaoapp.musically", "TikTok"},
		{"com.robinhood.android", "Robinhood"},
		{"com.some_new.app", "Some New"},
		{"io.myCoolApp", "My Cool App"},
	}
	for _, tc := range cases {
		t.Run(tc.pkg, func(t *testing.T) {
			assert.Equal(t, tc.want, deriveCommonName(tc.pkg))
		})
	}
}

func TestLabelCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	require.NoError(t, saveLabelCache(path, map[string]string{"com.whatsapp": "WhatsApp"}))

	labels := loadLabelCache(path)
	assert.Equal(t, "WhatsApp", labels["com.whatsapp"])
}

func TestFetchDiscoversAndPersistsLabels(t *testing.T) {
	device := &fakeDevice{thirdParty: []string{"com.unknownvendor.coolgame", "com.whatsapp"}}
	labeler := &fakeLabeler{labels: map[string]string{
		"com.unknownvendor.coolgame": "Cool Game Deluxe",
	}}
	cfg := testCatalogConfig(t)
	c := New(device, labeler, cfg, zaptest.NewLogger(t))
	require.NoError(t, c.Fetch(context.Background()))

	entry, err := c.Resolve("cool game deluxe")
	require.NoError(t, err)
	assert.Equal(t, "Cool Game Deluxe", entry.DisplayName)

	// the discovered label survives on disk for the next session
	assert.Equal(t, "Cool Game Deluxe", loadLabelCache(cfg.LabelCacheFile)["com.unknownvendor.coolgame"])
}

func TestFetchSkipsCachedLabels(t *testing.T) {
	cfg := testCatalogConfig(t)
	require.NoError(t, saveLabelCache(cfg.LabelCacheFile, map[string]string{
		"com.whatsapp": "WhatsApp",
	}))

	device := &fakeDevice{thirdParty: []string{"com.whatsapp", "com.spotify.music"}}
	labeler := &fakeLabeler{labels: map[string]string{"com.spotify.music": "Spotify"}}
	c := New(device, labeler, cfg, zaptest.NewLogger(t))
	require.NoError(t, c.Fetch(context.Background()))

	assert.Equal(t, []string{"com.spotify.music"}, labeler.queried,
		"already-cached packages must not be re-queried")
}

func TestParseBadgingLabel(t *testing.T) {
	out := "package: name='com.spotify.music' versionCode='1'\n" +
		"application-label:'Spotify'\n" +
		"application-label-de:'Spotify DE'\n"
	assert.Equal(t, "Spotify", parseBadgingLabel(out))
	assert.Empty(t, parseBadgingLabel("package: name='com.x'"))
}
