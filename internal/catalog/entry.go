// File: internal/catalog/entry.go

// Package catalog maintains the session's view of installed applications and
// resolves free-text app queries to launchable package ids.
package catalog

import (
	"regexp"
	"strings"
)

// Entry describes one installed application.
type Entry struct {
	PackageID   string `json:"package_id"`
	CommonName  string `json:"common_name"`            // derived from the package id
	DisplayName string `json:"display_name,omitempty"` // actual label, when known
}

// BestName returns the most human-friendly name available.
func (e Entry) BestName() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.CommonName
}

func (e Entry) String() string {
	return e.BestName() + " (" + e.PackageID + ")"
}

// ignoredPrefixes marks system and vendor packages users never mean when
// they name an app.
var ignoredPrefixes = []string{
	"com.android.",
	"com.google.android.inputmethod",
	"com.google.android.gms",
	"com.google.android.gsf",
	"com.google.android.providers",
	"com.google.android.ext.",
	"com.google.android.onetimeinitializer",
	"com.google.android.configupdater",
	"com.google.android.partnersetup",
	"com.google.android.printservice",
	"com.google.android.syncadapters",
	"com.google.android.feedback",
	"com.google.android.backuptransport",
	"com.samsung.",
	"com.sec.",
	"com.qualcomm.",
	"com.mediatek.",
	"org.codeaurora.",
}

// usefulSystemApps are preinstalled packages worth listing even though they
// live in the system partition.
var usefulSystemApps = []string{
	"com.google.android.youtube",
	"com.google.android.apps.maps",
	"com.google.android.apps.photos",
	"com.google.android.gm",
	"com.google.android.apps.docs",
	"com.google.android.calendar",
	"com.google.android.contacts",
	"com.google.android.dialer",
	"com.google.android.apps.messaging",
}

// knownApps maps popular package ids to the names people actually use.
var knownApps = map[string]string{
	"com.whatsapp":                      "WhatsApp",
	"com.instagram.android":             "Instagram",
	"com.facebook.katana":               "Facebook",
	"com.facebook.orca":                 "Messenger",
	"com.twitter.android":               "Twitter",
	"com.spotify.music":                 "Spotify",
	"com.netflix.mediaclient":           "Netflix",
	"com.google.android.youtube":        "YouTube",
	"com.snapchat.android":              "Snapchat",
	"com.zhiliaoapp.musically":          "TikTok",
	"com.reddit.frontpage":              "Reddit",
	"com.linkedin.android":              "LinkedIn",
	"com.pinterest":                     "Pinterest",
	"com.discord":                       "Discord",
	"com.slack":                         "Slack",
	"org.telegram.messenger":            "Telegram",
	"com.viber.voip":                    "Viber",
	"com.skype.raider":                  "Skype",
	"com.amazon.mShop.android.shopping": "Amazon",
	"com.ebay.mobile":                   "eBay",
	"com.ubercab":                       "Uber",
	"com.lyft.android":                  "Lyft",
	"com.airbnb.android":                "Airbnb",
	"com.booking":                       "Booking.com",
	"com.google.android.apps.maps":      "Google Maps",
	"com.waze":                          "Waze",
	"com.google.android.apps.photos":    "Google Photos",
	"com.google.android.gm":             "Gmail",
	"com.google.android.apps.docs":      "Google Drive",
	"com.microsoft.office.outlook":      "Outlook",
	"com.microsoft.teams":               "Microsoft Teams",
	"com.dropbox.android":               "Dropbox",
	"com.evernote":                      "Evernote",
	"com.todoist":                       "Todoist",
	"com.notion.id":                     "Notion",
	"com.duolingo":                      "Duolingo",
	"com.calm.android":                  "Calm",
	"com.headspace.android":             "Headspace",
	"com.strava":                        "Strava",
	"com.nike.plusgps":                  "Nike Run Club",
	"com.fitbit.FitbitMobile":           "Fitbit",
	"com.paypal.android.p2pmobile":      "PayPal",
	"com.venmo":                         "Venmo",
	"com.robinhood.android":             "Robinhood",
	"com.coinbase.android":              "Coinbase",
	"com.android.settings":              "Settings",
}

func shouldIgnore(packageID string) bool {
	for _, prefix := range ignoredPrefixes {
		if strings.HasPrefix(packageID, prefix) {
			return true
		}
	}
	return false
}

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// genericSegments are package id parts that never identify an app.
var genericSegments = map[string]bool{
	"android": true,
	"app":     true,
	"apps":    true,
	"mobile":  true,
	"client":  true,
}

// deriveCommonName guesses a readable name from a package id. Known ids map
// directly; otherwise the first non-generic segment after the TLD is
// title-cased ("com.robinhood.android" -> "Robinhood").
func deriveCommonName(packageID string) string {
	if name, ok := knownApps[packageID]; ok {
		return name
	}

	parts := strings.Split(packageID, ".")
	if len(parts) >= 2 {
		var meaningful []string
		for _, p := range parts[1:] {
			if !genericSegments[p] {
				meaningful = append(meaningful, p)
			}
		}
		if len(meaningful) > 0 {
			name := meaningful[0]
			name = camelBoundary.ReplaceAllString(name, "$1 $2")
			name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
			return titleCase(name)
		}
	}
	if len(parts) > 0 {
		return titleCase(parts[len(parts)-1])
	}
	return packageID
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
