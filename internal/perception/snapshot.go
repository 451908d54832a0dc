// File: internal/perception/snapshot.go
package perception

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

// Snapshot is an immutable capture of the screen at one point in time.
// The ID ties executed steps back to the capture they were decided against.
// Elements hold sequential UIDs assigned in depth-first document order,
// which matches the visual top-to-bottom reading order of the hierarchy.
type Snapshot struct {
	ID         string
	Package    string
	Elements   []Element
	CapturedAt time.Time
}

// Lookup returns the element with the given uid, or false if the uid is
// outside this snapshot.
func (s *Snapshot) Lookup(uid int) (Element, bool) {
	if uid < 1 || uid > len(s.Elements) {
		return Element{}, false
	}
	return s.Elements[uid-1], true
}

// FocusedEditable returns the focused text-input element, if any.
func (s *Snapshot) FocusedEditable() (Element, bool) {
	for _, el := range s.Elements {
		if el.Focused && strings.Contains(el.Class, "EditText") {
			return el, true
		}
	}
	return Element{}, false
}

var boundsRe = regexp.MustCompile(`\[(\d+),(\d+)\]\[(\d+),(\d+)\]`)

func parseBounds(s string) Rect {
	m := boundsRe.FindStringSubmatch(s)
	if m == nil {
		return Rect{}
	}
	l, _ := strconv.Atoi(m[1])
	t, _ := strconv.Atoi(m[2])
	r, _ := strconv.Atoi(m[3])
	b, _ := strconv.Atoi(m[4])
	return Rect{Left: l, Top: t, Right: r, Bottom: b}
}

// Widget classes that are worth surfacing even when they carry no text,
// provided they are interactive.
var meaningfulClasses = []string{
	"android.widget.Button",
	"android.widget.EditText",
	"android.widget.TextView",
	"android.widget.ImageButton",
	"android.widget.ImageView",
	"android.widget.CheckBox",
	"android.widget.Switch",
	"android.widget.RadioButton",
	"android.widget.Spinner",
	"android.widget.SeekBar",
	"android.view.View",
	"android.widget.LinearLayout",
	"android.widget.FrameLayout",
	"android.widget.RelativeLayout",
	"androidx.recyclerview.widget.RecyclerView",
	"android.widget.ScrollView",
	"android.widget.ListView",
}

// keep decides whether a node earns a place in the snapshot. Disabled and
// zero-area nodes are dropped; everything else needs either identifying
// content or an interactive flag on a recognized widget class.
func keep(attrs map[string]string, bounds Rect) bool {
	if attrs["enabled"] == "false" {
		return false
	}
	if bounds.Empty() {
		return false
	}

	hasContent := attrs["text"] != "" || attrs["content-desc"] != "" || attrs["resource-id"] != ""
	interactive := attrs["clickable"] == "true" || attrs["scrollable"] == "true"
	if hasContent {
		return true
	}
	if !interactive {
		return false
	}

	class := attrs["class"]
	for _, c := range meaningfulClasses {
		if strings.Contains(class, c) {
			return true
		}
	}
	return false
}

func nodeAttrs(el *etree.Element) map[string]string {
	attrs := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		attrs[a.Key] = a.Value
	}
	return attrs
}

// ParseSnapshot flattens a uiautomator XML dump into a Snapshot for the
// given foreground package. UIDs are assigned sequentially over the kept
// elements, so the first interesting element on screen is always uid 1.
func ParseSnapshot(xml string, pkg string) (*Snapshot, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return nil, fmt.Errorf("parsing hierarchy dump: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parsing hierarchy dump: empty document")
	}

	snap := &Snapshot{ID: uuid.NewString(), Package: pkg, CapturedAt: time.Now()}
	collect(root, snap)
	return snap, nil
}

func collect(el *etree.Element, snap *Snapshot) {
	attrs := nodeAttrs(el)
	bounds := parseBounds(attrs["bounds"])

	if el.Tag == "node" && keep(attrs, bounds) {
		class := attrs["class"]
		if i := strings.LastIndex(class, "."); i >= 0 {
			class = class[i+1:]
		}
		snap.Elements = append(snap.Elements, Element{
			UID:         len(snap.Elements) + 1,
			Class:       class,
			Text:        attrs["text"],
			ContentDesc: attrs["content-desc"],
			ResourceID:  attrs["resource-id"],
			Bounds:      bounds,
			Clickable:   attrs["clickable"] == "true",
			Scrollable:  attrs["scrollable"] == "true",
			Enabled:     attrs["enabled"] != "false",
			Focused:     attrs["focused"] == "true",
		})
	}

	for _, child := range el.ChildElements() {
		collect(child, snap)
	}
}

// Summary renders the snapshot as prompt text: the foreground app followed
// by one line per element, capped at maxElements to bound prompt size.
func (s *Snapshot) Summary(maxElements int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current App: %s\n\n", s.Package)
	b.WriteString("Interactive Elements:\n")

	shown := s.Elements
	truncated := 0
	if maxElements > 0 && len(shown) > maxElements {
		truncated = len(shown) - maxElements
		shown = shown[:maxElements]
	}
	for _, el := range shown {
		b.WriteString("  " + el.Describe() + "\n")
	}
	if truncated > 0 {
		fmt.Fprintf(&b, "  (... %d more elements not shown)\n", truncated)
	}
	return strings.TrimRight(b.String(), "\n")
}
