// File: internal/perception/element.go

// Package perception flattens the device's accessibility hierarchy into an
// addressable list of elements and renders the compact screen summaries the
// reasoning prompts are built from.
package perception

import (
	"fmt"
	"strings"
)

// Rect is an element's bounding box in screen pixels.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Center returns the midpoint of the rect, which is where taps land.
func (r Rect) Center() (int, int) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// Element is one addressable node from a UI snapshot. UID is the element's
// position in the snapshot's filtered list, starting at 1. It is only
// meaningful against the snapshot that produced it; a fresh capture
// renumbers everything.
type Element struct {
	UID         int    `json:"uid"`
	Class       string `json:"type"`
	Text        string `json:"text"`
	ContentDesc string `json:"content_desc"`
	ResourceID  string `json:"resource_id"`
	Bounds      Rect   `json:"bounds"`
	Clickable   bool   `json:"clickable"`
	Scrollable  bool   `json:"scrollable"`
	Enabled     bool   `json:"enabled"`
	Focused     bool   `json:"focused"`
}

// ShortResourceID strips the package prefix from a fully qualified resource
// id ("com.app:id/send" -> "send").
func (e Element) ShortResourceID() string {
	if i := strings.LastIndex(e.ResourceID, "/"); i >= 0 {
		return e.ResourceID[i+1:]
	}
	return e.ResourceID
}

// Describe renders the element for prompt text: the most identifying field
// first, then interaction attributes.
func (e Element) Describe() string {
	parts := []string{fmt.Sprintf("[%d]", e.UID)}

	switch {
	case e.Text != "":
		parts = append(parts, fmt.Sprintf("%q", e.Text))
	case e.ContentDesc != "":
		parts = append(parts, fmt.Sprintf("[%s]", e.ContentDesc))
	case e.ResourceID != "":
		parts = append(parts, fmt.Sprintf("(%s)", e.ShortResourceID()))
	default:
		parts = append(parts, e.Class)
	}

	if e.Clickable {
		parts = append(parts, "• clickable")
	}
	if e.Scrollable {
		parts = append(parts, "• scrollable")
	}
	return strings.Join(parts, " ")
}
