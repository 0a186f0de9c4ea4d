// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package syncengine

import (
	"strings"
	"testing"

	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/models"
)

func TestWriteFingerprint_Stable(t *testing.T) {
	title := "Episode One"
	a := docstore.Fields{Title: &title, Segments: []models.Segment{{ID: "seg-1", Title: "Intro"}}}
	b := docstore.Fields{Title: &title, Segments: []models.Segment{{ID: "seg-1", Title: "Intro"}}}
	if writeFingerprint(a) != writeFingerprint(b) {
		t.Error("identical payloads must fingerprint identically")
	}
}

func TestWriteFingerprint_DetectsChanges(t *testing.T) {
	base := func() docstore.Fields {
		title := "Episode One"
		return docstore.Fields{
			Title: &title,
			Segments: []models.Segment{{
				ID:    "seg-1",
				Title: "Intro",
				Shots: []models.Shot{{ID: "shot-1", Audio: "Hello.", Visual: "Wide shot.", WordCount: 1, Runtime: 0.4}},
			}},
		}
	}
	ref := writeFingerprint(base())

	tests := []struct {
		name   string
		mutate func(*docstore.Fields)
	}{
		{"title change", func(f *docstore.Fields) { t := "Episode Two"; f.Title = &t }},
		{"segment added", func(f *docstore.Fields) { f.Segments = append(f.Segments, models.Segment{ID: "seg-2"}) }},
		{"shot removed", func(f *docstore.Fields) { f.Segments[0].Shots = nil }},
		{"audio change", func(f *docstore.Fields) { f.Segments[0].Shots[0].Audio = "Goodbye." }},
		{"word count change", func(f *docstore.Fields) { f.Segments[0].Shots[0].WordCount = 7 }},
		{"runtime change", func(f *docstore.Fields) { f.Segments[0].Shots[0].Runtime = 1.2 }},
		{"image ref change", func(f *docstore.Fields) { f.Segments[0].Shots[0].MainImage = "img-9" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base()
			tt.mutate(&f)
			if writeFingerprint(f) == ref {
				t.Error("mutation not reflected in fingerprint")
			}
		})
	}
}

func TestWriteFingerprint_MetadataChurnIgnored(t *testing.T) {
	title := "Episode One"
	a := docstore.Fields{Title: &title, LastEditedBy: "u-a"}
	b := docstore.Fields{Title: &title, LastEditedBy: "u-b", LastEditedAt: docstore.ServerTimestamp}
	if writeFingerprint(a) != writeFingerprint(b) {
		t.Error("attribution metadata must not affect the fingerprint")
	}
}

func TestPreview_LongTextLengthMatters(t *testing.T) {
	prefix := strings.Repeat("x", 64)
	short := prefix
	long := prefix + strings.Repeat("y", 100)
	if preview(short) == preview(long) {
		t.Error("texts differing past the preview prefix must differ by length")
	}
}

func TestSnapshotFingerprint_MatchesStructure(t *testing.T) {
	ep := &models.Episode{
		ID:    "ep-1",
		Title: "Pilot",
		Segments: []models.Segment{{
			ID:    "seg-1",
			Shots: []models.Shot{{ID: "shot-1", Audio: "Hi"}},
		}},
	}
	a := snapshotFingerprint(ep)

	clone := ep.Clone()
	clone.LastEditedBy = "u-other"
	if snapshotFingerprint(clone) != a {
		t.Error("attribution must not change the snapshot fingerprint")
	}

	clone.Segments[0].Shots[0].Audio = "Hi there"
	if snapshotFingerprint(clone) == a {
		t.Error("shot edit must change the snapshot fingerprint")
	}
}
