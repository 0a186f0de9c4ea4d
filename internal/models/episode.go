// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package models

import "time"

// Show is the owning container for episodes. Ownership is by exactly one
// identity; collaborators gain access through grants.
type Show struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Episode is the synchronized unit. It belongs to exactly one show and
// holds an ordered collection of segments.
//
// UpdatedAt is server-assigned at commit time and is monotonically
// non-decreasing as observed by any single subscriber. LastEditedBy and
// LastEditedAt attribute the most recent edit; the sync engine uses the
// attribution to tell a foreign change from the echo of its own commit.
type Episode struct {
	ID       string    `json:"id"`
	ShowID   string    `json:"show_id"`
	Title    string    `json:"title"`
	Segments []Segment `json:"segments"`

	UpdatedAt    time.Time `json:"updated_at"`
	LastEditedBy string    `json:"last_edited_by,omitempty"`
	LastEditedAt time.Time `json:"last_edited_at,omitempty"`
}

// Segment is an ordered group of shots within an episode.
type Segment struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Shots []Shot `json:"shots"`
}

// Shot is the leaf editing unit. Audio holds narration text, Visual the
// visual description; the image fields reference stored media objects.
type Shot struct {
	ID        string  `json:"id"`
	Audio     string  `json:"audio,omitempty"`
	Visual    string  `json:"visual,omitempty"`
	WordCount int     `json:"word_count,omitempty"`
	Runtime   float64 `json:"runtime,omitempty"`

	MainImage  string `json:"main_image,omitempty"`
	StartFrame string `json:"start_frame,omitempty"`
	EndFrame   string `json:"end_frame,omitempty"`
}

// FindShot returns the segment index, shot index and shot for the given
// shot ID, or ok=false when the episode does not contain it.
func (e *Episode) FindShot(shotID string) (segIdx, shotIdx int, shot *Shot, ok bool) {
	for si := range e.Segments {
		for hi := range e.Segments[si].Shots {
			if e.Segments[si].Shots[hi].ID == shotID {
				return si, hi, &e.Segments[si].Shots[hi], true
			}
		}
	}
	return 0, 0, nil, false
}

// ShotCount returns the total number of shots across all segments.
func (e *Episode) ShotCount() int {
	n := 0
	for i := range e.Segments {
		n += len(e.Segments[i].Shots)
	}
	return n
}

// Clone returns a deep copy of the episode. Snapshots handed to
// subscribers must not alias store-owned memory.
func (e *Episode) Clone() *Episode {
	if e == nil {
		return nil
	}
	out := *e
	out.Segments = make([]Segment, len(e.Segments))
	for i, seg := range e.Segments {
		out.Segments[i] = seg
		out.Segments[i].Shots = make([]Shot, len(seg.Shots))
		copy(out.Segments[i].Shots, seg.Shots)
	}
	return &out
}
