// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package syncengine

import (
	"encoding/hex"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/models"
)

// previewLen bounds the content preview folded into a fingerprint.
// The fingerprint captures structural shape plus a short prefix of the
// text, not the full payload, so irrelevant metadata churn does not
// defeat no-op detection.
const previewLen = 32

// writeFingerprint computes a stable fingerprint of the semantically
// meaningful part of a partial update. Fingerprint-equal updates are
// treated as no-ops by the writer.
func writeFingerprint(fields docstore.Fields) string {
	var b strings.Builder
	if fields.Title != nil {
		b.WriteString("t=")
		b.WriteString(preview(*fields.Title))
		b.WriteByte(';')
	}
	if fields.Segments != nil {
		writeSegments(&b, fields.Segments)
	}
	return digest(b.String())
}

// snapshotFingerprint computes the structural change fingerprint of an
// incoming snapshot: segment/shot counts, ordered identifiers and
// content previews. Snapshots with an unchanged fingerprint are
// duplicate notifications, not semantic changes.
func snapshotFingerprint(ep *models.Episode) string {
	var b strings.Builder
	b.WriteString("t=")
	b.WriteString(preview(ep.Title))
	b.WriteByte(';')
	writeSegments(&b, ep.Segments)
	return digest(b.String())
}

func writeSegments(b *strings.Builder, segments []models.Segment) {
	b.WriteString("n=")
	b.WriteString(strconv.Itoa(len(segments)))
	b.WriteByte(';')
	for i := range segments {
		seg := &segments[i]
		b.WriteString(seg.ID)
		b.WriteByte(':')
		b.WriteString(preview(seg.Title))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(len(seg.Shots)))
		b.WriteByte('{')
		for j := range seg.Shots {
			shot := &seg.Shots[j]
			b.WriteString(shot.ID)
			b.WriteByte('|')
			b.WriteString(preview(shot.Audio))
			b.WriteByte('|')
			b.WriteString(preview(shot.Visual))
			b.WriteByte('|')
			b.WriteString(strconv.Itoa(shot.WordCount))
			b.WriteByte('|')
			b.WriteString(strconv.FormatFloat(shot.Runtime, 'f', -1, 64))
			b.WriteByte('|')
			b.WriteString(shot.MainImage)
			b.WriteByte(',')
			b.WriteString(shot.StartFrame)
			b.WriteByte(',')
			b.WriteString(shot.EndFrame)
			b.WriteByte(';')
		}
		b.WriteByte('}')
	}
}

// preview returns the first previewLen runes of s plus its full length,
// so long texts differing only deep in the body still fingerprint
// differently.
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLen {
		return s
	}
	return string(runes[:previewLen]) + "+" + strconv.Itoa(len(runes))
}

func digest(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
