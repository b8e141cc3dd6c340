package store

import "strings"

// AnalysisPatch is a partial update of an AnalysisResult. A nil field is
// absent and keeps the previous value; a non-nil field overwrites it.
type AnalysisPatch struct {
	OriginalDurationSec  *float64
	Segments             []Segment
	FullText             *string
	RecommendedFocus     []string
	RecommendedDurations []float64
	SummaryTitle         *string
	SummaryPoints        []string
}

// PatchFromResult turns a full producer response into a patch. Empty
// collections and zero scalars count as absent, because producers omit
// fields they did not compute.
func PatchFromResult(r AnalysisResult) AnalysisPatch {
	var p AnalysisPatch
	if r.OriginalDurationSec > 0 {
		d := r.OriginalDurationSec
		p.OriginalDurationSec = &d
	}
	if len(r.Segments) > 0 {
		p.Segments = r.Segments
	}
	if r.FullText != "" {
		t := r.FullText
		p.FullText = &t
	}
	if len(r.RecommendedFocus) > 0 {
		p.RecommendedFocus = r.RecommendedFocus
	}
	if len(r.RecommendedDurations) > 0 {
		p.RecommendedDurations = r.RecommendedDurations
	}
	if r.SummaryTitle != "" {
		t := r.SummaryTitle
		p.SummaryTitle = &t
	}
	if len(r.SummaryPoints) > 0 {
		p.SummaryPoints = r.SummaryPoints
	}
	return p
}

// PatchFromMeta synthesizes a patch from a list-view hint. When the hint has
// no full text it is rebuilt from the segment texts.
func PatchFromMeta(m VideoMeta) AnalysisPatch {
	fullText := m.FullText
	if fullText == "" && len(m.Segments) > 0 {
		texts := make([]string, 0, len(m.Segments))
		for _, s := range m.Segments {
			if s.Text != "" {
				texts = append(texts, s.Text)
			}
		}
		fullText = strings.Join(texts, " ")
	}

	return PatchFromResult(AnalysisResult{
		OriginalDurationSec:  m.DurationSec,
		Segments:             m.Segments,
		FullText:             fullText,
		RecommendedFocus:     m.Focus,
		RecommendedDurations: m.Durations,
		SummaryTitle:         m.Title,
		SummaryPoints:        m.SummaryPoints,
	})
}

// IsEmpty reports whether the patch carries no field at all.
func (p AnalysisPatch) IsEmpty() bool {
	return p.OriginalDurationSec == nil && p.Segments == nil && p.FullText == nil &&
		p.RecommendedFocus == nil && p.RecommendedDurations == nil &&
		p.SummaryTitle == nil && p.SummaryPoints == nil
}

// Apply layers the patch over prev and returns a new value. prev is never
// modified.
func (p AnalysisPatch) Apply(prev *AnalysisResult) *AnalysisResult {
	next := AnalysisResult{}
	if prev != nil {
		next = *prev
	}

	if p.OriginalDurationSec != nil {
		next.OriginalDurationSec = *p.OriginalDurationSec
	}
	if p.Segments != nil {
		next.Segments = append([]Segment(nil), p.Segments...)
	}
	if p.FullText != nil {
		next.FullText = *p.FullText
	}
	if p.RecommendedFocus != nil {
		next.RecommendedFocus = append([]string(nil), p.RecommendedFocus...)
	}
	if p.RecommendedDurations != nil {
		next.RecommendedDurations = append([]float64(nil), p.RecommendedDurations...)
	}
	if p.SummaryTitle != nil {
		next.SummaryTitle = *p.SummaryTitle
	}
	if p.SummaryPoints != nil {
		next.SummaryPoints = append([]string(nil), p.SummaryPoints...)
	}
	return &next
}
