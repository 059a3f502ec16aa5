package lens

import "strings"

// Resolve turns every group into exactly one placement. Groups starting on a
// header line are extended to the end of the source line holding their end
// position so the label trails the whole declaration.
func Resolve(doc Document, groups *Groups, headers HeaderSet) []Placement {
	all := groups.All()
	out := make([]Placement, 0, len(all))
	for _, grp := range all {
		out = append(out, resolveGroup(doc, grp, headers))
	}
	return out
}

func resolveGroup(doc Document, grp *Group, headers HeaderSet) Placement {
	return Placement{
		Anchor:  anchorFor(doc, grp.Range, headers),
		Label:   composeLabel(grp.Items),
		Parts:   composeParts(grp.Items),
		Tooltip: composeTooltip(grp.Items),
		Items:   len(grp.Items),
	}
}

func anchorFor(doc Document, rng Range, headers HeaderSet) Range {
	if !headers.Has(rng.Start.Line) || doc == nil {
		return rng
	}
	return Range{Start: rng.Start, End: doc.LineEnd(rng.End.Line)}
}

func composeLabel(items []Item) string {
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.DisplayTitle()
	}
	return strings.Join(titles, Separator)
}

func composeTooltip(items []Item) Markdown {
	links := make([]string, len(items))
	for i, it := range items {
		links[i] = EncodeAction(it)
	}
	return Markdown{Value: strings.Join(links, Separator), IsTrusted: true}
}

// composeParts yields one clickable part per item with plain separators in
// between, so the concatenated values equal the flat label.
func composeParts(items []Item) []LabelPart {
	parts := make([]LabelPart, 0, 2*len(items))
	for i, it := range items {
		if i > 0 {
			parts = append(parts, LabelPart{Value: Separator})
		}
		part := LabelPart{Value: it.DisplayTitle()}
		if target, ok := LinkTarget(it); ok {
			cmd := target
			part.Command = &cmd
			part.Tooltip = &Markdown{Value: EncodeAction(it), IsTrusted: true}
		}
		parts = append(parts, part)
	}
	return parts
}
