package domain

// Insights is an after-the-fact update from the AI-insight updater. Nil fields are
// left untouched.
type Insights struct {
	Title          *string         `json:"title,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	SourceMetadata *SourceMetadata `json:"source_metadata,omitempty"`
}

// Empty reports whether the update carries no field at all.
func (in *Insights) Empty() bool {
	return in == nil || (in.Title == nil && in.Description == nil && in.Tags == nil && in.SourceMetadata == nil)
}

// MergeUpsert applies an incoming version of the same logical bookmark onto an
// existing row. Title, URL, tags and the organized flag always follow the incoming
// version; optional content and source_metadata are only replaced when the incoming
// version carries them. Identity, confidence and created_at are kept.
func (b *CanonicalBookmark) MergeUpsert(in *CanonicalBookmark) {
	b.Title = in.Title
	b.URL = in.URL
	b.Tags = in.Tags
	if b.Tags == nil {
		b.Tags = []string{}
	}
	b.IsOrganized = in.IsOrganized

	if in.ResolvedURL != nil {
		b.ResolvedURL = in.ResolvedURL
	}
	if in.Description != nil {
		b.Description = in.Description
	}
	if in.ImageURL != nil {
		b.ImageURL = in.ImageURL
	}
	if in.ImageAlt != nil {
		b.ImageAlt = in.ImageAlt
	}
	if in.SiteName != nil {
		b.SiteName = in.SiteName
	}
	if in.SourceMetadata != nil {
		b.SourceMetadata = in.SourceMetadata
	}
}

// ApplyInsights copies the non-nil insight fields onto the bookmark. Extras in the
// incoming metadata are merged key by key.
func (b *CanonicalBookmark) ApplyInsights(in *Insights) {
	if in == nil {
		return
	}
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.Description != nil {
		b.Description = in.Description
	}
	if in.Tags != nil {
		b.Tags = in.Tags
	}
	if in.SourceMetadata != nil {
		b.SourceMetadata = mergeMetadata(b.SourceMetadata, in.SourceMetadata)
	}
}

func mergeMetadata(cur, in *SourceMetadata) *SourceMetadata {
	if cur == nil {
		cp := *in
		return &cp
	}
	out := *cur
	if in.AIEnhanced != nil {
		out.AIEnhanced = in.AIEnhanced
	}
	if in.MetadataEnriched != nil {
		out.MetadataEnriched = in.MetadataEnriched
	}
	if in.MetadataSource != "" {
		out.MetadataSource = in.MetadataSource
	}
	if in.MetadataError != nil {
		out.MetadataError = in.MetadataError
	}
	if in.EnrichedAt != nil {
		out.EnrichedAt = in.EnrichedAt
	}
	if in.ImportedFrom != "" {
		out.ImportedFrom = in.ImportedFrom
	}
	if in.StagingID != 0 {
		out.StagingID = in.StagingID
	}
	if len(in.Extras) > 0 {
		extras := make(map[string]any, len(cur.Extras)+len(in.Extras))
		for k, v := range cur.Extras {
			extras[k] = v
		}
		for k, v := range in.Extras {
			extras[k] = v
		}
		out.Extras = extras
	}
	return &out
}
