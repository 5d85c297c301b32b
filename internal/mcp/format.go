package mcp

import (
	"fmt"
	"strings"

	"github.com/YauheniMa/witcher-bot/internal/scene"
	"github.com/YauheniMa/witcher-bot/internal/search"
)

// FormatSearchResults renders a smart_search response as markdown.
func FormatSearchResults(resp *search.Response, snippetWords int) string {
	if resp == nil || len(resp.Hits) == 0 {
		query := ""
		if resp != nil {
			query = resp.Query
		}
		return fmt.Sprintf("No scenes found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Scenes for \"%s\"\n\n", resp.Query)
	fmt.Fprintf(&sb, "Found %d scene", len(resp.Hits))
	if len(resp.Hits) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")
	if signals := formatSignals(resp); signals != "" {
		fmt.Fprintf(&sb, "**Recognized:** %s\n\n", signals)
	}

	for i, h := range resp.Hits {
		formatHit(&sb, i+1, h, snippetWords)
	}
	return sb.String()
}

func formatSignals(resp *search.Response) string {
	var parts []string
	if len(resp.Signals.Characters) > 0 {
		parts = append(parts, "characters: "+strings.Join(resp.Signals.Characters, ", "))
	}
	if len(resp.Signals.Locations) > 0 {
		parts = append(parts, "locations: "+strings.Join(resp.Signals.Locations, ", "))
	}
	if len(resp.Signals.Events) > 0 {
		parts = append(parts, "events: "+strings.Join(resp.Signals.Events, ", "))
	}
	return strings.Join(parts, "; ")
}

func formatHit(sb *strings.Builder, num int, h *search.Hit, snippetWords int) {
	if h == nil || h.Scene == nil {
		return
	}
	fmt.Fprintf(sb, "### %d. %s (score: %.2f)\n", num, h.Scene.ID, h.Score)
	if reason := matchReason(h); reason != "" {
		fmt.Fprintf(sb, "**Matched:** %s\n\n", reason)
	}
	if h.Scene.Summary != "" {
		fmt.Fprintf(sb, "%s\n\n", h.Scene.Summary)
	}
	fmt.Fprintf(sb, "> %s\n\n", scene.Snippet(h.Scene.Text, snippetWords))
}

// matchReason explains an entity score in words.
func matchReason(h *search.Hit) string {
	var parts []string
	if len(h.Overlap.Characters) > 0 {
		parts = append(parts, strings.Join(h.Overlap.Characters, ", "))
	}
	if len(h.Overlap.Locations) > 0 {
		parts = append(parts, strings.Join(h.Overlap.Locations, ", "))
	}
	if len(h.Overlap.Events) > 0 {
		parts = append(parts, "events "+strings.Join(h.Overlap.Events, ", "))
	}
	return strings.Join(parts, "; ")
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// ToSmartSearchOutput converts an engine response to the tool output.
func ToSmartSearchOutput(resp *search.Response, snippetWords int) SmartSearchOutput {
	out := SmartSearchOutput{
		Query:     resp.Query,
		RequestID: resp.RequestID,
		Outcome:   resp.Outcome,
		Signals:   resp.Signals,
		Counts:    resp.Counts,
		Scenes:    make([]SceneHitOutput, 0, len(resp.Hits)),
		Explain:   resp.Explain,
	}
	for i, h := range resp.Hits {
		if h == nil || h.Scene == nil {
			continue
		}
		out.Scenes = append(out.Scenes, SceneHitOutput{
			Rank:        i + 1,
			SceneID:     h.Scene.ID,
			Score:       h.Score,
			EntityScore: h.EntityScore,
			Similarity:  h.Similarity,
			Overlap:     h.Overlap,
			Summary:     h.Scene.Summary,
			Snippet:     scene.Snippet(h.Scene.Text, snippetWords),
			Characters:  h.Scene.Characters,
			Locations:   h.Scene.Locations,
			EventTags:   h.Scene.EventTags,
		})
	}
	return out
}

// ToGetSceneOutput converts a scene record to the tool output.
func ToGetSceneOutput(s *scene.Scene, pos int) GetSceneOutput {
	return GetSceneOutput{
		SceneID:    s.ID,
		Position:   pos,
		Text:       s.Text,
		Summary:    s.Summary,
		Beats:      s.Beats,
		EventTags:  s.EventTags,
		Characters: s.Characters,
		Locations:  s.Locations,
		Events:     s.Events,
	}
}
