package mcp

import (
	"github.com/YauheniMa/witcher-bot/internal/extract"
	"github.com/YauheniMa/witcher-bot/internal/search"
)

// Tool names.
const (
	ToolSmartSearch = "smart_search"
	ToolGetScene    = "get_scene"
)

// Result limits for smart_search.
const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// SmartSearchInput defines the input schema for the smart_search tool.
type SmartSearchInput struct {
	Query              string   `json:"query" jsonschema:"free-text question about the story, in Russian"`
	TopKBM25           int      `json:"topk_bm25,omitempty" jsonschema:"lexical candidates to retrieve, default 30"`
	TopKSemantic       int      `json:"topk_semantic,omitempty" jsonschema:"semantic candidates to retrieve, default 30"`
	MustHaveCharacters []string `json:"must_have_characters,omitempty" jsonschema:"keep only scenes featuring at least one of these characters"`
	Limit              int      `json:"limit,omitempty" jsonschema:"maximum number of scenes, default 10"`
	Explain            bool     `json:"explain,omitempty" jsonschema:"include ranking parameters in the response"`
}

// SmartSearchOutput defines the output schema for the smart_search tool.
type SmartSearchOutput struct {
	Query     string              `json:"query"`
	RequestID string              `json:"request_id"`
	Outcome   extract.Outcome     `json:"outcome" jsonschema:"entity extraction outcome: found, empty or failed"`
	Signals   extract.Signals     `json:"signals" jsonschema:"characters, locations and events recognized in the query"`
	Counts    search.Counts       `json:"counts"`
	Scenes    []SceneHitOutput    `json:"scenes" jsonschema:"ranked scenes, best first"`
	Explain   *search.ExplainData `json:"explain,omitempty"`
}

// SceneHitOutput is one ranked scene with the reasons it ranked there.
type SceneHitOutput struct {
	Rank        int            `json:"rank"`
	SceneID     string         `json:"scene_id"`
	Score       float64        `json:"score" jsonschema:"entity score plus weighted similarity"`
	EntityScore int            `json:"entity_score" jsonschema:"characters + locations + 2 x events matched"`
	Similarity  float64        `json:"similarity" jsonschema:"normalized fused retrieval score between 0 and 1"`
	Overlap     search.Overlap `json:"overlap" jsonschema:"query signals this scene matched"`
	Summary     string         `json:"summary"`
	Snippet     string         `json:"snippet" jsonschema:"leading words of the scene text"`
	Characters  []string       `json:"characters"`
	Locations   []string       `json:"locations"`
	EventTags   []string       `json:"event_tags"`
}

// GetSceneInput defines the input schema for the get_scene tool.
type GetSceneInput struct {
	SceneID string `json:"scene_id" jsonschema:"id of the scene to fetch"`
}

// GetSceneOutput is the full scene record.
type GetSceneOutput struct {
	SceneID    string   `json:"scene_id"`
	Position   int      `json:"position"`
	Text       string   `json:"text"`
	Summary    string   `json:"summary_50w"`
	Beats      []string `json:"beats"`
	EventTags  []string `json:"event_tags"`
	Characters []string `json:"extra_characters"`
	Locations  []string `json:"extra_locations"`
	Events     []string `json:"extra_events,omitempty"`
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name: ToolSmartSearch,
		Description: "Finds the scenes of the saga that answer a question. Combines keyword and semantic retrieval, " +
			"then ranks scenes by how many of the question's characters, locations and events they contain. " +
			"Returns scene ids, scores, matched entities and a text snippet per scene.",
	},
	{
		Name:        ToolGetScene,
		Description: "Returns the full record of one scene by scene_id: text, summary, beats, tags, characters and locations.",
	},
}
