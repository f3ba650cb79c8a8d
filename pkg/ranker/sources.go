package ranker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// AuxSourceTimeout is the per-source fetch budget (§4.1.1).
const AuxSourceTimeout = 45 * time.Second

const (
	SourceOpenRouter       = "openrouter"
	SourceArtificialAnalysis = "artificial_analysis"
	SourceHuggingFace      = "huggingface"
	SourceLMArena          = "lmarena"
	SourceLiveBench        = "livebench"
)

// OpenRouterModel is the subset of OpenRouter's /models response this
// ranker consumes; it is the authoritative source for catalog membership,
// pricing, capabilities and context length (§4.1.1).
type OpenRouterModel struct {
	ID              string  `json:"id"`
	CanonicalSlug   string  `json:"canonical_slug"`
	HuggingFaceID   string  `json:"hugging_face_id"`
	ContextLength   int64   `json:"context_length"`
	Pricing         struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
	Architecture struct {
		Modality         string   `json:"modality"`
		InputModalities  []string `json:"input_modalities"`
	} `json:"architecture"`
	SupportedParameters []string `json:"supported_parameters"`
}

// openRouterResponse is the top-level envelope OpenRouter returns.
type openRouterResponse struct {
	Data []OpenRouterModel `json:"data"`
}

// FetchOpenRouter pulls the full catalog. An empty result (but no
// transport error) is treated by the caller as "abort the refresh,
// keep the previous snapshot" per §4.1.1 — that decision belongs to the
// refresh orchestrator, not this function, so both cases return
// (nil, nil) when len(data)==0 rather than an error.
func FetchOpenRouter(ctx context.Context, httpClient *http.Client, baseURL, apiKey string) ([]OpenRouterModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("building openrouter request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching openrouter catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("openrouter returned status %d", resp.StatusCode)
	}

	var envelope openRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding openrouter response: %w", err)
	}
	return envelope.Data, nil
}

// AuxRow is one raw benchmark row from an auxiliary source, prior to
// canonical-id resolution and normalization.
type AuxRow struct {
	// RawName is the source's own model name/slug.
	RawName string
	// Metrics maps the source's own field names to raw numeric values;
	// normalize.go maps these onto the 0-100 convention.
	Metrics map[string]float64
}

// AuxSource fetches one auxiliary benchmark feed.
type AuxSource interface {
	Name() string
	Fetch(ctx context.Context) ([]AuxRow, error)
}

// httpAuxSource is the common shape shared by the four auxiliary feeds:
// GET a JSON array from a configurable URL and let a source-specific
// extractor turn each element into an AuxRow.
type httpAuxSource struct {
	name       string
	url        string
	httpClient *http.Client
	extract    func(raw map[string]any) (AuxRow, bool)
}

func (s *httpAuxSource) Name() string { return s.name }

func (s *httpAuxSource) Fetch(ctx context.Context) ([]AuxRow, error) {
	ctx, cancel := context.WithTimeout(ctx, AuxSourceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", s.name, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s returned status %d", s.name, resp.StatusCode)
	}

	var raws []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", s.name, err)
	}

	rows := make([]AuxRow, 0, len(raws))
	for _, raw := range raws {
		if row, ok := s.extract(raw); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// NewArtificialAnalysisSource builds the AA feed, whose indices arrive on
// a [-100,+100] scale and whose accuracy fields are fractions (§4.1.1 step 1).
func NewArtificialAnalysisSource(httpClient *http.Client, url string) AuxSource {
	return &httpAuxSource{
		name:       SourceArtificialAnalysis,
		url:        url,
		httpClient: httpClient,
		extract: func(raw map[string]any) (AuxRow, bool) {
			name, _ := raw["name"].(string)
			if name == "" {
				return AuxRow{}, false
			}
			metrics := map[string]float64{}
			for _, key := range []string{"intelligenceIndex", "codingIndex", "mathIndex"} {
				if v, ok := numeric(raw[key]); ok {
					metrics[key] = v
				}
			}
			if v, ok := numeric(raw["gpqaAccuracy"]); ok {
				// raw fraction; normalize.go's NormalizeAAAccuracy scales to 0-100.
				metrics["gpqa"] = v
			}
			return AuxRow{RawName: name, Metrics: metrics}, len(metrics) > 0
		},
	}
}

// NewHuggingFaceSource builds the HF Open LLM leaderboard feed.
func NewHuggingFaceSource(httpClient *http.Client, url string) AuxSource {
	return &httpAuxSource{
		name:       SourceHuggingFace,
		url:        url,
		httpClient: httpClient,
		extract: func(raw map[string]any) (AuxRow, bool) {
			name, _ := raw["model"].(string)
			if name == "" {
				return AuxRow{}, false
			}
			metrics := map[string]float64{}
			if v, ok := numeric(raw["mmluPro"]); ok {
				metrics["mmluPro"] = v
			}
			return AuxRow{RawName: name, Metrics: metrics}, len(metrics) > 0
		},
	}
}

// NewLMArenaSource builds the Chatbot Arena feed, whose ELO ratings need
// the linear mapping in §4.1.1 step 1.
func NewLMArenaSource(httpClient *http.Client, url string) AuxSource {
	return &httpAuxSource{
		name:       SourceLMArena,
		url:        url,
		httpClient: httpClient,
		extract: func(raw map[string]any) (AuxRow, bool) {
			name, _ := raw["model"].(string)
			if name == "" {
				return AuxRow{}, false
			}
			elo, ok := numeric(raw["elo"])
			if !ok {
				return AuxRow{}, false
			}
			return AuxRow{RawName: name, Metrics: map[string]float64{"arena": elo}}, true
		},
	}
}

// NewLiveBenchSource builds the LiveBench feed, already on the 0-100 scale.
func NewLiveBenchSource(httpClient *http.Client, url string) AuxSource {
	return &httpAuxSource{
		name:       SourceLiveBench,
		url:        url,
		httpClient: httpClient,
		extract: func(raw map[string]any) (AuxRow, bool) {
			name, _ := raw["model"].(string)
			if name == "" {
				return AuxRow{}, false
			}
			metrics := map[string]float64{}
			for jsonKey, metricKey := range map[string]string{
				"coding":          "liveBenchCoding",
				"agenticCoding":   "liveBenchAgenticCoding",
				"reasoning":       "liveBenchReasoning",
				"language":        "liveBenchLanguage",
			} {
				if v, ok := numeric(raw[jsonKey]); ok {
					metrics[metricKey] = v
				}
			}
			return AuxRow{RawName: name, Metrics: metrics}, len(metrics) > 0
		},
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
