package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateIndex searches a Weaviate class of source passages that uses the cosine distance metric.
type WeaviateIndex struct {
	client    *weaviate.Client
	className string
}

// NewWeaviateIndex connects to the Weaviate instance at rawURL (scheme://host[:port]).
func NewWeaviateIndex(rawURL, apiKey, className string) (*WeaviateIndex, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid weaviate url %q", rawURL)
	}
	cfg := weaviate.Config{Host: u.Host, Scheme: u.Scheme}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if apiKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: apiKey}
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return &WeaviateIndex{client: client, className: className}, nil
}

var weaviateFields = []graphql.Field{
	{Name: "source_id"},
	{Name: "lang"},
	{Name: "title"},
	{Name: "url"},
	{Name: "text"},
	{Name: "page"},
	{Name: "page_label"},
	{Name: "page_start"},
	{Name: "page_end"},
	{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
}

// Search runs a nearVector query filtered on the lang property.
func (w *WeaviateIndex) Search(ctx context.Context, query []float32, k int, lang string) ([]*Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	q := w.client.GraphQL().Get().
		WithClassName(w.className).
		WithFields(weaviateFields...).
		WithNearVector(w.client.GraphQL().NearVectorArgBuilder().WithVector(query)).
		WithLimit(k)
	if lang != "" {
		q = q.WithWhere(filters.Where().
			WithPath([]string{"lang"}).
			WithOperator(filters.Equal).
			WithValueString(strings.ToUpper(lang)))
	}
	result, err := q.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	return parseWeaviateHits(result, w.className)
}

// Size is unknown for a remote index and reported as -1.
func (w *WeaviateIndex) Size() int {
	return -1
}

// Close is a no-op; the client holds only pooled HTTP connections.
func (w *WeaviateIndex) Close() error {
	return nil
}

type weaviateObject struct {
	Record
	Additional struct {
		Distance *float64 `json:"distance"`
	} `json:"_additional"`
}

func parseWeaviateHits(resp *models.GraphQLResponse, className string) ([]*Hit, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	if len(resp.Errors) > 0 && resp.Errors[0] != nil {
		return nil, fmt.Errorf("weaviate query error: %s", resp.Errors[0].Message)
	}
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}
	var parsed struct {
		Get map[string][]weaviateObject `json:"Get"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse weaviate hits: %w", err)
	}
	objects := parsed.Get[className]
	hits := make([]*Hit, 0, len(objects))
	for _, o := range objects {
		if o.Additional.Distance == nil {
			continue
		}
		hits = append(hits, &Hit{Record: o.Record, Distance: cosineToEuclidean(*o.Additional.Distance)})
	}
	return hits, nil
}

// cosineToEuclidean converts a cosine distance (1 - cos) to the Euclidean distance between unit vectors.
func cosineToEuclidean(d float64) float64 {
	if d <= 0 {
		return 0
	}
	return math.Sqrt(2 * d)
}
