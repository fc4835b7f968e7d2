package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	queryMetricsURI = "travelrag://query_metrics"

	// queryMetricsTopTerms bounds the term list in the resource.
	queryMetricsTopTerms = 20
)

// QueryMetricsOutput is the query_metrics resource body.
type QueryMetricsOutput struct {
	Summary           QueryMetricsSummary `json:"summary"`
	ModeCounts        map[string]int64    `json:"mode_counts"`
	TopTerms          []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries []string            `json:"zero_result_queries"`
}

// QueryMetricsSummary holds the headline numbers.
type QueryMetricsSummary struct {
	TotalQueries  int64   `json:"total_queries"`
	Since         string  `json:"since"`
	ZeroResultPct float64 `json:"zero_result_pct"`
}

// QueryTermCount represents a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         queryMetricsURI,
			Description: "What travellers search for, and which queries found nothing",
			MIMEType:    "application/json",
		},
		s.makeQueryMetricsHandler(),
	)
}

func (s *Server) makeQueryMetricsHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.queryMetricsJSON()
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      queryMetricsURI,
					MIMEType: "application/json",
					Text:     string(content),
				},
			},
		}, nil
	}
}

func (s *Server) queryMetricsJSON() ([]byte, error) {
	s.mu.RLock()
	queryLog := s.queryLog
	s.mu.RUnlock()

	if queryLog == nil {
		return nil, NewInvalidParamsError("query metrics not available")
	}

	snapshot := queryLog.Snapshot(queryMetricsTopTerms)
	output := QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:  snapshot.TotalQueries,
			Since:         snapshot.Since.UTC().Format("2006-01-02T15:04:05Z"),
			ZeroResultPct: snapshot.ZeroResultPercentage(),
		},
		ModeCounts:        snapshot.ModeCounts,
		TopTerms:          make([]QueryTermCount, 0, len(snapshot.TopTerms)),
		ZeroResultQueries: snapshot.ZeroResultQueries,
	}
	if output.ModeCounts == nil {
		output.ModeCounts = map[string]int64{}
	}
	if output.ZeroResultQueries == nil {
		output.ZeroResultQueries = []string{}
	}
	for _, tc := range snapshot.TopTerms {
		output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}

	content, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return content, nil
}
