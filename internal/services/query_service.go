package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
	"github.com/pratik-mahalle/iamgen/internal/pkg/utils"
	"github.com/pratik-mahalle/iamgen/internal/query"
)

// QueryRequest filters the records of a completed scan
type QueryRequest struct {
	ScanID     string   `json:"scan_id" validate:"required"`
	Query      string   `json:"query"`
	Categories []string `json:"categories,omitempty"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}

// QueryMatch is one record that satisfied a query
type QueryMatch struct {
	Category string      `json:"category"`
	Identity string      `json:"identity"`
	Record   scan.Record `json:"record"`
}

// QueryResult is one page of matches
type QueryResult struct {
	Matches    []QueryMatch `json:"matches"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// QueryService evaluates filter expressions against stored scan documents
type QueryService struct {
	store  scan.Store
	logger *logger.Logger
}

// NewQueryService creates a new query service
func NewQueryService(store scan.Store, log *logger.Logger) *QueryService {
	return &QueryService{
		store:  store,
		logger: log,
	}
}

// Query returns one page of the records matching req.Query. An empty query matches every record.
func (s *QueryService) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	expr, err := parseQuery(req.Query)
	if err != nil {
		return nil, err
	}

	doc, err := completedDocument(ctx, s.store, req.ScanID)
	if err != nil {
		return nil, err
	}

	matches := Match(doc, expr, req.Categories)
	params := utils.NewPaginationParams(req.Page, req.PageSize)
	start, end := params.Window(len(matches))

	s.logger.WithFields(map[string]interface{}{
		"scan_id": req.ScanID,
		"query":   req.Query,
		"matches": len(matches),
	}).Debug("Query evaluated")

	return &QueryResult{
		Matches:    matches[start:end],
		Total:      len(matches),
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: utils.TotalPages(len(matches), params.PageSize),
	}, nil
}

// Match evaluates expr against every record of the given categories, or of every category when
// none are named. Matches follow category then scan order.
func Match(doc *scan.Document, expr query.Expr, categories []string) []QueryMatch {
	if len(categories) == 0 {
		categories = doc.Categories()
	}

	matches := make([]QueryMatch, 0)
	for _, category := range categories {
		for _, r := range doc.Records(category) {
			if !query.Evaluate(expr, r) {
				continue
			}
			matches = append(matches, QueryMatch{
				Category: category,
				Identity: scan.IdentityOf(category, r),
				Record:   r,
			})
		}
	}
	return matches
}

func parseQuery(input string) (query.Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	expr, err := query.Parse(input)
	if err != nil {
		return nil, apperrors.QuerySyntaxError(err)
	}
	return expr, nil
}

// completedDocument loads the document of a scan that finished successfully
func completedDocument(ctx context.Context, store scan.Store, scanID string) (*scan.Document, error) {
	state, err := store.Get(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if state.Status != scan.StatusCompleted {
		return nil, apperrors.Conflict(fmt.Sprintf("scan %s is %s, not completed", scanID, state.Status))
	}
	if state.Document == nil {
		return scan.NewDocument(state.Provider), nil
	}
	return state.Document, nil
}
