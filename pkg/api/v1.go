package routing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/iziplay/isbn-api/pkg/database"
	"github.com/iziplay/isbn-api/pkg/isbn"
	"github.com/iziplay/isbn-api/pkg/lookup"
	"github.com/iziplay/isbn-api/pkg/metrics"
	"github.com/iziplay/isbn-api/pkg/sync"
)

// Dependencies are the services the routes operate on.
type Dependencies struct {
	Lookup    *lookup.Service
	Syncer    *sync.Syncer
	Metrics   *metrics.Metrics
	JWTSecret string
}

type StatsOutput struct {
	Body database.CachedStats
}

type PlainOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type SyncStatsOutput struct {
	Body sync.SyncStats
}

type LookupStatsOutput struct {
	Body lookup.Stats
}

type ISBNInput struct {
	ISBN string `path:"isbn" maxLength:"64" doc:"ISBN-10 or ISBN-13, hyphens and spaces allowed" example:"978-0-596-52812-6"`
}

type LookupOutput struct {
	Body *lookup.Result
}

type ValidateOutput struct {
	Body struct {
		Normalized string    `json:"normalized"`
		Kind       isbn.Kind `json:"kind,omitempty"`
		Valid      bool      `json:"valid"`
	}
}

type ConvertInput struct {
	ISBN string `path:"isbn" maxLength:"64" doc:"ISBN-10 or ISBN-13, hyphens and spaces allowed"`
	To   int    `query:"to" default:"13" enum:"10,13" doc:"Target length"`
}

type ConvertOutput struct {
	Body struct {
		ISBN string `json:"isbn"`
	}
}

type PartsOutput struct {
	Body struct {
		isbn.Parts
		Hyphenated string `json:"hyphenated"`
	}
}

type RangesOutput struct {
	Body struct {
		Metadata isbn.Metadata `json:"metadata"`
		Groups   []isbn.Group  `json:"groups"`
	}
}

type GroupInput struct {
	Prefix string `path:"prefix" doc:"Group prefix including the EAN prefix, e.g. 978-0"`
}

type GroupOutput struct {
	Body isbn.Group
}

type SearchGroupsInput struct {
	Agency string `query:"agency" doc:"Filter by agency name (case-insensitive)"`
	EAN    string `query:"ean" enum:"978,979" doc:"Filter by EAN prefix"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum number of results"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Offset for pagination"`
}

type SearchGroupsOutput struct {
	Body struct {
		Total   int64                 `json:"total"`
		Results []database.RangeGroup `json:"results"`
	}
}

func Setup(api huma.API, deps Dependencies) {
	api.UseMiddleware(authMiddleware(api, deps.JWTSecret))

	huma.Register(api, huma.Operation{
		OperationID: "HealthCheck",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Health check",
		Description: "Check if the API is running",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*PlainOutput, error) {
		return &PlainOutput{
			ContentType: "text/plain",
			Body:        []byte("OK"),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "LookupISBN",
		Method:      http.MethodGet,
		Path:        "/v1/isbn/{isbn}",
		Summary:     "Look up an ISBN",
		Description: "Normalize, validate, convert and decompose an ISBN in one call",
		Tags:        []string{"ISBN"},
	}, func(ctx context.Context, input *ISBNInput) (*LookupOutput, error) {
		return &LookupOutput{Body: deps.lookup(input.ISBN)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "ValidateISBN",
		Method:      http.MethodGet,
		Path:        "/v1/isbn/{isbn}/validate",
		Summary:     "Validate an ISBN",
		Description: "Check the length, alphabet and check character of an ISBN",
		Tags:        []string{"ISBN"},
	}, func(ctx context.Context, input *ISBNInput) (*ValidateOutput, error) {
		resp := &ValidateOutput{}
		resp.Body.Normalized = isbn.Normalize(input.ISBN)
		resp.Body.Kind = isbn.KindOf(input.ISBN)
		resp.Body.Valid = resp.Body.Kind != isbn.KindInvalid
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "ConvertISBN",
		Method:      http.MethodGet,
		Path:        "/v1/isbn/{isbn}/convert",
		Summary:     "Convert an ISBN",
		Description: "Return the ISBN-10 or ISBN-13 form of a valid ISBN",
		Tags:        []string{"ISBN"},
	}, func(ctx context.Context, input *ConvertInput) (*ConvertOutput, error) {
		converted, ok := isbn.Convert(input.ISBN, input.To)
		if !ok {
			return nil, huma.Error422UnprocessableEntity("ISBN is invalid or has no form of the requested length")
		}
		resp := &ConvertOutput{}
		resp.Body.ISBN = converted
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetISBNParts",
		Method:      http.MethodGet,
		Path:        "/v1/isbn/{isbn}/parts",
		Summary:     "Decompose an ISBN",
		Description: "Split an ISBN into EAN prefix, registration group, registrant, publication element and check digit",
		Tags:        []string{"ISBN"},
	}, func(ctx context.Context, input *ISBNInput) (*PartsOutput, error) {
		res := deps.lookup(input.ISBN)
		switch res.Status {
		case lookup.StatusInvalid:
			return nil, huma.Error400BadRequest("invalid ISBN")
		case lookup.StatusNoRangeTable:
			return nil, huma.Error503ServiceUnavailable("range table not loaded yet, please retry later")
		case lookup.StatusUncategorized:
			return nil, huma.Error404NotFound("ISBN is not covered by the range table")
		}
		resp := &PartsOutput{}
		resp.Body.Parts = *res.Parts
		resp.Body.Hyphenated = res.Hyphenated
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetRanges",
		Method:      http.MethodGet,
		Path:        "/v1/ranges",
		Summary:     "Get the range table",
		Description: "Get the active range table with its provenance",
		Tags:        []string{"Ranges"},
	}, func(ctx context.Context, input *struct{}) (*RangesOutput, error) {
		table := deps.Lookup.Table()
		if table == nil {
			return nil, huma.Error503ServiceUnavailable("range table not loaded yet, please retry later")
		}
		resp := &RangesOutput{}
		resp.Body.Metadata = table.Metadata()
		resp.Body.Groups = table.Groups()
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetRangeGroup",
		Method:      http.MethodGet,
		Path:        "/v1/ranges/groups/{prefix}",
		Summary:     "Get a registration group",
		Description: "Get the rules of one registration group",
		Tags:        []string{"Ranges"},
	}, func(ctx context.Context, input *GroupInput) (*GroupOutput, error) {
		table := deps.Lookup.Table()
		if table == nil {
			return nil, huma.Error503ServiceUnavailable("range table not loaded yet, please retry later")
		}
		group, ok := table.Group(input.Prefix)
		if !ok {
			return nil, huma.Error404NotFound("unknown registration group")
		}
		return &GroupOutput{Body: group}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "SearchRangeGroups",
		Method:      http.MethodGet,
		Path:        "/v1/ranges/search",
		Summary:     "Search registration groups",
		Description: "Search stored registration groups by agency and EAN prefix",
		Tags:        []string{"Ranges"},
	}, func(ctx context.Context, input *SearchGroupsInput) (*SearchGroupsOutput, error) {
		groups, total, err := database.SearchGroups(input.Agency, input.EAN, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to search groups", err)
		}
		resp := &SearchGroupsOutput{}
		resp.Body.Total = total
		resp.Body.Results = groups
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "SyncRanges",
		Method:        http.MethodPost,
		Path:          "/v1/ranges/sync",
		Summary:       "Refresh the range table",
		Description:   "Start a synchronization of the range table with the International ISBN Agency",
		Tags:          []string{"Ranges"},
		DefaultStatus: http.StatusAccepted,
		Security:      []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *struct{}) (*SyncStatsOutput, error) {
		if deps.Syncer == nil {
			return nil, huma.Error503ServiceUnavailable("synchronization is disabled")
		}
		go func() {
			if err := deps.Syncer.Sync(context.WithoutCancel(ctx)); err != nil {
				slog.Error("Sync failed", "error", err)
			}
		}()
		return &SyncStatsOutput{Body: sync.GetStats()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetStatistics",
		Method:      http.MethodGet,
		Path:        "/v1/statistics",
		Summary:     "Get statistics",
		Description: "Get statistics about the stored range table",
		Tags:        []string{"Statistics"},
	}, func(ctx context.Context, input *struct{}) (*StatsOutput, error) {
		stats := database.GetCachedStats()
		if stats == nil {
			go database.ComputeAndCacheStats(false)
			return nil, huma.Error503ServiceUnavailable("sync in progress or stats are being computed, please retry later")
		}
		return &StatsOutput{
			Body: *stats,
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetSyncStatistics",
		Method:      http.MethodGet,
		Path:        "/v1/statistics/sync",
		Summary:     "Get sync statistics",
		Description: "Get current sync progress and statistics",
		Tags:        []string{"Statistics"},
	}, func(ctx context.Context, input *struct{}) (*SyncStatsOutput, error) {
		resp := &SyncStatsOutput{}
		resp.Body = sync.GetStats()
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetLookupStatistics",
		Method:      http.MethodGet,
		Path:        "/v1/statistics/lookup",
		Summary:     "Get lookup statistics",
		Description: "Get memo usage for the active range table",
		Tags:        []string{"Statistics"},
	}, func(ctx context.Context, input *struct{}) (*LookupStatsOutput, error) {
		return &LookupStatsOutput{Body: deps.Lookup.Stats()}, nil
	})
}

// lookup runs a memoized lookup and records its outcome.
func (d Dependencies) lookup(raw string) *lookup.Result {
	res, hit := d.Lookup.Lookup(raw)
	d.Metrics.ObserveLookup(string(res.Status), hit)
	return res
}
