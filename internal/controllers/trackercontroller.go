package controllers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/digestwatch/digestwatch/pkg/model"
	"github.com/digestwatch/digestwatch/pkg/tracker"
)

// TrackerController exposes the tracker's command surface over HTTP.
// Handlers are thin: they forward to the tracker and translate the
// Success flag of its typed results into status codes.
type TrackerController struct {
	Path    string
	Api     *huma.API
	Tracker *tracker.Tracker
	Config  *model.Config
	Metrics *MetricsController
}

type StatusResponse struct {
	Body model.StatusResult `json:"body"`
}

type ReportResponse struct {
	Body model.Report `json:"body"`
}

type HistoryResponse struct {
	Body model.HistoryResult `json:"body"`
}

type CompareResponse struct {
	Body model.CompareResult `json:"body"`
}

type UpdatesResponse struct {
	Body model.UpdateCheckResult `json:"body"`
}

type ScanResponse struct {
	Body model.ScanResult `json:"body"`
}

type SnapshotsResponse struct {
	Body []model.ContainerSnapshot `json:"body"`
}

type ContainerNameInput struct {
	Name string `path:"name" doc:"Name of the tracked container"`
}

type CompareInput struct {
	Hours int `query:"hours" default:"24" minimum:"1" doc:"Comparison window in hours"`
}

type ScanInput struct {
	Body struct {
		IncludeStopped bool `json:"IncludeStopped,omitempty" doc:"Also scan stopped containers"`
	} `json:"body"`
}

type SnapshotsInput struct {
	Pagination
}

func NewTrackerController(api *huma.API, trk *tracker.Tracker, config *model.Config) *TrackerController {
	return &TrackerController{
		Path:    "",
		Api:     api,
		Tracker: trk,
		Config:  config,
	}
}

func (tc *TrackerController) WithMetrics(metrics *MetricsController) *TrackerController {
	tc.Metrics = metrics
	return tc
}

func (tc *TrackerController) AddRoutes() {
	{
		op, handler := tc.GetStatus()
		huma.Register(*tc.Api, op, handler)
	}
	{
		op, handler := tc.GetReport()
		huma.Register(*tc.Api, op, handler)
	}
	{
		op, handler := tc.GetContainerHistory()
		huma.Register(*tc.Api, op, handler)
	}
	{
		op, handler := tc.GetCompare()
		huma.Register(*tc.Api, op, handler)
	}
	{
		op, handler := tc.GetUpdates()
		huma.Register(*tc.Api, op, handler)
	}
	{
		op, handler := tc.PostScan()
		huma.Register(*tc.Api, op, handler)
	}
	{
		op, handler := tc.GetSnapshots()
		huma.Register(*tc.Api, op, handler)
	}
}

func (tc *TrackerController) GetStatus() (huma.Operation, func(ctx context.Context, input *struct{}) (*StatusResponse, error)) {
	return huma.Operation{
			OperationID: "GetStatus",
			Method:      "GET",
			Path:        tc.Path + "/status",
			Summary:     "Get status of all tracked containers",
			Description: "Latest snapshot per container, enriched with running state and change history stats.",
			Tags:        []string{"tracker"},
			Responses: map[string]*huma.Response{
				"200": {Description: "Container statuses"},
				"500": {Description: "Internal server error"},
			},
		}, func(ctx context.Context, input *struct{}) (*StatusResponse, error) {
			result := tc.Tracker.ContainerStatus(ctx)
			if !result.Success {
				return nil, huma.Error500InternalServerError(result.Error)
			}
			return &StatusResponse{Body: result}, nil
		}
}

func (tc *TrackerController) GetReport() (huma.Operation, func(ctx context.Context, input *struct{}) (*ReportResponse, error)) {
	return huma.Operation{
			OperationID: "GetReport",
			Method:      "GET",
			Path:        tc.Path + "/report",
			Summary:     "Get a comprehensive tracking report",
			Description: "Status of all containers plus the last 7 days of digest changes, grouped by day and project.",
			Tags:        []string{"tracker"},
			Responses: map[string]*huma.Response{
				"200": {Description: "Tracking report"},
				"500": {Description: "Internal server error"},
			},
		}, func(ctx context.Context, input *struct{}) (*ReportResponse, error) {
			report := tc.Tracker.GenerateReport(ctx)
			if !report.Success {
				return nil, huma.Error500InternalServerError(report.Error)
			}
			return &ReportResponse{Body: report}, nil
		}
}

func (tc *TrackerController) GetContainerHistory() (huma.Operation, func(ctx context.Context, input *ContainerNameInput) (*HistoryResponse, error)) {
	return huma.Operation{
			OperationID: "GetContainerHistory",
			Method:      "GET",
			Path:        tc.Path + "/containers/{name}/history",
			Summary:     "Get digest change history for one container",
			Tags:        []string{"tracker"},
			Responses: map[string]*huma.Response{
				"200": {Description: "Container history"},
				"404": {Description: "Container not tracked"},
				"500": {Description: "Internal server error"},
			},
		}, func(ctx context.Context, input *ContainerNameInput) (*HistoryResponse, error) {
			result := tc.Tracker.ContainerHistory(ctx, input.Name)
			if !result.Success {
				if result.Error == model.ErrNotFound.Error() {
					return nil, huma.Error404NotFound("Container '" + input.Name + "' not found in tracking database")
				}
				return nil, huma.Error500InternalServerError(result.Error)
			}
			return &HistoryResponse{Body: result}, nil
		}
}

func (tc *TrackerController) GetCompare() (huma.Operation, func(ctx context.Context, input *CompareInput) (*CompareResponse, error)) {
	return huma.Operation{
			OperationID: "GetCompare",
			Method:      "GET",
			Path:        tc.Path + "/compare",
			Summary:     "Compare current state with a previous window",
			Description: "Partitions tracked containers into changed, new and unchanged for the given window.",
			Tags:        []string{"tracker"},
			Responses: map[string]*huma.Response{
				"200": {Description: "Comparison result"},
				"500": {Description: "Internal server error"},
			},
		}, func(ctx context.Context, input *CompareInput) (*CompareResponse, error) {
			result := tc.Tracker.CompareWithPrevious(ctx, input.Hours)
			if !result.Success {
				return nil, huma.Error500InternalServerError(result.Error)
			}
			return &CompareResponse{Body: result}, nil
		}
}

func (tc *TrackerController) GetUpdates() (huma.Operation, func(ctx context.Context, input *struct{}) (*UpdatesResponse, error)) {
	return huma.Operation{
			OperationID: "GetUpdates",
			Method:      "GET",
			Path:        tc.Path + "/updates",
			Summary:     "Check all tracked containers for available updates",
			Description: "Reconciles stored digests against the remote registries. Per-container lookup failures are reported inline, they do not fail the request.",
			Tags:        []string{"tracker"},
			Responses: map[string]*huma.Response{
				"200": {Description: "Update check result"},
				"500": {Description: "Internal server error"},
			},
		}, func(ctx context.Context, input *struct{}) (*UpdatesResponse, error) {
			result := tc.Tracker.CheckForUpdates(ctx)
			if !result.Success {
				return nil, huma.Error500InternalServerError(result.Error)
			}
			if tc.Metrics != nil {
				tc.Metrics.UpdateChecks.Inc()
				tc.Metrics.UpdatesAvailable.Set(float64(result.UpdatesAvailable))
			}
			return &UpdatesResponse{Body: result}, nil
		}
}

func (tc *TrackerController) PostScan() (huma.Operation, func(ctx context.Context, input *ScanInput) (*ScanResponse, error)) {
	return huma.Operation{
			OperationID: "PostScan",
			Method:      "POST",
			Path:        tc.Path + "/scan",
			Summary:     "Scan containers and update the tracking database",
			Tags:        []string{"tracker"},
			Responses: map[string]*huma.Response{
				"200": {Description: "Scan result"},
				"503": {Description: "Container runtime unavailable"},
				"500": {Description: "Internal server error"},
			},
		}, func(ctx context.Context, input *ScanInput) (*ScanResponse, error) {
			result := tc.Tracker.ScanAndUpdate(ctx, input.Body.IncludeStopped)
			if !result.Success {
				return nil, huma.Error503ServiceUnavailable(result.Error)
			}
			if tc.Metrics != nil {
				tc.Metrics.ObserveScan(result)
			}
			return &ScanResponse{Body: result}, nil
		}
}

func (tc *TrackerController) GetSnapshots() (huma.Operation, func(ctx context.Context, input *SnapshotsInput) (*SnapshotsResponse, error)) {
	return huma.Operation{
			OperationID: "GetSnapshots",
			Method:      "GET",
			Path:        tc.Path + "/snapshots",
			Summary:     "List raw stored snapshots",
			Description: "Pages through the append-only snapshot log, newest first.",
			Tags:        []string{"tracker"},
			Responses: map[string]*huma.Response{
				"200": {Description: "Snapshot rows"},
				"500": {Description: "Internal server error"},
			},
		}, func(ctx context.Context, input *SnapshotsInput) (*SnapshotsResponse, error) {
			databaseContext, err := getDatabaseContext(ctx)
			if err != nil {
				return nil, err
			}
			snapshots := []model.ContainerSnapshot{}
			if err := databaseContext.DB.
				Scopes(Paginate(&input.Pagination)).
				Order("scan_timestamp DESC, container_name").
				Find(&snapshots).Error; err != nil {
				return nil, huma.Error500InternalServerError("Failed to retrieve snapshots: " + err.Error())
			}
			return &SnapshotsResponse{Body: snapshots}, nil
		}
}
