package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/davag/ragquery/store"
)

const maxUsagePageSize = 1000

// HandleListUsage returns recorded usage rows, newest first. Optional
// query params: query_id, model, limit.
func (s *APIV1Service) HandleListUsage(c echo.Context) error {
	find := &store.FindUsageRecord{}

	if queryID := c.QueryParam("query_id"); queryID != "" {
		find.QueryID = &queryID
	}
	if model := c.QueryParam("model"); model != "" {
		find.Model = &model
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = min(parsed, maxUsagePageSize)
	}
	find.Limit = &limit

	records, err := s.Store.ListUsageRecords(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list usage records").SetInternal(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"records": records,
	})
}
