package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// @Summary      Dashboard Summary
// @Description  Aggregate revenue and invoice stats
// @Tags         dashboard
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  dashboarddomain.RevenueSummary
// @Router       /dashboard/summary [get]
func (s *Server) DashboardSummary(c *gin.Context) {
	if s.dashboardSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	resp, err := s.dashboardSvc.RevenueSummary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Dashboard Status Breakdown
// @Description  Invoice counts and totals per status
// @Tags         dashboard
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  dashboarddomain.StatusBreakdownResponse
// @Router       /dashboard/statuses [get]
func (s *Server) DashboardStatuses(c *gin.Context) {
	if s.dashboardSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	resp, err := s.dashboardSvc.StatusBreakdown(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statuses": resp.Statuses})
}

// @Summary      Dashboard Top Customers
// @Description  Customers ranked by billed revenue
// @Tags         dashboard
// @Produce      json
// @Security     ApiKeyAuth
// @Param        limit  query  int  false  "Limit"
// @Success      200  {object}  dashboarddomain.TopCustomersResponse
// @Router       /dashboard/customers [get]
func (s *Server) DashboardTopCustomers(c *gin.Context) {
	if s.dashboardSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	limit := parseLimit(c.Query("limit"))
	resp, err := s.dashboardSvc.TopCustomers(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": resp.Customers})
}

// @Summary      Dashboard Activity
// @Description  Recent invoice lifecycle events
// @Tags         dashboard
// @Produce      json
// @Security     ApiKeyAuth
// @Param        limit  query  int  false  "Limit"
// @Success      200  {object}  dashboarddomain.ActivityResponse
// @Router       /dashboard/activity [get]
func (s *Server) DashboardActivity(c *gin.Context) {
	if s.dashboardSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	limit := parseLimit(c.Query("limit"))
	resp, err := s.dashboardSvc.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": resp.Activity})
}

func parseLimit(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value
}
