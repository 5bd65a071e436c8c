package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup wipes fixture data created by end-to-end tests. Registered
// outside production only.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	ctx := c.Request.Context()
	customerIDs, err := s.loadCustomerIDsByPrefix(ctx, prefix)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.deleteCustomerData(ctx, prefix, customerIDs); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) loadCustomerIDsByPrefix(ctx context.Context, prefix string) ([]int64, error) {
	like := strings.TrimSpace(prefix) + "%"
	var customerIDs []int64
	if err := s.db.WithContext(ctx).
		Table("customers").
		Select("id").
		Where("name LIKE ?", like).
		Scan(&customerIDs).Error; err != nil {
		return nil, err
	}
	return customerIDs, nil
}

func (s *Server) deleteCustomerData(ctx context.Context, prefix string, customerIDs []int64) error {
	like := strings.TrimSpace(prefix) + "%"
	if err := s.db.WithContext(ctx).Exec(
		`DELETE FROM invoices WHERE number LIKE ?`, like,
	).Error; err != nil {
		return err
	}

	if len(customerIDs) == 0 {
		return nil
	}
	queries := []string{
		`DELETE FROM invoices WHERE customer_id IN ?`,
		`DELETE FROM customers WHERE id IN ?`,
	}
	for _, query := range queries {
		if err := s.db.WithContext(ctx).Exec(query, customerIDs).Error; err != nil {
			return err
		}
	}
	return nil
}
