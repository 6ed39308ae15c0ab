package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finwise/internal/errors"
	"finwise/internal/models"
	"finwise/internal/pagination"
	"finwise/internal/services"
)

// TransactionHandler handles transaction-related requests
type TransactionHandler struct {
	transactionService services.TransactionServicer
	summaryService     services.SummaryServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(
	transactionService services.TransactionServicer,
	summaryService services.SummaryServicer,
	auditService services.AuditServicer,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		summaryService:     summaryService,
		auditService:       auditService,
	}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount      *decimal.Decimal       `json:"amount" binding:"required" swaggertype:"number"`
	Description string                 `json:"description" binding:"required,max=255"`
	CategoryID  string                 `json:"category_id" binding:"required"`
	Date        string                 `json:"date" binding:"omitempty,flex_date"`
	Notes       string                 `json:"notes" binding:"max=1000"`
}

// UpdateTransactionRequest represents the request payload for updating a
// transaction. Omitted fields keep their stored value.
type UpdateTransactionRequest struct {
	Type        *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Amount      *decimal.Decimal        `json:"amount" swaggertype:"number"`
	Description *string                 `json:"description" binding:"omitempty,max=255"`
	CategoryID  *string                 `json:"category_id"`
	Date        *string                 `json:"date" binding:"omitempty,flex_date"`
	Notes       *string                 `json:"notes" binding:"omitempty,max=1000"`
}

// transactionQuery holds the list filters accepted in the query string.
type transactionQuery struct {
	Search     string `form:"search"`
	Type       string `form:"type" binding:"omitempty,transaction_type"`
	CategoryID string `form:"category_id"`
	From       string `form:"from"`
	To         string `form:"to"`
	pagination.PageRequest
}

// parseTransactionFilter reads list filters from the query string. A
// date-only "to" covers the whole day.
func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, pagination.PageRequest, error) {
	var q transactionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return services.TransactionFilter{}, pagination.PageRequest{}, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	filter := services.TransactionFilter{Search: q.Search}
	if q.Type != "" {
		txType := models.TransactionType(q.Type)
		filter.Type = &txType
	}
	if q.CategoryID != "" {
		filter.CategoryID = &q.CategoryID
	}

	from, err := parseOptionalDate("from", q.From)
	if err != nil {
		return services.TransactionFilter{}, pagination.PageRequest{}, err
	}
	to, err := parseOptionalDate("to", q.To)
	if err != nil {
		return services.TransactionFilter{}, pagination.PageRequest{}, err
	}
	if to != nil && len(q.To) == len(time.DateOnly) {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	filter.From, filter.To = from, to

	return filter, q.PageRequest, nil
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record an income or expense against a usable category
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or category type mismatch"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Category not owned"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request.Context(), userID, services.TransactionInput{
		Type:        req.Type,
		Amount:      *req.Amount,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Date:        date,
		Notes:       req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       "CREATE_TRANSACTION",
		ResourceType: "transaction",
		ResourceID:   transaction.ID,
		IPAddress:    c.ClientIP(),
		Changes: map[string]any{
			"type":        transaction.Type,
			"amount":      transaction.Amount.String(),
			"category_id": transaction.CategoryID,
		},
	})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// ListTransactions returns the user's transactions, newest first
// @Summary     List transactions
// @Description List the authenticated user's transactions, newest date first. Paged when page or page_size is given.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       search      query string false "Match description or category name"
// @Param       type        query string false "income or expense"
// @Param       category_id query string false "Category ID"
// @Param       from        query string false "Earliest date (YYYY-MM-DD or RFC 3339)"
// @Param       to          query string false "Latest date (YYYY-MM-DD or RFC 3339)"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {array} models.Transaction "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, page, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if page.Requested() {
		result, err := h.transactionService.PageTransactions(c.Request.Context(), userID, filter, page)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	transactions, err := h.transactionService.ListTransactions(c.Request.Context(), userID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetSummary returns dashboard totals over the user's transactions
// @Summary     Transaction summary
// @Description Income and expense totals, savings rate, expense breakdown by category and monthly trend
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       search      query string false "Match description or category name"
// @Param       type        query string false "income or expense"
// @Param       category_id query string false "Category ID"
// @Param       from        query string false "Earliest date (YYYY-MM-DD or RFC 3339)"
// @Param       to          query string false "Latest date (YYYY-MM-DD or RFC 3339)"
// @Success     200 {object} services.Summary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/summary [get]
func (h *TransactionHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, _, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.summaryService.GetSummary(c.Request.Context(), userID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetTransaction handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get one of the authenticated user's transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransaction(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating a transaction
// @Summary     Update transaction
// @Description Update one of the user's transactions. Type and category changes are re-checked.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input or category type mismatch"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Category not owned"
// @Failure     404 {object} ErrorResponse "Transaction or category not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	patch := models.TransactionPatch{
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Notes:       req.Notes,
	}
	if req.Date != nil {
		date, err := parseOptionalDate("date", *req.Date)
		if err != nil {
			respondWithError(c, err)
			return
		}
		patch.Date = date
	}

	transactionID := c.Param("id")
	transaction, err := h.transactionService.UpdateTransaction(c.Request.Context(), userID, transactionID, patch)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       "UPDATE_TRANSACTION",
		ResourceType: "transaction",
		ResourceID:   transactionID,
		IPAddress:    c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction
// @Summary     Delete transaction
// @Description Delete one of the user's transactions and return the deleted record
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} map[string]interface{} "Deleted transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.DeleteTransaction(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       "DELETE_TRANSACTION",
		ResourceType: "transaction",
		ResourceID:   transaction.ID,
		IPAddress:    c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"message":             "Transaction deleted successfully",
		"deleted_transaction": transaction,
	})
}
