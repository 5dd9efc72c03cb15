package handler

import (
	"log/slog"
	"net/http"

	"lender-ledger/internal/api/handler/dto"
	"lender-ledger/internal/domain/loan"
)

// ReceiptLocator resolves where the receipt for a repayment will be stored.
type ReceiptLocator interface {
	Location(l *loan.Loan, r loan.Repayment) string
}

type LoanHandler struct {
	service  loan.Service
	receipts ReceiptLocator
	logger   *slog.Logger
}

// NewLoanHandler builds the loan routes. receipts may be nil when receipt
// issuing is disabled.
func NewLoanHandler(s loan.Service, receipts ReceiptLocator, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &LoanHandler{
		service:  s,
		receipts: receipts,
		logger:   l.With("component", "LoanHandler"),
	}
}

// CreateLoan handles POST /loans
// @Summary Create a new loan
// @Description Records a loan for one of the lender's customers. New loans start as pending.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan creation request"
// @Success 201 {object} dto.LoanEnvelope "Loan created"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan data"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.CreateLoanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Loan request validation failed", slog.Any("error", err))
		respondError(w, err)
		return
	}
	customerID, err := req.ParsedCustomerID()
	if err != nil {
		respondError(w, err)
		return
	}
	dueDate, err := req.ParsedDueDate()
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.CreateLoan(r.Context(), tenant, customerID, req.Amount, dueDate)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to create loan", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan created successfully",
		slog.String("loanID", created.ID.String()),
		slog.String("customerID", created.CustomerID.String()),
	)
	respondJSON(w, http.StatusCreated, dto.LoanEnvelope{Message: "Loan created", Loan: dto.NewLoanResponse(created)})
}

// ListLoans handles GET /loans
// @Summary List loans
// @Description Lists the lender's loans, optionally filtered by status.
// @Tags Loans
// @Produce json
// @Param status query string false "Loan status" Enums(pending, paid, overdue)
// @Success 200 {object} dto.LoansResponse "Loans"
// @Failure 400 {object} dto.ErrorResponse "Invalid status filter"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var filter *loan.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := loan.ParseStatus(raw)
		if err != nil {
			respondError(w, err)
			return
		}
		filter = &status
	}

	loans, err := h.service.ListLoans(r.Context(), tenant, filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list loans", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.LoansResponse{Loans: dto.NewLoanListResponse(loans)})
}

// GetLoan handles GET /loans/{loanID}
// @Summary Retrieve loan details
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID" Format(uuid)
// @Success 200 {object} dto.LoanResponse "Loan details"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := uuidParam(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	l, err := h.service.GetLoan(r.Context(), tenant, loanID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to get loan", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l))
}

// Repay handles POST /loans/{loanID}/repay
// @Summary Record a repayment
// @Description Applies a partial or full repayment. Amounts above the remaining balance are rejected.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID" Format(uuid)
// @Param request body dto.RepaymentRequest true "Repayment amount"
// @Success 200 {object} dto.RepaymentResultResponse "Repayment recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid amount or overpayment"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan already paid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/repay [post]
// @Security BearerAuth
func (h *LoanHandler) Repay(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := uuidParam(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.RepaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.service.ApplyRepayment(r.Context(), tenant, loanID, req.Amount)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to apply repayment",
			slog.String("loanID", loanID.String()),
			slog.Any("error", err),
		)
		respondError(w, err)
		return
	}

	resp := dto.RepaymentResultResponse{
		Message:   "Repayment recorded",
		Remaining: dto.FormatMoney(result.Remaining),
		Loan:      dto.NewLoanResponse(result.Loan),
	}
	if h.receipts != nil {
		resp.Receipt = h.receipts.Location(result.Loan, result.Repayment)
	}

	h.logger.InfoContext(r.Context(), "Repayment recorded",
		slog.String("loanID", loanID.String()),
		slog.String("amount", req.Amount.String()),
		slog.String("remaining", result.Remaining.String()),
	)
	respondJSON(w, http.StatusOK, resp)
}

// MarkPaid handles PATCH /loans/{loanID}/mark-paid
// @Summary Mark a loan as paid
// @Description Settles the loan regardless of the repaid balance.
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID" Format(uuid)
// @Success 200 {object} dto.LoanEnvelope "Loan marked as paid"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan already paid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/mark-paid [patch]
// @Security BearerAuth
func (h *LoanHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := uuidParam(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.service.MarkPaid(r.Context(), tenant, loanID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to mark loan paid", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.LoanEnvelope{Message: "Loan marked as paid", Loan: dto.NewLoanResponse(updated)})
}

// Summary handles GET /loans/summary
// @Summary Portfolio summary
// @Description Totals loaned, collected and overdue, plus the average repayment time in days.
// @Tags Loans
// @Produce json
// @Success 200 {object} dto.SummaryResponse "Summary"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/summary [get]
// @Security BearerAuth
func (h *LoanHandler) Summary(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), tenant)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to compute summary", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewSummaryResponse(summary))
}

// ListOverdue handles GET /loans/overdue
// @Summary List overdue loans
// @Description Refreshes overdue status, queues reminders for newly overdue loans and lists them.
// @Tags Loans
// @Produce json
// @Success 200 {object} dto.OverdueLoansResponse "Overdue loans"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/overdue [get]
// @Security BearerAuth
func (h *LoanHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	loans, err := h.service.ListOverdue(r.Context(), tenant)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list overdue loans", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.OverdueLoansResponse{OverdueLoans: dto.NewLoanListResponse(loans)})
}
