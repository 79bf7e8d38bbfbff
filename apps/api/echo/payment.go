package echoapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core/payment"
)

type PaymentService interface {
	Record(ctx context.Context, nt payment.NewTransaction) (payment.Transaction, error)
	ByStaff(ctx context.Context, staffName string, pendingOnly bool) ([]payment.PendingTransaction, error)
	SummaryByStaff(ctx context.Context, staffName string) ([]payment.Detail, error)
	Handover(ctx context.Context, batch payment.HandoverBatch) (payment.Receipt, error)
}

var _ PaymentService = (*payment.Service)(nil)

type paymentApi struct {
	svc      PaymentService
	staffSvc StaffService
}

func registerPaymentAPI(g *echo.Group, svc PaymentService, staffSvc StaffService) {
	api := paymentApi{svc: svc, staffSvc: staffSvc}

	g.POST("/payments", api.record)
	g.GET("/payments-by-staff/:staffName", api.byStaff)
	g.GET("/payments-by-staff/:staffName/summary", api.summaryByStaff)
	g.POST("/payment-handovers", api.handover)
}

func (api *paymentApi) record(ctx echo.Context) error {
	var data payment.NewTransaction
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTransaction")
	}
	if data.ReceivedBy == "" {
		s, err := getContextStaff(ctx, api.staffSvc)
		if err != nil {
			return err
		}
		data.ReceivedBy = s.Name
	}

	txn, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, txn)
}

// byStaff lists a staff member's receipts; `?pending=true` keeps those with something left to hand over.
func (api *paymentApi) byStaff(ctx echo.Context) error {
	pendingOnly, _ := strconv.ParseBool(ctx.QueryParam("pending"))
	txns, err := api.svc.ByStaff(ctx.Request().Context(), ctx.Param("staffName"), pendingOnly)
	if err != nil {
		return errors.Wrap(err, "querying payments by staff")
	}
	if txns == nil {
		txns = []payment.PendingTransaction{}
	}
	return ctx.JSON(http.StatusOK, txns)
}

func (api *paymentApi) summaryByStaff(ctx echo.Context) error {
	details, err := api.svc.SummaryByStaff(ctx.Request().Context(), ctx.Param("staffName"))
	if err != nil {
		return errors.Wrap(err, "summarising payments by staff")
	}
	if details == nil {
		details = []payment.Detail{}
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *paymentApi) handover(ctx echo.Context) error {
	var data payment.HandoverBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to HandoverBatch")
	}
	// the caller hands over from their own custody and vouches for the verification
	s, err := getContextStaff(ctx, api.staffSvc)
	if err != nil {
		return err
	}
	data.CreatedBy = s.Name
	if data.Verified {
		data.VerifiedBy = s.Name
	}

	receipt, err := api.svc.Handover(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, receipt)
}
