package academic

import (
	"fmt"
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/edudesk/core"
)

var (
	emiCountTag  = "emicount"
	emiCountText = fmt.Sprintf("number of EMIs must be between %d and %d", MinEMIs, MaxEMIs)

	emiSeqTag  = "emiseq"
	emiSeqText = "EMI details must be numbered from 1 to the number of EMIs"

	emiDetailTag  = "emidetail"
	emiDetailText = "every EMI needs an amount greater than 0 with at most 2 decimal places, and a due date"

	emiTotalTag  = "emitotal"
	emiTotalText = "EMI total cannot exceed the admin and fees amounts"
)

// InitValidators registers the fee terms rules. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(feeTermsStructValidation, FeeTerms{})
	core.RegisterCustomTranslation(validate, translator, emiCountTag, emiCountText)
	core.RegisterCustomTranslation(validate, translator, emiSeqTag, emiSeqText)
	core.RegisterCustomTranslation(validate, translator, emiDetailTag, emiDetailText)
	core.RegisterCustomTranslation(validate, translator, emiTotalTag, emiTotalText)
}

// feeTermsStructValidation enforces the EMI plan on every path that writes fee terms:
// - numberOfEMI in 2..6 iff paymentMode is EMI
// - one detail per EMI number, 1..numberOfEMI
// - every EMI has a due date and an amount > 0 with at most 2 decimal places
// - EMI total <= adminAmount + feesAmount
func feeTermsStructValidation(sl validator.StructLevel) {
	ft, ok := sl.Current().Interface().(FeeTerms)
	if !ok || ft.PaymentMode != EMI {
		return
	}

	if ft.NumberOfEMI < MinEMIs || ft.NumberOfEMI > MaxEMIs {
		sl.ReportError(ft.NumberOfEMI, "numberOfEMI", "NumberOfEMI", emiCountTag, "")
		return
	}
	if !emisAreContiguous(ft.EmiDetails, ft.NumberOfEMI) {
		sl.ReportError(ft.EmiDetails, "emiDetails", "EmiDetails", emiSeqTag, "")
		return
	}

	total := decimal.Zero
	for _, emi := range ft.EmiDetails {
		if !emi.Amount.IsPositive() || !core.IsMoney(emi.Amount) || emi.DueDate.IsZero() {
			sl.ReportError(ft.EmiDetails, "emiDetails", "EmiDetails", emiDetailTag, "")
			return
		}
		total = total.Add(emi.Amount)
	}
	if total.GreaterThan(ft.Total()) {
		sl.ReportError(ft.EmiDetails, "emiDetails", "EmiDetails", emiTotalTag, "")
	}
}

func emisAreContiguous(emis []EmiDetail, n int) bool {
	if len(emis) != n {
		return false
	}
	seen := make(map[int]bool, n)
	for _, emi := range emis {
		if emi.EmiNumber < 1 || emi.EmiNumber > n || seen[emi.EmiNumber] {
			return false
		}
		seen[emi.EmiNumber] = true
	}
	return true
}

func sortEmis(emis []EmiDetail) {
	sort.Slice(emis, func(i, j int) bool { return emis[i].EmiNumber < emis[j].EmiNumber })
}
