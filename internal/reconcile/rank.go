package reconcile

import "sort"

// AccountSummary is one line of a batch run.
type AccountSummary struct {
	AccountID   string  `json:"account_id"`
	ReportID    string  `json:"report_id"`
	Verdict     Verdict `json:"verdict"`
	Total       int     `json:"total"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	Error       string  `json:"error,omitempty"`
}

// Summarize builds the batch line for an outcome. A nil outcome with err
// records an account that could not be reconciled at all.
func Summarize(accountID, reportID string, o *Outcome, err error) AccountSummary {
	s := AccountSummary{AccountID: accountID, ReportID: reportID}
	if err != nil || o == nil {
		s.Verdict = VerdictFail
		if err != nil {
			s.Error = err.Error()
		}
		return s
	}
	s.Verdict = o.Report.Verdict
	s.Total = o.Report.Total
	s.Failed = o.Report.Failed
	s.SuccessRate = o.Report.SuccessRate
	return s
}

// RankBySuccessRate sorts worst accounts first: errors, then lowest success rate.
func RankBySuccessRate(in []AccountSummary) []AccountSummary {
	out := make([]AccountSummary, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := out[i].Error != "", out[j].Error != ""
		if ei != ej {
			return ei
		}
		if out[i].SuccessRate != out[j].SuccessRate {
			return out[i].SuccessRate < out[j].SuccessRate
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}
