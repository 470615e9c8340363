package calculator

import (
	"client-manager/pkg/models"
)

// Renewal score weights. They sum to 1 so the score stays in [0,1].
const (
	paidWeight   = 0.6
	repeatWeight = 0.4
)

// PredictRenewal scores how likely a client is to come back, from the share of paid
// invoices and from repeat business. The score never decreases when the paid count grows
// at a fixed project count, nor when the project count grows at a fixed paid ratio.
func PredictRenewal(clientName string, records []models.ClientProject) models.RenewalPrediction {
	paid := 0
	for _, r := range records {
		if r.IsPaid() {
			paid++
		}
	}
	score := renewalScore(paid, len(records))
	return models.RenewalPrediction{
		ClientName: clientName,
		Likelihood: score,
		Outlook:    outlookFor(score),
	}
}

func renewalScore(paid, projects int) float64 {
	if projects <= 0 {
		return 0
	}
	paidRatio := float64(paid) / float64(projects)
	repeat := 1 - 1/float64(projects)
	score := paidWeight*paidRatio + repeatWeight*repeat
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}

func outlookFor(score float64) models.RenewalOutlook {
	switch {
	case score >= 0.7:
		return models.OutlookHigh
	case score >= 0.4:
		return models.OutlookMedium
	default:
		return models.OutlookLow
	}
}

// renewalLikelihoods scores every client present in records.
func renewalLikelihoods(records []models.ClientProject) map[string]float64 {
	out := make(map[string]float64)
	for name, group := range groupByClient(records) {
		out[name] = PredictRenewal(name, group).Likelihood
	}
	return out
}
