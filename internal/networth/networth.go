// Package networth computes net worth totals from itemized asset and
// liability amounts.
package networth

// Result holds the totals of a single net worth computation.
type Result struct {
	TotalAssets      float64
	TotalLiabilities float64
	NetWorth         float64
}

// Compute sums the asset and liability maps and returns the totals.
// Amounts are taken verbatim; negative and zero values are allowed.
func Compute(assets, liabilities map[string]float64) Result {
	var r Result
	for _, v := range assets {
		r.TotalAssets += v
	}
	for _, v := range liabilities {
		r.TotalLiabilities += v
	}
	r.NetWorth = r.TotalAssets - r.TotalLiabilities
	return r
}
