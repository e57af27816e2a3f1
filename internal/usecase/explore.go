package usecase

import (
	"errors"
	"math"
	"sort"
	"strings"

	"tradelens/internal/adapter/memstore"
)

// ErrProductNotFound signals a detail request for an HS6 code absent
// from the trade data.
var ErrProductNotFound = errors.New("product not found")

// ExploreUseCase answers read-only aggregation queries over a loaded
// store. Every call scans the store fresh; nothing is cached between
// calls, and nothing is ever mutated.
type ExploreUseCase struct {
	store *memstore.Store
}

func NewExploreUseCase(store *memstore.Store) *ExploreUseCase {
	return &ExploreUseCase{store: store}
}

// StatsResult is the overview counter set.
type StatsResult struct {
	TotalHS6          int   `json:"total_hs6"`
	TotalNAICS        int   `json:"total_naics"`
	TotalChinaDeficit int64 `json:"total_china_deficit"`
	HighDefenseCount  int   `json:"high_defense_count"`
}

// Stats returns the overview statistics. The high-defense counter
// counts defense entries scoring 7 or above.
func (u *ExploreUseCase) Stats() StatsResult {
	high := 0
	for _, info := range u.store.Defense {
		if info.Score >= 7 {
			high++
		}
	}
	return StatsResult{
		TotalHS6:          len(u.store.Trade),
		TotalNAICS:        len(u.store.Concordance),
		TotalChinaDeficit: u.store.China.Total(),
		HighDefenseCount:  high,
	}
}

// ProductSummary is one row of the product listing.
type ProductSummary struct {
	HS6              string  `json:"hs6"`
	Description      string  `json:"description"`
	ChinaDeficit     int64   `json:"china_deficit"`
	ChinaImportShare float64 `json:"china_import_share"`
	DefenseScore     int     `json:"defense_score"`
	TradeBalance     int64   `json:"trade_balance"`
	TotalExports     int64   `json:"total_exports"`
	TotalImports     int64   `json:"total_imports"`
}

// ProductList is the listing response: rows after filter, sort and
// truncation, plus the pre-truncation total.
type ProductList struct {
	Products []ProductSummary `json:"products"`
	Total    int              `json:"total"`
}

// Products lists every product with summary metrics. search filters
// case-insensitively over HS6 code or description; limit truncates after
// the deficit-descending sort. Codes absent from the China index rank as
// deficit zero, intermixed with true zero-deficit codes.
func (u *ExploreUseCase) Products(search string, limit int) ProductList {
	searchLower := strings.ToLower(search)
	products := []ProductSummary{}

	for hs6, trade := range u.store.Trade {
		desc := u.store.Description(hs6)

		if searchLower != "" &&
			!strings.Contains(strings.ToLower(hs6), searchLower) &&
			!strings.Contains(strings.ToLower(desc), searchLower) {
			continue
		}

		var totalExports, totalImports, chinaImports int64
		for _, v := range trade.ExportValue {
			totalExports += v
		}
		for country, v := range trade.ImportValue {
			totalImports += v
			if strings.EqualFold(country, "CHINA") {
				chinaImports = v
			}
		}

		products = append(products, ProductSummary{
			HS6:              hs6,
			Description:      desc,
			ChinaDeficit:     u.store.China[hs6],
			ChinaImportShare: share(chinaImports, totalImports),
			DefenseScore:     u.store.DefenseScoreFor(hs6),
			TradeBalance:     totalExports - totalImports,
			TotalExports:     totalExports,
			TotalImports:     totalImports,
		})
	}

	sort.Slice(products, func(i, j int) bool {
		if products[i].ChinaDeficit != products[j].ChinaDeficit {
			return products[i].ChinaDeficit > products[j].ChinaDeficit
		}
		return products[i].HS6 < products[j].HS6
	})

	total := len(products)
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	return ProductList{Products: products, Total: total}
}

// CountryTrade is one country's row in the product detail breakdown.
type CountryTrade struct {
	Country string `json:"country"`
	Exports int64  `json:"exports"`
	Imports int64  `json:"imports"`
	Balance int64  `json:"balance"`
}

// NAICSRef is an industry reference with its resolved name.
type NAICSRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ProductDetail is the full per-product view.
type ProductDetail struct {
	HS6              string         `json:"hs6"`
	Description      string         `json:"description"`
	DefenseScore     int            `json:"defense_score"`
	DefenseReasoning string         `json:"defense_reasoning"`
	ChinaDeficit     int64          `json:"china_deficit"`
	ChinaImportShare float64        `json:"china_import_share"`
	ChinaImports     int64          `json:"china_imports"`
	TotalImports     int64          `json:"total_imports"`
	Countries        []CountryTrade `json:"countries"`
	NAICS            []NAICSRef     `json:"naics"`
}

// ProductDetailFor builds the per-country breakdown for one HS6 code.
// The side a country is missing from synthesizes as zero. Countries sort
// by total trade volume descending. Returns ErrProductNotFound for codes
// absent from the trade data.
func (u *ExploreUseCase) ProductDetailFor(hs6 string) (*ProductDetail, error) {
	trade, ok := u.store.Trade[hs6]
	if !ok {
		return nil, ErrProductNotFound
	}

	countries := make(map[string]*CountryTrade)
	for country, exportVal := range trade.ExportValue {
		countries[country] = &CountryTrade{
			Country: country,
			Exports: exportVal,
			Balance: exportVal,
		}
	}

	var chinaImports, totalImports int64
	for country, importVal := range trade.ImportValue {
		totalImports += importVal
		ct := countries[country]
		if ct == nil {
			ct = &CountryTrade{Country: country}
			countries[country] = ct
		}
		ct.Imports = importVal
		ct.Balance = ct.Exports - importVal
		if strings.EqualFold(country, "CHINA") {
			chinaImports = importVal
		}
	}

	list := make([]CountryTrade, 0, len(countries))
	for _, ct := range countries {
		list = append(list, *ct)
	}
	sort.Slice(list, func(i, j int) bool {
		vi := list[i].Exports + list[i].Imports
		vj := list[j].Exports + list[j].Imports
		if vi != vj {
			return vi > vj
		}
		return list[i].Country < list[j].Country
	})

	naics := []NAICSRef{}
	for _, code := range u.store.HS6ToNAICS[hs6] {
		naics = append(naics, NAICSRef{Code: code, Name: u.store.NAICSNames[code]})
	}

	info := u.store.Defense[hs6]
	return &ProductDetail{
		HS6:              hs6,
		Description:      u.store.Description(hs6),
		DefenseScore:     info.Score,
		DefenseReasoning: info.Reasoning,
		ChinaDeficit:     u.store.China[hs6],
		ChinaImportShare: share(chinaImports, totalImports),
		ChinaImports:     chinaImports,
		TotalImports:     totalImports,
		Countries:        list,
		NAICS:            naics,
	}, nil
}

// NAICSSummary is one row of the industry listing.
type NAICSSummary struct {
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	ProductCount      int     `json:"product_count"`
	TotalChinaDeficit int64   `json:"total_china_deficit"`
	AvgDefenseScore   float64 `json:"avg_defense_score"`
}

// NAICSList is the industry listing response.
type NAICSList struct {
	NAICS []NAICSSummary `json:"naics"`
}

// NAICSSummaries aggregates each known industry's unique HS6 set: total
// China deficit and mean defense score (zero for an empty set), sorted
// by total deficit descending.
func (u *ExploreUseCase) NAICSSummaries() NAICSList {
	list := []NAICSSummary{}
	for code, name := range u.store.NAICSNames {
		hs6Set := u.store.Concordance[code].HS6Set()

		var totalDeficit int64
		var scoreSum int
		for _, hs6 := range hs6Set {
			totalDeficit += u.store.China[hs6]
			scoreSum += u.store.DefenseScoreFor(hs6)
		}
		avg := 0.0
		if len(hs6Set) > 0 {
			avg = round1(float64(scoreSum) / float64(len(hs6Set)))
		}

		list = append(list, NAICSSummary{
			Code:              code,
			Name:              name,
			ProductCount:      len(hs6Set),
			TotalChinaDeficit: totalDeficit,
			AvgDefenseScore:   avg,
		})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].TotalChinaDeficit != list[j].TotalChinaDeficit {
			return list[i].TotalChinaDeficit > list[j].TotalChinaDeficit
		}
		return list[i].Code < list[j].Code
	})
	return NAICSList{NAICS: list}
}

// NAICSProduct is one product row of the industry detail.
type NAICSProduct struct {
	HS6          string `json:"hs6"`
	Description  string `json:"description"`
	ChinaDeficit int64  `json:"china_deficit"`
	DefenseScore int    `json:"defense_score"`
}

// NAICSDetail is the per-industry product list.
type NAICSDetail struct {
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Products []NAICSProduct `json:"products"`
}

// NAICSDetailFor lists one industry's unique HS6 codes with their
// metrics, deficit descending. Unknown codes resolve to an empty name
// and an empty product list rather than failing.
func (u *ExploreUseCase) NAICSDetailFor(code string) NAICSDetail {
	products := []NAICSProduct{}
	for _, hs6 := range u.store.Concordance[code].HS6Set() {
		products = append(products, NAICSProduct{
			HS6:          hs6,
			Description:  u.store.Description(hs6),
			ChinaDeficit: u.store.China[hs6],
			DefenseScore: u.store.DefenseScoreFor(hs6),
		})
	}

	sort.Slice(products, func(i, j int) bool {
		if products[i].ChinaDeficit != products[j].ChinaDeficit {
			return products[i].ChinaDeficit > products[j].ChinaDeficit
		}
		return products[i].HS6 < products[j].HS6
	})

	return NAICSDetail{
		Code:     code,
		Name:     u.store.NAICSNames[code],
		Products: products,
	}
}

// CriticalProduct is one row of the critical matrix.
type CriticalProduct struct {
	HS6          string  `json:"hs6"`
	Description  string  `json:"description"`
	ChinaDeficit int64   `json:"china_deficit"`
	DefenseScore int     `json:"defense_score"`
	Criticality  float64 `json:"criticality"`
}

// CriticalMatrix is the ranked critical-product response.
type CriticalMatrix struct {
	Products []CriticalProduct `json:"products"`
	Total    int               `json:"total"`
}

// CriticalMatrixFor ranks HS6 codes from the China index that meet both
// thresholds. Criticality is the mean of the deficit normalized by the
// index maximum and the defense score over 10. The normalization
// denominator is 1 when the index is empty.
func (u *ExploreUseCase) CriticalMatrixFor(minChinaDeficit int64, minDefenseScore int) CriticalMatrix {
	var maxDeficit int64
	for _, deficit := range u.store.China {
		if deficit > maxDeficit {
			maxDeficit = deficit
		}
	}
	if maxDeficit == 0 {
		maxDeficit = 1
	}

	products := []CriticalProduct{}
	for hs6, deficit := range u.store.China {
		score := u.store.DefenseScoreFor(hs6)
		if deficit < minChinaDeficit || score < minDefenseScore {
			continue
		}
		products = append(products, CriticalProduct{
			HS6:          hs6,
			Description:  u.store.Description(hs6),
			ChinaDeficit: deficit,
			DefenseScore: score,
			Criticality:  (float64(deficit)/float64(maxDeficit) + float64(score)/10) / 2,
		})
	}

	sort.Slice(products, func(i, j int) bool {
		if products[i].Criticality != products[j].Criticality {
			return products[i].Criticality > products[j].Criticality
		}
		return products[i].HS6 < products[j].HS6
	})

	return CriticalMatrix{Products: products, Total: len(products)}
}

// share is the 0/0=0 convention for import shares.
func share(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
