// Package scoring computes the 0-100 priority score and textual insight
// for a lead. The remote model is tried first; on any failure a
// deterministic local heuristic takes over. Scoring never fails the
// caller: it always returns a usable score/insight pair.
package scoring

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Numeric fallbacks applied when a feature is missing. Absence degrades
// score quality, it never fails the call.
const (
	defaultAge = 30

	// The heuristic path never reports below 60 so incomplete leads
	// still reach manual review. Product decision, not an accident.
	fallbackFloor   = 60
	fallbackCeiling = 99
)

// LeadFeatures is the canonical feature record for scoring. All fields
// are optional; zero values trigger the documented defaults.
type LeadFeatures struct {
	CreditScore int
	Salary      float64
	Age         int
	ProductType string
	Occupation  string
	Region      string
	LoanAmount  float64
}

// productPoints maps product types to their 5-15 contribution.
var productPoints = map[string]float64{
	"loan":        15,
	"mortgage":    13,
	"credit card": 12,
	"savings":     8,
	"insurance":   6,
}

const productPointsDefault = 5

// regionPoints maps regions to their 2-5 contribution.
var regionPoints = map[string]float64{
	"north": 5,
	"west":  4,
	"south": 4,
	"east":  3,
}

const regionPointsDefault = 3

var (
	professionalKeywords = []string{"engineer", "doctor", "lawyer", "manager", "architect", "accountant"}
	businessKeywords     = []string{"business", "entrepreneur", "owner", "trader"}
	moderateKeywords     = []string{"teacher", "nurse", "clerk", "technician"}
)

// Scorer is the remote-first, heuristic-second priority scorer. The
// random jitter source is injected so tests can pin it.
type Scorer struct {
	remote RemoteScorer
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScorer builds a scorer. remote may be nil (a typed nil *Client
// must not be passed); the heuristic then always applies.
func NewScorer(remote RemoteScorer, rng *rand.Rand, logger *zap.Logger) *Scorer {
	return &Scorer{remote: remote, rng: rng, logger: logger}
}

// Score produces the priority score and insight for the features.
// Remote failures are logged and absorbed, never propagated.
func (s *Scorer) Score(ctx context.Context, features LeadFeatures) (int, string) {
	features = applyDefaults(features)

	score, ok := s.tryRemoteScore(ctx, features)
	if !ok {
		score = s.heuristicScore(features)
	}

	insight, ok := s.tryRemoteInsight(ctx, features)
	if !ok {
		insight = heuristicInsight(features)
	}
	return score, insight
}

func (s *Scorer) tryRemoteScore(ctx context.Context, features LeadFeatures) (int, bool) {
	if s.remote == nil {
		return 0, false
	}
	probability, err := s.remote.Score(ctx, encodeFeatures(features))
	if err != nil {
		s.logger.Warn("remote scorer unavailable, using heuristic", zap.Error(err))
		return 0, false
	}
	return clampInt(int(math.Round(probability*100)), 0, 100), true
}

func (s *Scorer) tryRemoteInsight(ctx context.Context, features LeadFeatures) (string, bool) {
	if s.remote == nil {
		return "", false
	}
	insight, err := s.remote.Insight(ctx, InsightRequest{
		CreditScore: features.CreditScore,
		Salary:      features.Salary,
		Age:         features.Age,
		ProductType: features.ProductType,
		Occupation:  features.Occupation,
		Region:      features.Region,
		LoanAmount:  features.LoanAmount,
	})
	if err != nil {
		s.logger.Warn("remote insight unavailable, using heuristic", zap.Error(err))
		return "", false
	}
	return insight, true
}

// heuristicScore is the documented weighted fallback:
// base 20, credit 0-30, salary 0-25, age 0-15 peaking at 34,
// product 5-15, occupation 5-10, region 2-5, jitter ±5,
// clamped to [60,99].
func (s *Scorer) heuristicScore(features LeadFeatures) int {
	total := 20.0
	total += creditPoints(features.CreditScore)
	total += salaryPoints(features.Salary)
	total += agePoints(features.Age)
	total += lookupPoints(productPoints, features.ProductType, productPointsDefault)
	total += occupationPoints(features.Occupation)
	total += lookupPoints(regionPoints, features.Region, regionPointsDefault)
	total += s.jitter()
	return clampInt(int(math.Round(total)), fallbackFloor, fallbackCeiling)
}

// creditPoints maps [300,850] linearly onto [0,30].
func creditPoints(creditScore int) float64 {
	normalized := (float64(creditScore) - 300) / 550
	return clampFloat(normalized, 0, 1) * 30
}

// salaryPoints scales linearly, saturating at 25 points for 200k.
func salaryPoints(salary float64) float64 {
	return clampFloat(salary/200000, 0, 1) * 25
}

// agePoints is a penalty curve peaking at age 34, floored at zero.
func agePoints(age int) float64 {
	points := 15 - math.Abs(34-float64(age))*0.4
	if points < 0 {
		return 0
	}
	return points
}

func occupationPoints(occupation string) float64 {
	occupation = strings.ToLower(occupation)
	switch {
	case containsAny(occupation, professionalKeywords):
		return 10
	case containsAny(occupation, businessKeywords):
		return 8
	case containsAny(occupation, moderateKeywords):
		return 7
	default:
		return 5
	}
}

func lookupPoints(table map[string]float64, key string, fallback float64) float64 {
	if points, ok := table[strings.ToLower(strings.TrimSpace(key))]; ok {
		return points
	}
	return fallback
}

// jitter draws a uniform value in [-5,5].
func (s *Scorer) jitter() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()*10 - 5
}

// heuristicInsight concatenates independent rule fragments. Order is
// fixed but every fragment is optional; no fragment depends on another.
func heuristicInsight(features LeadFeatures) string {
	var fragments []string

	switch {
	case features.CreditScore >= 750:
		fragments = append(fragments, "Excellent credit history, strong approval candidate")
	case features.CreditScore >= 650:
		fragments = append(fragments, "Good credit standing")
	case features.CreditScore > 0:
		fragments = append(fragments, "Credit score below preferred range, verify repayment history")
	}

	switch {
	case features.Salary >= 100000:
		fragments = append(fragments, "High income bracket")
	case features.Salary >= 50000:
		fragments = append(fragments, "Stable income level")
	}

	if features.Age >= 25 && features.Age <= 40 {
		fragments = append(fragments, "Prime age bracket for long-term products")
	}

	if features.LoanAmount > 0 && features.Salary > 0 {
		ratio := features.LoanAmount / features.Salary
		if ratio > 5 {
			fragments = append(fragments, "Requested amount is high relative to income")
		} else if ratio <= 3 {
			fragments = append(fragments, "Requested amount comfortably within income range")
		}
	}

	if containsAny(strings.ToLower(features.Occupation), professionalKeywords) {
		fragments = append(fragments, "Professional occupation, low default risk profile")
	}

	if len(fragments) == 0 {
		return "Standard processing recommended"
	}
	return strings.Join(fragments, "; ")
}

// encodeFeatures builds the 7-feature vector for the remote model.
func encodeFeatures(features LeadFeatures) FeatureVector {
	return FeatureVector{
		float64(features.CreditScore),
		features.Salary,
		float64(features.Age),
		categoryCode(productPoints, features.ProductType),
		categoryCode(regionPoints, features.Region),
		occupationCode(features.Occupation),
		features.LoanAmount,
	}
}

// categoryCode encodes a categorical as its table contribution; unknown
// categories encode as zero.
func categoryCode(table map[string]float64, key string) float64 {
	if code, ok := table[strings.ToLower(strings.TrimSpace(key))]; ok {
		return code
	}
	return 0
}

func occupationCode(occupation string) float64 {
	occupation = strings.ToLower(occupation)
	switch {
	case containsAny(occupation, professionalKeywords):
		return 3
	case containsAny(occupation, businessKeywords):
		return 2
	case containsAny(occupation, moderateKeywords):
		return 1
	default:
		return 0
	}
}

func applyDefaults(features LeadFeatures) LeadFeatures {
	if features.Age <= 0 {
		features.Age = defaultAge
	}
	return features
}

func containsAny(value string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(value, keyword) {
			return true
		}
	}
	return false
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
