package scoring

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-service/internal/config"
)

func newTestScorer(remote RemoteScorer) *Scorer {
	return NewScorer(remote, rand.New(rand.NewSource(1)), zap.NewNop())
}

func TestHeuristicScoreStaysInRange(t *testing.T) {
	scorer := newTestScorer(nil)
	rng := rand.New(rand.NewSource(42))
	products := []string{"loan", "mortgage", "credit card", "savings", "insurance", "unknown"}
	regions := []string{"north", "south", "east", "west", ""}

	for i := 0; i < 500; i++ {
		score, insight := scorer.Score(context.Background(), LeadFeatures{
			CreditScore: rng.Intn(900),
			Salary:      rng.Float64() * 300000,
			Age:         rng.Intn(80),
			ProductType: products[rng.Intn(len(products))],
			Region:      regions[rng.Intn(len(regions))],
			Occupation:  "clerk",
			LoanAmount:  rng.Float64() * 1000000,
		})
		require.GreaterOrEqual(t, score, 60)
		require.LessOrEqual(t, score, 99)
		require.NotEmpty(t, insight)
	}
}

func TestHeuristicScoreWeights(t *testing.T) {
	scorer := newTestScorer(nil)

	// base 20 + credit 16.36 + salary 5 + age 8.6 + product 8 +
	// occupation 7 + region 3 = 67.96, jitter moves it at most 5.
	score, _ := scorer.Score(context.Background(), LeadFeatures{
		CreditScore: 600,
		Salary:      40000,
		Age:         50,
		ProductType: "savings",
		Occupation:  "clerk",
		Region:      "east",
	})
	assert.GreaterOrEqual(t, score, 62)
	assert.LessOrEqual(t, score, 73)
}

func TestHeuristicScoreClampsAtFloor(t *testing.T) {
	scorer := newTestScorer(nil)

	// Everything missing sums well below 60 even with positive jitter.
	score, _ := scorer.Score(context.Background(), LeadFeatures{Age: 70})
	assert.Equal(t, 60, score)
}

func TestHeuristicScoreClampsAtCeiling(t *testing.T) {
	scorer := newTestScorer(nil)

	for i := 0; i < 50; i++ {
		score, _ := scorer.Score(context.Background(), LeadFeatures{
			CreditScore: 850,
			Salary:      250000,
			Age:         34,
			ProductType: "loan",
			Occupation:  "engineer",
			Region:      "north",
		})
		require.LessOrEqual(t, score, 99)
	}
}

func TestRemoteScoreWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/score":
			w.Write([]byte(`{"conversion_probability":0.87}`))
		case "/insight":
			w.Write([]byte(`{"insight":"Model recommends fast-track"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(config.ScorerConfig{BaseURL: server.URL, TimeoutSeconds: 2})
	require.NotNil(t, client)

	scorer := newTestScorer(client)
	score, insight := scorer.Score(context.Background(), LeadFeatures{CreditScore: 700, Age: 30})
	assert.Equal(t, 87, score)
	assert.Equal(t, "Model recommends fast-track", insight)
}

func TestRemoteFailureFallsBackToHeuristic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(config.ScorerConfig{BaseURL: server.URL, TimeoutSeconds: 2})
	scorer := newTestScorer(client)

	score, insight := scorer.Score(context.Background(), LeadFeatures{
		CreditScore: 700,
		Salary:      60000,
		Age:         30,
		ProductType: "loan",
		Occupation:  "engineer",
		Region:      "north",
	})
	assert.GreaterOrEqual(t, score, 60)
	assert.LessOrEqual(t, score, 99)
	assert.NotEmpty(t, insight)
}

func TestRemoteOutOfRangeProbabilityRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/score" {
			w.Write([]byte(`{"conversion_probability":1.4}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(config.ScorerConfig{BaseURL: server.URL, TimeoutSeconds: 2})
	scorer := newTestScorer(client)

	score, _ := scorer.Score(context.Background(), LeadFeatures{CreditScore: 400, Age: 60})
	assert.GreaterOrEqual(t, score, 60, "fallback applies when the model misbehaves")
	assert.LessOrEqual(t, score, 99)
}

func TestNewClientDisabledWithoutBaseURL(t *testing.T) {
	assert.Nil(t, NewClient(config.ScorerConfig{}))
}

func TestHeuristicInsightFragments(t *testing.T) {
	insight := heuristicInsight(LeadFeatures{
		CreditScore: 780,
		Salary:      120000,
		Age:         32,
		Occupation:  "software engineer",
		LoanAmount:  200000,
	})
	assert.Contains(t, insight, "Excellent credit history")
	assert.Contains(t, insight, "High income bracket")
	assert.Contains(t, insight, "Prime age bracket")
	assert.Contains(t, insight, "Professional occupation")

	assert.Equal(t, "Standard processing recommended", heuristicInsight(LeadFeatures{Age: 55}))
}

func TestHeuristicInsightLoanRatio(t *testing.T) {
	high := heuristicInsight(LeadFeatures{Salary: 30000, LoanAmount: 400000, Age: 55})
	assert.Contains(t, high, "high relative to income")

	low := heuristicInsight(LeadFeatures{Salary: 100000, LoanAmount: 150000, Age: 55})
	assert.Contains(t, low, "comfortably within income range")
}

func TestAgePointsPeak(t *testing.T) {
	assert.InDelta(t, 15, agePoints(34), 0.001)
	assert.Greater(t, agePoints(34), agePoints(25))
	assert.Greater(t, agePoints(34), agePoints(60))
	assert.Equal(t, 0.0, agePoints(90))
}
