package domain_test

import (
	"testing"

	"recsys-orchestrator/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   int
	}{
		{"spread", []int{0, 5, 10}, 5},
		{"rounds up from 6.67", []int{5, 5, 10}, 7},
		{"rounds up from 1.67", []int{0, 5, 0}, 2},
		{"rounds down from 3.33", []int{0, 0, 10}, 3},
		{"all full", []int{10, 10, 10}, 10},
		{"all none", []int{0, 0, 0}, 0},
		{"half boundary rounds away from zero", []int{0, 5}, 3},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.WeightedAverage(tt.scores...))
		})
	}
}

func TestRelevanceResult_Normalize(t *testing.T) {
	r := domain.RelevanceResult{Score: 5, Evidences: []string{" a ", "", "b", "c", "d"}}
	r.Normalize()
	assert.Equal(t, []string{"a", "b", "c"}, r.Evidences)
}

func TestPrecisionResult_Outranks(t *testing.T) {
	high := domain.PrecisionResult{Score: 10, RelationConfidence: 0.2}
	mid := domain.PrecisionResult{Score: 5, RelationConfidence: 0.9}
	midLow := domain.PrecisionResult{Score: 5, RelationConfidence: 0.6}

	assert.True(t, high.Outranks(mid))
	assert.True(t, mid.Outranks(midLow))
	assert.False(t, mid.Outranks(mid))
	assert.False(t, midLow.Outranks(high))
}

func TestNeutralPrecision(t *testing.T) {
	n := domain.NeutralPrecision()
	assert.Equal(t, 0, n.Score)
	assert.False(t, n.RelationMatch)
	assert.Zero(t, n.RelationConfidence)
	assert.Empty(t, n.Evidences)
}
