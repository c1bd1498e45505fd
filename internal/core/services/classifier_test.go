package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

func newClassifierFixture(t *testing.T, model *fakeClassifier) (*CategoryClassifier, *EffortService) {
	t.Helper()
	tax := domain.DefaultTaxonomy()
	efforts := NewEffortService(memory.NewEffortStore(), nil, nil, tax)
	ctx := context.Background()
	cat := tax.Categories()[0]
	for _, rec := range []domain.EffortRecord{
		{TicketID: "A-1", Title: "소셜 로그인 개발", Estimate: 2, Category: cat},
		{TicketID: "A-2", Title: "소셜 로그인 버그 수정", Estimate: 1},
		{TicketID: "A-3", Title: "차트 개발", Estimate: 3},
	} {
		_, err := efforts.Add(ctx, &rec, driving.AddOptions{})
		require.NoError(t, err)
	}
	return NewCategoryClassifier(model, efforts, tax), efforts
}

func TestCategoryClassifier_Train(t *testing.T) {
	model := &fakeClassifier{}
	svc, _ := newClassifierFixture(t, model)

	require.NoError(t, svc.Train(context.Background()))
	assert.Len(t, model.trainedOn, 3)
	assert.True(t, model.Trained())
}

func TestCategoryClassifier_Predict(t *testing.T) {
	cat := domain.DefaultTaxonomy().Categories()[0]
	ctx := context.Background()

	untrained := &fakeClassifier{category: cat, confidence: 0.9}
	svc, _ := newClassifierFixture(t, untrained)
	got, conf := svc.Predict(ctx, "로그인")
	assert.True(t, got.IsUnclassified())
	assert.Zero(t, conf)

	trained := &fakeClassifier{category: cat, confidence: 0.9, trained: true}
	svc, _ = newClassifierFixture(t, trained)
	got, conf = svc.Predict(ctx, "로그인")
	assert.Equal(t, cat, got)
	assert.InDelta(t, 0.9, conf, 1e-9)

	got, _ = svc.Predict(ctx, "   ")
	assert.True(t, got.IsUnclassified())

	stale := &fakeClassifier{category: domain.NewCategory("폐기", "옛날", "항목"), confidence: 0.9, trained: true}
	svc, _ = newClassifierFixture(t, stale)
	got, conf = svc.Predict(ctx, "로그인")
	assert.True(t, got.IsUnclassified())
	assert.Zero(t, conf)
}

func TestCategoryClassifier_AutoClassify(t *testing.T) {
	cat := domain.DefaultTaxonomy().Categories()[0]
	ctx := context.Background()

	t.Run("dry run", func(t *testing.T) {
		svc, efforts := newClassifierFixture(t, &fakeClassifier{category: cat, confidence: 0.8})
		results, err := svc.AutoClassify(ctx, 0.7, true)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "A-2", results[0].TicketID)
		assert.False(t, results[0].Applied)

		rec, err := efforts.Get(ctx, "A-2")
		require.NoError(t, err)
		assert.True(t, rec.Category.IsUnclassified())
	})

	t.Run("apply", func(t *testing.T) {
		svc, efforts := newClassifierFixture(t, &fakeClassifier{category: cat, confidence: 0.8})
		results, err := svc.AutoClassify(ctx, 0.7, false)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, results[1].Applied)

		rec, err := efforts.Get(ctx, "A-3")
		require.NoError(t, err)
		assert.Equal(t, cat, rec.Category)
	})

	t.Run("below threshold", func(t *testing.T) {
		svc, _ := newClassifierFixture(t, &fakeClassifier{category: cat, confidence: 0.5})
		results, err := svc.AutoClassify(ctx, 0, false)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
