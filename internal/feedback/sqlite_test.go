package feedback

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medication-net-benefit/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	return store
}

func agreement(evaluationID, medicationID string) *Feedback {
	return &Feedback{
		EvaluationID:            evaluationID,
		MedicationID:            medicationID,
		SuggestedRecommendation: domain.RECOMMENDED,
		ClinicianRecommendation: domain.RECOMMENDED,
		NetScore:                1.25,
		TablesVersion:           "2025.1",
		Reviewer:                "dr-lee",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	// Act
	store, err := NewSQLiteStore(dbPath)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	feedback := &Feedback{
		EvaluationID:            " eval-1 ",
		MedicationID:            "Apixaban",
		SuggestedRecommendation: domain.STRONGLY_RECOMMENDED,
		ClinicianRecommendation: domain.CONSIDER,
		Agreed:                  true,
		NetScore:                3.704,
		Notes:                   "Patient declines anticoagulation",
	}

	// Act
	err := store.Save(ctx, feedback)

	// Assert
	require.NoError(t, err)
	assert.NotZero(t, feedback.ID, "ID should be assigned")
	assert.False(t, feedback.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, feedback.UpdatedAt.IsZero(), "UpdatedAt should be set")
	assert.Equal(t, "eval-1", feedback.EvaluationID)
	assert.Equal(t, "apixaban", feedback.MedicationID)
	assert.False(t, feedback.Agreed, "agreement is derived from the tiers")
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	feedback := agreement("eval-1", "metoprolol-succinate")
	require.NoError(t, store.Save(ctx, feedback))
	originalID := feedback.ID
	originalCreated := feedback.CreatedAt

	// Same evaluation + medication
	feedback.ClinicianRecommendation = domain.MARGINAL
	feedback.Notes = "Updated after review"
	require.NoError(t, store.Save(ctx, feedback))

	assert.Equal(t, originalID, feedback.ID, "Should update existing record")
	assert.WithinDuration(t, originalCreated, feedback.CreatedAt, time.Millisecond)

	retrieved, err := store.Get(ctx, "eval-1", "metoprolol-succinate")
	require.NoError(t, err)
	assert.Equal(t, domain.MARGINAL, retrieved.ClinicianRecommendation)
	assert.False(t, retrieved.Agreed)
	assert.Equal(t, "Updated after review", retrieved.Notes)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_Save_Invalid(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	tests := []struct {
		name     string
		feedback *Feedback
		field    string
	}{
		{"nil", nil, "feedback"},
		{"missing evaluation", &Feedback{MedicationID: "x", SuggestedRecommendation: domain.RECOMMENDED, Agreed: true}, "evaluation_id"},
		{"missing medication", &Feedback{EvaluationID: "e", SuggestedRecommendation: domain.RECOMMENDED, Agreed: true}, "medication_id"},
		{"unknown suggested tier", &Feedback{EvaluationID: "e", MedicationID: "x", SuggestedRecommendation: "MAYBE", Agreed: true}, "suggested_recommendation"},
		{"no clinician tier", &Feedback{EvaluationID: "e", MedicationID: "x", SuggestedRecommendation: domain.RECOMMENDED}, "clinician_recommendation"},
		{"long notes", &Feedback{EvaluationID: "e", MedicationID: "x", SuggestedRecommendation: domain.RECOMMENDED, Agreed: true, Notes: strings.Repeat("n", 4001)}, "notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Save(ctx, tt.feedback)
			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSQLiteStore_Get(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, agreement("eval-1", "lisinopril")))
	require.NoError(t, store.Save(ctx, agreement("eval-2", "lisinopril")))

	// Act
	retrieved, err := store.Get(ctx, "eval-2", "lisinopril")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, "eval-2", retrieved.EvaluationID)
	assert.Equal(t, domain.RECOMMENDED, retrieved.SuggestedRecommendation)
	assert.True(t, retrieved.Agreed)
	assert.Equal(t, 1.25, retrieved.NetScore)
	assert.Equal(t, "2025.1", retrieved.TablesVersion)
	assert.Equal(t, "dr-lee", retrieved.Reviewer)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	// Act
	retrieved, err := store.Get(context.Background(), "eval-404", "lisinopril")

	// Assert
	assert.Nil(t, retrieved)
	assert.ErrorIs(t, err, domain.ErrFeedbackNotFound)
	assert.Equal(t, domain.CodeNotFound, domain.ErrorCode(err))
}

func TestSQLiteStore_List_Pagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.Save(ctx, agreement("eval-"+id, "metformin")))
		time.Sleep(5 * time.Millisecond)
	}

	page1, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "eval-e", page1[0].EvaluationID, "newest first")

	page2, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 2)

	page3, err := store.List(ctx, 2, 4)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "eval-a", page3[0].EvaluationID)

	empty, err := store.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_Stats(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Equal(t, 0.0, stats.AgreementRate())

	require.NoError(t, store.Save(ctx, agreement("eval-1", "lisinopril")))
	require.NoError(t, store.Save(ctx, agreement("eval-1", "metformin")))
	override := agreement("eval-1", "zolpidem")
	override.SuggestedRecommendation = domain.CAUTION_ELDERLY
	override.ClinicianRecommendation = domain.NOT_RECOMMENDED
	require.NoError(t, store.Save(ctx, override))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Agreed)
	assert.Equal(t, map[domain.Recommendation]int64{domain.CAUTION_ELDERLY: 1}, stats.Overrides)
	assert.InDelta(t, 0.667, stats.AgreementRate(), 0.001)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	feedback := agreement("eval-1", "digoxin")
	require.NoError(t, store.Save(ctx, feedback))

	// Act
	require.NoError(t, store.Delete(ctx, feedback.ID))

	// Assert
	_, err := store.Get(ctx, "eval-1", "digoxin")
	assert.ErrorIs(t, err, domain.ErrFeedbackNotFound)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	feedback := agreement("eval-1", "atorvastatin")
	feedback.Notes = "Reasonable at this life expectancy"
	require.NoError(t, store.Save(ctx, feedback))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	assert.Contains(t, buf.String(), "atorvastatin")
	assert.Contains(t, buf.String(), "Reasonable at this life expectancy")
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 1`)
}

func TestSQLiteStore_ImportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, agreement("eval-1", "apixaban")))

	jsonData := `{
		"version": "1.0",
		"exported_at": "2026-01-17T10:00:00Z",
		"count": 3,
		"feedback": [
			{
				"evaluation_id": "eval-1",
				"medication_id": "apixaban",
				"suggested_recommendation": "RECOMMENDED",
				"clinician_recommendation": "MARGINAL"
			},
			{
				"evaluation_id": "eval-2",
				"medication_id": "Warfarin",
				"suggested_recommendation": "CONSIDER",
				"clinician_recommendation": "NOT_RECOMMENDED",
				"notes": "Labile INR"
			},
			{
				"evaluation_id": "eval-2",
				"medication_id": "digoxin",
				"suggested_recommendation": "MARGINAL",
				"agreed": true
			}
		]
	}`

	// Act
	imported, skipped, err := store.ImportJSON(ctx, strings.NewReader(jsonData))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 1, skipped)

	existing, err := store.Get(ctx, "eval-1", "apixaban")
	require.NoError(t, err)
	assert.Equal(t, domain.RECOMMENDED, existing.ClinicianRecommendation, "existing entries are not overwritten")

	warfarin, err := store.Get(ctx, "eval-2", "warfarin")
	require.NoError(t, err)
	assert.False(t, warfarin.Agreed)
	assert.Equal(t, "Labile INR", warfarin.Notes)

	digoxin, err := store.Get(ctx, "eval-2", "digoxin")
	require.NoError(t, err)
	assert.Equal(t, domain.MARGINAL, digoxin.ClinicianRecommendation)
}

func TestSQLiteStore_ImportJSON_InvalidJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, _, err := store.ImportJSON(context.Background(), strings.NewReader("{not json"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSQLiteStore_ExportImportRoundTrip(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()
	target := createTestStore(t)
	defer target.Close()

	ctx := context.Background()
	require.NoError(t, source.Save(ctx, agreement("eval-1", "lisinopril")))
	require.NoError(t, source.Save(ctx, agreement("eval-1", "spironolactone")))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	imported, skipped, err := target.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)
}
