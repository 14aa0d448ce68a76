package feedback

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medication-net-benefit/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		store, err := NewStore(ctx, domain.FeedbackConfig{Driver: DriverNone}, quietLogger())
		require.NoError(t, err)
		assert.Nil(t, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fb.db")
		store, err := NewStore(ctx, domain.FeedbackConfig{Driver: DriverSQLite, SQLitePath: path}, quietLogger())
		require.NoError(t, err)
		defer store.Close()
		sqlite, ok := store.(*SQLiteStore)
		require.True(t, ok)
		assert.Equal(t, path, sqlite.Path())
	})

	t.Run("postgres without url", func(t *testing.T) {
		_, err := NewStore(ctx, domain.FeedbackConfig{Driver: DriverPostgres}, quietLogger())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := NewStore(ctx, domain.FeedbackConfig{Driver: "mongo"}, quietLogger())
		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "feedback.driver", validationErr.Field)
	})
}

func TestFeedbackNormalize(t *testing.T) {
	tests := []struct {
		name          string
		in            Feedback
		wantClinician domain.Recommendation
		wantAgreed    bool
	}{
		{
			name:          "agreement fills clinician tier",
			in:            Feedback{SuggestedRecommendation: domain.CONSIDER, Agreed: true},
			wantClinician: domain.CONSIDER,
			wantAgreed:    true,
		},
		{
			name:          "override clears agreement",
			in:            Feedback{SuggestedRecommendation: domain.CONSIDER, ClinicianRecommendation: domain.NOT_RECOMMENDED, Agreed: true},
			wantClinician: domain.NOT_RECOMMENDED,
			wantAgreed:    false,
		},
		{
			name:          "matching tiers imply agreement",
			in:            Feedback{SuggestedRecommendation: domain.MARGINAL, ClinicianRecommendation: domain.MARGINAL},
			wantClinician: domain.MARGINAL,
			wantAgreed:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := tt.in
			fb.Normalize()
			assert.Equal(t, tt.wantClinician, fb.ClinicianRecommendation)
			assert.Equal(t, tt.wantAgreed, fb.Agreed)
		})
	}
}

func TestStatsAgreementRate(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.AgreementRate())
	assert.Equal(t, 0.75, Stats{Total: 4, Agreed: 3}.AgreementRate())
}
