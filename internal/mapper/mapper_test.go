package mapper_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoders(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		assert.Equal(t, map[string]interface{}{"api_key": "k"}, mapper.DecodeObject(`{"api_key":"k"}`))
		assert.Empty(t, mapper.DecodeObject(""))
		assert.Empty(t, mapper.DecodeObject("not json"))
		assert.Empty(t, mapper.DecodeObject("null"))
		assert.NotNil(t, mapper.DecodeObject("[1,2]"))
	})

	t.Run("weights", func(t *testing.T) {
		assert.Equal(t, map[string]float64{"breadth": 0.3}, mapper.DecodeWeights(`{"breadth":0.3}`))
		assert.Empty(t, mapper.DecodeWeights(`{"breadth":"high"}`))
	})

	t.Run("actions", func(t *testing.T) {
		actions := mapper.DecodeActions(`[{"type":"email","config":{"template":"renewal"}}]`)
		require.Len(t, actions, 1)
		assert.Equal(t, "email", actions[0].Type)
		assert.NotNil(t, mapper.DecodeActions("{}"))
	})
}

func TestEncodeJSON(t *testing.T) {
	raw, err := mapper.EncodeJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)

	var attributes map[string]interface{}
	raw, err = mapper.EncodeJSON(attributes)
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)

	raw, err = mapper.EncodeJSON(map[string]float64{"depth": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"depth":1}`, raw)
}

func TestToJourneyHistoryEntryDTO(t *testing.T) {
	entered := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	from := domain.StageOnboarding
	entry := &domain.JourneyHistoryEntry{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		FromStage: &from,
		ToStage:   domain.StageAdoption,
		EnteredAt: entered,
		ChangedBy: "csm-1",
	}

	dto := mapper.ToJourneyHistoryEntryDTO(entry)

	assert.Equal(t, "2026-03-01T08:30:00Z", dto.EnteredAt)
	assert.Nil(t, dto.ExitedAt)
	assert.Equal(t, &from, dto.FromStage)

	exited := entered.Add(48 * time.Hour)
	entry.ExitedAt = &exited
	dto = mapper.ToJourneyHistoryEntryDTO(entry)
	require.NotNil(t, dto.ExitedAt)
	assert.Equal(t, "2026-03-03T08:30:00Z", *dto.ExitedAt)
}

func TestToAlertDTO(t *testing.T) {
	alert := &domain.Alert{
		AccountID: uuid.New(),
		AlertType: domain.AlertTypeHealthDip,
		Severity:  domain.AlertSeverityWarning,
		Message:   "Health dropped",
		Context:   `{"trend":-0.3}`,
	}

	dto := mapper.ToAlertDTO(alert)

	assert.Equal(t, domain.AlertTypeHealthDip, dto.AlertType)
	assert.InDelta(t, -0.3, dto.Context["trend"], 1e-9)
}
