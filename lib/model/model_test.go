package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMarket = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

func validCreate() CreateRequest {
	return CreateRequest{
		Name:               "hello-world",
		Market:             testMarket,
		IPFSDefinitionHash: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		Replicas:           1,
		Timeout:            3600,
		Strategy:           StrategySimple,
	}
}

func TestCreateRequestValid(t *testing.T) {
	assert.NoError(t, validCreate().Validate())

	r := validCreate()
	r.Owner = testMarket
	assert.NoError(t, r.Validate())

	r = validCreate()
	r.Strategy = StrategyScheduled
	r.Schedule = "0 0 * * * *"
	assert.NoError(t, r.Validate())
}

func TestCreateRequestRejections(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*CreateRequest)
	}{
		{"name", func(r *CreateRequest) { r.Name = "  " }},
		{"market", func(r *CreateRequest) { r.Market = "not-an-address" }},
		{"owner", func(r *CreateRequest) { r.Owner = "bad" }},
		{"ipfsDefinitionHash", func(r *CreateRequest) { r.IPFSDefinitionHash = "" }},
		{"replicas", func(r *CreateRequest) { r.Replicas = 0 }},
		{"timeout", func(r *CreateRequest) { r.Timeout = 59 }},
		{"strategy", func(r *CreateRequest) { r.Strategy = "BESPOKE" }},
	}

	for _, tt := range tests {
		r := validCreate()
		tt.mutate(&r)

		err := r.Validate()

		var ve *ValidationError
		require.ErrorAs(t, err, &ve, tt.field)
		assert.Equal(t, tt.field, ve.Field)
	}
}

func TestScheduleRequiredIffScheduled(t *testing.T) {
	// SCHEDULED without a schedule
	r := validCreate()
	r.Strategy = StrategyScheduled

	var ve *ValidationError
	require.ErrorAs(t, r.Validate(), &ve)
	assert.Equal(t, "schedule", ve.Field)

	// SCHEDULED with a 5-field cron
	r.Schedule = "0 * * * *"
	require.ErrorAs(t, r.Validate(), &ve)
	assert.Equal(t, "schedule", ve.Field)

	// schedule on a non-scheduled strategy
	r = validCreate()
	r.Schedule = "0 0 * * * *"
	require.ErrorAs(t, r.Validate(), &ve)
	assert.Equal(t, "schedule", ve.Field)
}

func TestUpdateRequests(t *testing.T) {
	assert.NoError(t, UpdateReplicasRequest{Replicas: 3}.Validate())
	assert.Error(t, UpdateReplicasRequest{Replicas: 0}.Validate())

	assert.NoError(t, UpdateTimeoutRequest{Timeout: 60}.Validate())
	assert.Error(t, UpdateTimeoutRequest{Timeout: 30}.Validate())
}
