package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	vocab, err := NewVocabulary(testFields())
	require.NoError(t, err)
	val, err := NewValidator(vocab)
	require.NoError(t, err)
	return val
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"rent_yen":               98000,
		"mgmt_fee_yen":           8000,
		"initial_cost_total_yen": 360000,
		"building_built_year":    2015,
		"prefecture":             "tokyo",
		"layout_type":            "1K",
	}
}

func TestValidateAcceptsMinimalPayload(t *testing.T) {
	val := newTestValidator(t)
	assert.NoError(t, val.Validate(validPayload()))
}

func TestValidateRejectsUnknownField(t *testing.T) {
	val := newTestValidator(t)
	p := validPayload()
	p["rent"] = 98000

	err := val.Validate(p)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInputUnknownField))
	assert.Contains(t, err.Error(), "rent")
}

func TestValidateRejectsMissingRequired(t *testing.T) {
	val := newTestValidator(t)
	p := validPayload()
	delete(p, "rent_yen")

	err := val.Validate(p)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInputMissingField))
}

func TestValidateRejectsBadValues(t *testing.T) {
	val := newTestValidator(t)

	cases := map[string]map[string]interface{}{
		"negative rent":   {"rent_yen": -1},
		"bad enum":        {"prefecture": "okinawa"},
		"wrong type":      {"rent_yen": "98000"},
		"area over max":   {"area_sqm": 10000.0},
		"walk under zero": {"station_walk_min": -5},
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			p := validPayload()
			for k, v := range patch {
				p[k] = v
			}
			err := val.Validate(p)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestValidateYenFieldsHaveNoUpperBound(t *testing.T) {
	val := newTestValidator(t)
	p := validPayload()
	// The vocabulary declares a max on rent_yen but yen amounts are exempt.
	p["rent_yen"] = 3500000

	assert.NoError(t, val.Validate(p))
}

func TestValidateHubStationOtherRequiresName(t *testing.T) {
	val := newTestValidator(t)

	p := validPayload()
	p["hub_station"] = "other"
	err := val.Validate(p)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInputMissingField))

	p["hub_station_other_name"] = "nakano"
	assert.NoError(t, val.Validate(p))

	// Named hubs need no free-text name.
	p2 := validPayload()
	p2["hub_station"] = "shinjuku"
	assert.NoError(t, val.Validate(p2))
}

func TestValidateNilPayload(t *testing.T) {
	val := newTestValidator(t)
	err := val.Validate(nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInputInvalid))
}
