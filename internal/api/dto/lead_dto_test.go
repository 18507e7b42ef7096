package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateLeadRequestCanonicalPrefersCanonicalNames(t *testing.T) {
	req := CreateLeadRequest{
		Name:         "Asha Verma",
		CustomerName: "Legacy Name",
		Zone:         "north",
		Region:       "north-east",
	}
	input := req.Canonical()
	assert.Equal(t, "Asha Verma", input.Name)
	assert.Equal(t, "north", input.Zone)
	assert.Equal(t, "north-east", input.Region)
}

func TestCreateLeadRequestCanonicalFallsBackToLegacyNames(t *testing.T) {
	req := CreateLeadRequest{
		CustomerName: "Legacy Name",
		Region:       "west",
	}
	input := req.Canonical()
	assert.Equal(t, "Legacy Name", input.Name)
	assert.Equal(t, "west", input.Zone, "region doubles as zone when zone is absent")
	assert.Equal(t, "west", input.Region)
}
