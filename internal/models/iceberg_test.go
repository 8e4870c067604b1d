package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsComplete(t *testing.T) {
	area := 1.5
	tests := []struct {
		name    string
		iceberg Iceberg
		want    bool
	}{
		{"mask and area", Iceberg{MaskPath: "masks/a.png", Area: &area}, true},
		{"no area", Iceberg{MaskPath: "masks/a.png"}, false},
		{"no mask", Iceberg{Area: &area}, false},
		{"neither", Iceberg{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.iceberg.IsComplete())
		})
	}
}

func TestSerializeNilArea(t *testing.T) {
	iceberg := Iceberg{ID: uuid.New(), Name: "BergA", Status: StatusPending}
	payload := iceberg.Serialize()
	assert.Nil(t, payload["area"])
	assert.Equal(t, "BergA", payload["name"])
	assert.Equal(t, StatusPending, payload["status"])
}
