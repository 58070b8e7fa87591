package dto_test

import (
	"testing"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/stretchr/testify/assert"
)

func TestPageRequest_DefaultPage(t *testing.T) {
	tests := []struct {
		name       string
		in         dto.PageRequest
		wantLimit  int
		wantOffset int
	}{
		{"vacía", dto.PageRequest{}, dto.DefaultPageLimit, 0},
		{"negativos", dto.PageRequest{Limit: -5, Offset: -1}, dto.DefaultPageLimit, 0},
		{"dentro del rango", dto.PageRequest{Limit: 50, Offset: 10}, 50, 10},
		{"tope exacto", dto.PageRequest{Limit: dto.MaxPageLimit}, dto.MaxPageLimit, 0},
		{"sobre el tope", dto.PageRequest{Limit: 1000, Offset: 3}, dto.MaxPageLimit, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.DefaultPage()
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}
